// Package errs holds the error types shared by the domain, the use cases and
// the adapters.
//
// Every type unwraps to a sentinel (ErrValueIsRequired, ErrValueIsInvalid,
// ErrValueIsOutOfRange, ErrObjectNotFound, ErrObjectAlreadyExists,
// ErrConcurrentModification), so callers branch with errors.Is and read the
// details with errors.As. The HTTP adapter maps the sentinels to status codes:
// not found to 404, conflicts to 409, value errors to 400.
//
//	if errors.Is(err, errs.ErrObjectNotFound) {
//	    return ctx.JSON(http.StatusNotFound, body)
//	}
package errs
