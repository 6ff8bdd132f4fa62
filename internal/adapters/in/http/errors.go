package http

import (
	"errors"
	"net/http"

	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// Error kinds reported to clients.
const (
	KindInvalidTransition         = "InvalidTransition"
	KindMissingEvidence           = "MissingEvidence"
	KindEvidenceRejected          = "EvidenceRejected"
	KindConcurrentModification    = "ConcurrentModification"
	KindOrderNotFound             = "OrderNotFound"
	KindOrderAlreadyExists        = "OrderAlreadyExists"
	KindHandoverCodeNotReissuable = "HandoverCodeNotReissuable"
	KindBadRequest                = "BadRequest"
	KindInternal                  = "Internal"
)

var errInvalidIfMatch = errors.New("If-Match must carry a positive order version")

func errorBody(err error) Error {
	var te *order.TransitionError
	if errors.As(err, &te) {
		return Error{Code: http.StatusConflict, Kind: transitionKind(te), Reason: te.Reason, Message: te.Error()}
	}

	switch {
	case errors.Is(err, errs.ErrConcurrentModification):
		return Error{Code: http.StatusConflict, Kind: KindConcurrentModification, Message: err.Error()}
	case errors.Is(err, errs.ErrObjectNotFound):
		return Error{Code: http.StatusNotFound, Kind: KindOrderNotFound, Message: err.Error()}
	case errors.Is(err, errs.ErrObjectAlreadyExists):
		return Error{Code: http.StatusConflict, Kind: KindOrderAlreadyExists, Message: err.Error()}
	case errors.Is(err, order.ErrHandoverCodeNotReissuable):
		return Error{Code: http.StatusConflict, Kind: KindHandoverCodeNotReissuable, Message: err.Error()}
	case errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsRequired),
		errors.Is(err, errs.ErrValueIsOutOfRange):
		return Error{Code: http.StatusBadRequest, Kind: KindBadRequest, Message: err.Error()}
	default:
		return Error{Code: http.StatusInternalServerError, Kind: KindInternal, Message: "internal error"}
	}
}

func transitionKind(te *order.TransitionError) string {
	switch {
	case errors.Is(te, order.ErrMissingEvidence):
		return KindMissingEvidence
	case errors.Is(te, order.ErrEvidenceRejected):
		return KindEvidenceRejected
	default:
		return KindInvalidTransition
	}
}

func (s *Server) fail(ctx echo.Context, err error) error {
	body := errorBody(err)
	if body.Code >= http.StatusInternalServerError {
		s.logger.ErrorContext(ctx.Request().Context(), "request failed",
			"route", ctx.Path(),
			"err", err,
		)
	}
	return ctx.JSON(body.Code, body)
}

func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, Error{
		Code:    http.StatusBadRequest,
		Kind:    KindBadRequest,
		Message: message,
	})
}
