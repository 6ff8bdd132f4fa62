package idempotency

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"
)

type Store interface {
	Key(scope, key string) string
	Reserve(ctx context.Context, key string) (bool, error)
	Load(ctx context.Context, key string) (Response, error)
	Save(ctx context.Context, key string, resp Response) error
	Release(ctx context.Context, key string) error
}

// Middleware applies to requests that carry the Idempotency-Key header; others
// pass through. The key is scoped by method and route path, so one key can
// not replay a response of a different endpoint. Responses with a 5xx status
// are not stored and release the key. A key that expires between the
// reservation attempt and the lookup is reserved again. When Redis is
// unreachable the request is served without idempotency.
func Middleware(store Store, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			clientKey := c.Request().Header.Get(HeaderKey)
			if clientKey == "" {
				return next(c)
			}

			ctx := c.Request().Context()
			key := store.Key(c.Request().Method+" "+c.Request().URL.Path, clientKey)

			reserved, err := store.Reserve(ctx, key)
			if err != nil {
				logger.WarnContext(ctx, "idempotency store unavailable", "err", err)
				return next(c)
			}
			if reserved {
				return serve(c, next, store, key, logger)
			}

			resp, err := store.Load(ctx, key)
			switch {
			case err == nil:
				return replay(c, resp)
			case errors.Is(err, ErrInProgress):
				return inProgress(c, err)
			case errors.Is(err, ErrNotFound):
				// The key expired between Reserve and Load.
				if reserved, err = store.Reserve(ctx, key); err == nil && reserved {
					return serve(c, next, store, key, logger)
				}
				if err == nil {
					return inProgress(c, ErrInProgress)
				}
			}
			logger.WarnContext(ctx, "idempotency store unavailable", "err", err)
			return next(c)
		}
	}
}

// serve runs the handler for a reserved key and stores its response.
func serve(c echo.Context, next echo.HandlerFunc, store Store, key string, logger *slog.Logger) error {
	ctx := c.Request().Context()
	recorder := &bodyRecorder{ResponseWriter: c.Response().Writer}
	c.Response().Writer = recorder

	if handlerErr := next(c); handlerErr != nil {
		c.Error(handlerErr)
	}

	status := c.Response().Status
	if status >= http.StatusInternalServerError {
		if err := store.Release(ctx, key); err != nil {
			logger.WarnContext(ctx, "idempotency key release failed", "key", key, "err", err)
		}
		return nil
	}

	err := store.Save(ctx, key, Response{
		Status:      status,
		ContentType: c.Response().Header().Get(echo.HeaderContentType),
		Body:        recorder.body.Bytes(),
	})
	if err != nil {
		logger.WarnContext(ctx, "idempotent response not stored", "key", key, "err", err)
	}
	return nil
}

func inProgress(c echo.Context, err error) error {
	return c.JSON(http.StatusConflict, echo.Map{
		"code":    http.StatusConflict,
		"kind":    "RequestInProgress",
		"message": err.Error(),
	})
}

func replay(c echo.Context, resp Response) error {
	c.Response().Header().Set(HeaderReplayed, "true")
	if resp.ContentType != "" {
		c.Response().Header().Set(echo.HeaderContentType, resp.ContentType)
	}
	c.Response().WriteHeader(resp.Status)
	_, err := c.Response().Write(resp.Body)
	return err
}

type bodyRecorder struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
