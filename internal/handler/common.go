package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/health-tracker/internal/middleware"
	"github.com/iliyamo/health-tracker/internal/repository"
	"github.com/iliyamo/health-tracker/internal/service"
	"github.com/iliyamo/health-tracker/internal/store"
	"github.com/iliyamo/health-tracker/internal/validation"
)

const maxBodyBytes = 1 << 20

var errUnauthenticated = errors.New("unauthenticated")

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Message string                  `json:"message"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
}

// writeError translates a service-level error into an HTTP response.
func writeError(c echo.Context, err error) error {
	var ve *validation.ValidationError
	var se *store.Error
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, errorBody{Message: "validation failed", Errors: ve.Errors})
	case errors.Is(err, errUnauthenticated):
		return c.JSON(http.StatusUnauthorized, errorBody{Message: "unauthorized"})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody{Message: "Record not found"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, errorBody{Message: "email already exists"})
	case errors.As(err, &se):
		return c.JSON(http.StatusInternalServerError, errorBody{Message: se.Message})
	default:
		return c.JSON(http.StatusInternalServerError, errorBody{Message: err.Error()})
	}
}

// ownerID returns the caller id injected by the JWT guard.
func ownerID(c echo.Context) (string, error) {
	id, ok := middleware.CurrentUserID(c)
	if !ok {
		return "", errUnauthenticated
	}
	return id, nil
}

// decodeObject reads the request body as a JSON object. Numbers stay
// json.Number so integer checks are exact. An empty body is an empty object.
func decodeObject(c echo.Context) (map[string]any, error) {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes+1))
	if err != nil {
		return nil, bodyError("could not read request body")
	}
	if len(raw) > maxBodyBytes {
		return nil, bodyError("request body too large")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil || body == nil {
		return nil, bodyError("body must be a JSON object")
	}
	if dec.More() {
		return nil, bodyError("body must contain a single JSON object")
	}
	return body, nil
}

func bodyError(msg string) error {
	return &validation.ValidationError{Errors: []validation.FieldError{{Field: "body", Message: msg}}}
}
