package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

type errorBody struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// detailer is implemented by every typed error in pkg/errors. It doubles as
// the marker that an error belongs to the domain set.
type detailer interface {
	Details() map[string]any
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := describe(err)
	if status >= http.StatusInternalServerError {
		s.log.Errorf(err, "request failed: %s %s", c.Request().Method, c.Request().URL.Path)
	} else {
		s.log.Warnf("request rejected: %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if writeErr := c.JSON(status, errorEnvelope{Error: body}); writeErr != nil {
		s.log.Errorf(writeErr, "writing error response")
	}
}

// describe maps an error onto a status code and the wire envelope body.
func describe(err error) (int, errorBody) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorBody{Type: "HTTPError", Message: fmt.Sprint(he.Message)}
	}

	if domain := domainError(err); domain != nil {
		body := errorBody{Type: rferrors.TypeName(domain), Message: domain.Error()}
		var d detailer
		if errors.As(domain, &d) {
			body.Details = d.Details()
		}
		return statusFor(domain), body
	}

	return http.StatusInternalServerError, errorBody{
		Type:    "InternalServerError",
		Message: "an unexpected error occurred",
		Details: map[string]any{"error_class": rferrors.TypeName(err)},
	}
}

// domainError returns the first typed error in the chain, or nil.
func domainError(err error) error {
	var d detailer
	if errors.As(err, &d) {
		if e, ok := d.(error); ok {
			return e
		}
	}
	return nil
}

// statusFor maps the typed error set onto HTTP statuses: validation and
// circularity 400, missing resources 404, duplicates 409, device
// connectivity 503, everything else 500.
func statusFor(err error) int {
	var (
		validation *rferrors.ValidationError
		circular   *rferrors.CircularDependencyError
		reference  *rferrors.CircularReferenceError
		state      *rferrors.InvalidStateError
		pluginCfg  *rferrors.PluginConfigError
		notFound   *rferrors.NotFoundError
		exists     *rferrors.AlreadyExistsError
		connection *rferrors.DeviceConnectionError
		notConn    *rferrors.DeviceNotConnectedError
	)

	switch {
	case errors.As(err, &validation), errors.As(err, &circular), errors.As(err, &reference),
		errors.As(err, &state), errors.As(err, &pluginCfg):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &exists):
		return http.StatusConflict
	case errors.As(err, &connection), errors.As(err, &notConn):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
