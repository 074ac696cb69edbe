package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"tasktrail/ai"
	"tasktrail/board"
	"tasktrail/domain"
)

var (
	errInvalidBody  = errors.New("invalid body")
	errInvalidQuery = errors.New("invalid query")
)

// decodeBody reads a JSON request body of at most maxBodySize bytes.
func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	if err := sonic.ConfigStd.NewDecoder(lr).Decode(v); err != nil {
		return errInvalidBody
	}
	return nil
}

// statusFor maps an error to the HTTP status returned for it.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidBody),
		errors.Is(err, errInvalidQuery),
		errors.Is(err, domain.ErrEmptyTitle),
		errors.Is(err, domain.ErrEmptyName),
		errors.Is(err, domain.ErrInvalidDate):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTaskNotFound), errors.Is(err, domain.ErrStatusNotFound):
		return http.StatusNotFound
	case errors.Is(err, board.ErrNoTransition):
		return http.StatusConflict
	case errors.Is(err, ai.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail writes the error response for err and records it on the request
// metrics under stage.
func fail(c echo.Context, stage string, err error) error {
	return failWith(c, stage, err, err.Error())
}

func failWith(c echo.Context, stage string, err error, msg string) error {
	status := statusFor(err)
	m := metricsFrom(c)
	m.SetErrorStage(stage)
	m.SetError(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{"stage": stage, "route": c.Path(), "user": userFrom(c)}).Error("request failed")
	}
	return c.JSON(status, errorResponse{Error: msg})
}
