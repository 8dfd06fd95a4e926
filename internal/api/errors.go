package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ValidationError is a bad or missing request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NotFoundError is an unknown fileId or a missing backing file.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

type errorResponse struct {
	Error string `json:"error"`
}

// jsonErrorHandler renders every handler error, including recovered panics,
// as {"error": "..."} without leaking internals.
func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"

	var validationErr *ValidationError
	var notFoundErr *NotFoundError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &validationErr):
		status, message = http.StatusBadRequest, validationErr.Message
	case errors.As(err, &notFoundErr):
		status, message = http.StatusNotFound, notFoundErr.Message
	case errors.As(err, &httpErr):
		status = httpErr.Code
		if status < http.StatusInternalServerError {
			message = fmt.Sprint(httpErr.Message)
		}
	}
	if status >= http.StatusInternalServerError {
		log.Printf("❌ [ERROR] %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, errorResponse{Error: message})
	}
	if err != nil {
		log.Printf("[ERROR] writing error response: %v", err)
	}
}
