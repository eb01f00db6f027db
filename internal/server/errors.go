package server

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// JSONErrorHandler returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s, auth and rate-limit rejections) have
// consistent JSON format
func JSONErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		// Don't send response if already committed
		if c.Response().Committed {
			return
		}

		// Handle Echo HTTP errors (like 404, 401, 429)
		if he, ok := err.(*echo.HTTPError); ok {
			resp := ErrorResponse{Error: http.StatusText(he.Code), Code: he.Code}
			if msg := fmt.Sprint(he.Message); msg != resp.Error {
				resp.Message = msg
			}
			_ = c.JSON(he.Code, resp)
			return
		}

		// Handle all other errors as internal server error
		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "UNEXPECTED",
			Code:  http.StatusInternalServerError,
		})
	}
}
