package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RateLimit rejects requests once limiter's bucket is empty.
func RateLimit(limiter *rate.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Allow() {
				return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "Rate limit exceeded"})
			}
			return next(c)
		}
	}
}

func corsConfig() middleware.CORSConfig {
	return middleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderContentType, echo.HeaderAuthorization, "Range"},
		ExposeHeaders: []string{echo.HeaderContentDisposition, echo.HeaderContentLength, "Content-Range", "Accept-Ranges"},
	}
}
