package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	applogger "SignalForge/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover converts handler panics into 500 responses instead of killing
// the process.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("%v", r)
				}
				if l != nil {
					l.Error("handler panic",
						applogger.Error(err),
						applogger.String("path", c.Request().RequestURI),
						applogger.String("stack", string(debug.Stack())),
					)
				}
				_ = c.JSON(http.StatusInternalServerError, map[string]interface{}{
					"status":  http.StatusInternalServerError,
					"message": "Internal Server Error",
				})
			}()
			return next(c)
		}
	}
}
