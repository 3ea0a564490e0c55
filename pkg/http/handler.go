package http

import "github.com/labstack/echo/v4"

// Handler is anything the server can mount routes from.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
