package api

import (
	"github.com/labstack/echo/v4"

	xhttp "HyperTrade/pkg/http"
)

// Router registers every API handler on one echo instance.
type Router struct {
	handlers []xhttp.Handler
}

func NewRouter(webhook *WebhookHandler, health *HealthHandler, admin *AdminHandler) *Router {
	return &Router{handlers: []xhttp.Handler{health, webhook, admin}}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		h.RegisterRoutes(e)
	}
}
