package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"HyperTrade/internal/domain/models"
	"HyperTrade/internal/service/guard"
	"HyperTrade/internal/usecase"
	xhttp "HyperTrade/pkg/http"
	"HyperTrade/pkg/http/middleware"
	applogger "HyperTrade/pkg/logger"
)

// Relay is the webhook pipeline.
type Relay interface {
	Handle(ctx context.Context, r *http.Request, requestID string) usecase.Outcome
}

// WebhookAck is the body of every 200 answer. Exchange detail never leaves
// the audit log.
type WebhookAck struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
}

// WebhookHandler serves POST /webhook.
type WebhookHandler struct {
	relay   Relay
	guard   *guard.Guard
	limiter middleware.Limiter
	logger  *applogger.Logger
}

// NewWebhookHandler builds the handler. limiter may be nil to disable rate
// limiting.
func NewWebhookHandler(relay Relay, g *guard.Guard, limiter middleware.Limiter, logger *applogger.Logger) *WebhookHandler {
	return &WebhookHandler{relay: relay, guard: g, limiter: limiter, logger: logger}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: h.limiter,
			KeyFunc: func(c echo.Context) string { return h.guard.ClientIP(c.Request()) },
			Skip:    func(c echo.Context) bool { return h.guard.RateLimitExempt(h.guard.ClientIP(c.Request())) },
			OnLimited: func(c echo.Context, retryAfter time.Duration) error {
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded").
					WithParam("retry_after_ms", retryAfter.Milliseconds()))
			},
		}))
	}
	e.POST("/webhook", h.Webhook, mw...)
}

func (h *WebhookHandler) Webhook(c echo.Context) error {
	requestID := middleware.RequestID(c)
	out := h.relay.Handle(c.Request().Context(), c.Request(), requestID)

	switch out.Decision {
	case models.DecisionAccepted:
		return xhttp.SuccessResponse(c, WebhookAck{Status: "ok", RequestID: requestID})
	case models.DecisionIgnored, models.DecisionRejected, models.DecisionFailed, models.DecisionDuplicate:
		return xhttp.SuccessResponse(c, WebhookAck{Status: "ignored", RequestID: requestID})
	}
	return xhttp.AppErrorResponse(c, toAppError(out.Err))
}

// toAppError maps a pipeline error to its HTTP answer.
func toAppError(err error) *xhttp.AppError {
	var re *models.RelayError
	if !errors.As(err, &re) {
		return xhttp.InternalError("internal error")
	}

	switch re.Kind {
	case models.KindTransport:
		switch re.Code {
		case models.CodeUnsupportedMediaType:
			return xhttp.UnsupportedMediaTypeError(re.Reason)
		case models.CodePayloadTooLarge:
			return xhttp.PayloadTooLargeError(re.Reason)
		}
		return xhttp.BadRequestError(re.Reason)
	case models.KindAuth:
		if re.Code == models.CodeForbidden {
			return xhttp.ForbiddenError(re.Reason)
		}
		return xhttp.UnauthorizedError(re.Reason)
	case models.KindSchema:
		return xhttp.UnprocessableError(re.Field, re.Reason)
	case models.KindParse:
		appErr := xhttp.NewAppError("ERR_PARSE", re.Field, re.Reason, http.StatusBadRequest)
		if re.Value != "" {
			appErr = appErr.WithParam("value", re.Value)
		}
		return appErr
	}
	return xhttp.InternalError("internal error")
}
