package api

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"HyperTrade/internal/domain/models"
	drepo "HyperTrade/internal/domain/repository"
	"HyperTrade/internal/service/guard"
	"HyperTrade/internal/service/notify"
	xhttp "HyperTrade/pkg/http"
	applogger "HyperTrade/pkg/logger"
)

// TelegramSettings is the runtime-configurable notification channel.
type TelegramSettings interface {
	Settings() notify.TelegramSettings
	Update(req models.TelegramSettingsRequest) (notify.TelegramSettings, error)
}

// AdminHandler serves /admin, authenticated with the webhook secret as a
// Bearer token.
type AdminHandler struct {
	guard    *guard.Guard
	store    drepo.AuditStore
	telegram TelegramSettings
	logger   *applogger.Logger
}

func NewAdminHandler(g *guard.Guard, store drepo.AuditStore, telegram TelegramSettings, logger *applogger.Logger) *AdminHandler {
	return &AdminHandler{guard: g, store: store, telegram: telegram, logger: logger}
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/admin", h.authenticate)
	g.GET("/orders", h.Orders)
	g.GET("/stats", h.Stats)
	g.GET("/telegram", h.Telegram)
	g.POST("/telegram", h.UpdateTelegram)
}

func (h *AdminHandler) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok && h.guard.SecretConfigured() {
			return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError("missing bearer token"))
		}
		if err := h.guard.AuthorizeToken(strings.TrimSpace(token)); err != nil {
			h.logger.Warn("admin auth failed",
				applogger.String("path", c.Path()),
				applogger.String("client_ip", h.guard.ClientIP(c.Request())))
			return xhttp.AppErrorResponse(c, toAppError(err))
		}
		return next(c)
	}
}

// Orders lists recent audit records, newest first.
func (h *AdminHandler) Orders(c echo.Context) error {
	req := &models.OrdersQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.store.Query(c.Request().Context(), models.AuditFilter{
		Limit:    req.Limit,
		Decision: models.Decision(req.Decision),
		Symbol:   req.Symbol,
	})
	if err != nil {
		h.logger.Error("admin orders query error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("audit store unavailable").WithError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *AdminHandler) Stats(c echo.Context) error {
	stats, err := h.store.Stats(c.Request().Context())
	if err != nil {
		h.logger.Error("admin stats error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("audit store unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, stats)
}

func (h *AdminHandler) Telegram(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.telegram.Settings().Masked())
}

// UpdateTelegram enables, disables or rotates the notification channel.
func (h *AdminHandler) UpdateTelegram(c echo.Context) error {
	req := &models.TelegramSettingsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	settings, err := h.telegram.Update(*req)
	if errors.Is(err, notify.ErrCredentialsRequired) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not update telegram settings").WithError(err))
	}

	h.logger.Info("telegram settings updated", applogger.Bool("enabled", settings.Enabled))
	return xhttp.SuccessResponse(c, settings.Masked())
}
