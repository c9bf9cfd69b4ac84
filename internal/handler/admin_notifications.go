package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/queue"
	"github.com/repart/marketplace/internal/repository"
	"github.com/repart/marketplace/internal/service"
)

// AdminNotificationHandler implements broadcast drafting and sending.
// Sending only publishes an event; the queue consumer resolves the
// audience and performs the per-recipient delivery.
type AdminNotificationHandler struct {
	Notifications *repository.NotificationRepo
	Audit         *repository.AuditRepo
	Log           *zap.Logger
}

func NewAdminNotificationHandler(n *repository.NotificationRepo, a *repository.AuditRepo, log *zap.Logger) *AdminNotificationHandler {
	return &AdminNotificationHandler{Notifications: n, Audit: a, Log: log}
}

type notificationReq struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Channel  string `json:"channel"`
	Audience string `json:"audience"`
}

// Create stores a draft broadcast.
func (h *AdminNotificationHandler) Create(c echo.Context) error {
	var req notificationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Message = strings.TrimSpace(req.Message)
	if req.Title == "" || req.Message == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title/message required"})
	}
	switch req.Channel {
	case model.ChannelPush, model.ChannelSMS, model.ChannelBoth:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid channel"})
	}
	switch req.Audience {
	case model.AudienceAll, model.AudienceBuyers, model.AudienceSellers:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid audience"})
	}

	n := model.SystemNotification{
		Title:     req.Title,
		Message:   req.Message,
		Channel:   req.Channel,
		Audience:  req.Audience,
		CreatedBy: getUserID(c),
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Notifications.Create(ctx, &n); err != nil {
		return errJSON(c, err, "create notification failed")
	}
	recordAudit(c, h.Audit, h.Log, "notifications.create", "notification", n.ID,
		echo.Map{"channel": n.Channel, "audience": n.Audience})
	return c.JSON(http.StatusCreated, n)
}

// List returns past and draft broadcasts.
func (h *AdminNotificationHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Notifications.List(ctx, queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		return errJSON(c, err, "list notifications failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": list})
}

// Recipients returns the per-recipient delivery record of a broadcast.
func (h *AdminNotificationHandler) Recipients(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	recips, err := h.Notifications.ListRecipients(ctx, id)
	if err != nil {
		return errJSON(c, err, "list recipients failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"recipients": recips})
}

// Send publishes the broadcast event for a draft.  Delivery is
// asynchronous, so the response is 202 and the broadcast stays draft until
// the consumer finishes the audience and marks it sent.
func (h *AdminNotificationHandler) Send(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	n, err := h.Notifications.GetByID(ctx, id)
	if err != nil {
		return errJSON(c, err, "load notification failed")
	}
	if n.Status != model.NotificationDraft {
		return errJSON(c, repository.ErrConflict, "")
	}

	event := queue.NotificationBroadcastEvent{
		NotificationID: n.ID,
		Title:          n.Title,
		Message:        n.Message,
		Channel:        n.Channel,
		Audience:       n.Audience,
		RequestedBy:    getUserID(c),
		RequestedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := service.Publish(ctx, h.Log, queue.NotificationQueueName, event); err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "broker unavailable"})
	}
	recordAudit(c, h.Audit, h.Log, "notifications.send", "notification", n.ID,
		echo.Map{"channel": n.Channel, "audience": n.Audience})
	return c.JSON(http.StatusAccepted, echo.Map{"ok": true})
}
