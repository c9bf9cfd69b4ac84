package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/repository"
)

// MessageHandler implements buyer/seller direct messaging.
type MessageHandler struct {
	Messages *repository.MessageRepo
	Users    *repository.UserRepo
}

func NewMessageHandler(m *repository.MessageRepo, u *repository.UserRepo) *MessageHandler {
	return &MessageHandler{Messages: m, Users: u}
}

type sendMessageReq struct {
	ReceiverID uint64  `json:"receiver_id"`
	ListingID  *uint64 `json:"listing_id"`
	Content    string  `json:"content"`
}

// Send delivers a message to another user.
func (h *MessageHandler) Send(c echo.Context) error {
	var req sendMessageReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.ReceiverID == 0 || req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "receiver_id/content required"})
	}
	senderID := getUserID(c)
	if req.ReceiverID == senderID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot message yourself"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, req.ReceiverID); err != nil {
		return errJSON(c, err, "load receiver failed")
	}
	m := model.Message{
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		ListingID:  req.ListingID,
		Content:    req.Content,
	}
	if err := h.Messages.Create(ctx, &m); err != nil {
		return errJSON(c, err, "send failed")
	}
	return c.JSON(http.StatusCreated, m)
}

// Threads returns the caller's inbox, one row per conversation.
func (h *MessageHandler) Threads(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	threads, err := h.Messages.ListThreads(ctx, getUserID(c))
	if err != nil {
		return errJSON(c, err, "list threads failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"threads": threads})
}

// Conversation returns the full exchange with one user and marks incoming
// messages read.
func (h *MessageHandler) Conversation(c echo.Context) error {
	otherID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	msgs, err := h.Messages.ListConversation(ctx, getUserID(c), otherID)
	if err != nil {
		return errJSON(c, err, "load conversation failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

// UnreadCount returns the caller's unread message count for the nav badge.
func (h *MessageHandler) UnreadCount(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.Messages.UnreadCount(ctx, getUserID(c))
	if err != nil {
		return errJSON(c, err, "count failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": n})
}
