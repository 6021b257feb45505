package telegram

import (
	"context"
	"errors"
	"fmt"

	"degree_plan_review/internal/app"
	"degree_plan_review/internal/domain/review"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// AdminOperations is the part of the admin service exposed over Telegram.
type AdminOperations interface {
	AuthorizeTelegramAdmin(senderTelegramID int64) error
	ReclassifyPendingMentorRequests(ctx context.Context) ([]*review.Request, error)
}

// AdminHandlers serves admin-only bot commands.
type AdminHandlers struct {
	ctx    context.Context
	admin  AdminOperations
	logger *logrus.Entry
}

func NewAdminHandlers(ctx context.Context, admin AdminOperations, baseLogger *logrus.Entry) *AdminHandlers {
	return &AdminHandlers{ctx: ctx, admin: admin, logger: baseLogger}
}

// RegisterAdminHandlers registers handlers for admin commands.
func RegisterAdminHandlers(b *telebot.Bot, h *AdminHandlers) {
	b.Handle("/reclassify", h.handleReclassify)
}

func (h *AdminHandlers) handleReclassify(c telebot.Context) error {
	handlerLogger := h.logger.WithFields(logrus.Fields{
		"handler":   "/reclassify",
		"sender_id": c.Sender().ID,
	})
	handlerLogger.Info("Command received")

	if err := h.admin.AuthorizeTelegramAdmin(c.Sender().ID); err != nil {
		if errors.Is(err, app.ErrAdminNotAuthorized) {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Error: you are not allowed to run this command.")
		}
		handlerLogger.WithError(err).Error("Admin authorization failed")
		return c.Send("Error: could not verify your permissions.")
	}

	updated, err := h.admin.ReclassifyPendingMentorRequests(h.ctx)
	if err != nil {
		handlerLogger.WithError(err).Error("Reclassification sweep failed")
		return c.Send("The reclassification sweep failed. Check the server logs.")
	}

	handlerLogger.WithField("updated", len(updated)).Info("Reclassification sweep finished")
	if len(updated) == 0 {
		return c.Send("No pending mentor reviews needed reclassification.")
	}
	return c.Send(fmt.Sprintf("Moved %d review request(s) to the advisor stage.", len(updated)))
}
