// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"degree_plan_review/internal/app"
	"degree_plan_review/internal/domain/review"
	"degree_plan_review/internal/domain/user"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// PlanStatusReader is the read side used by /status.
type PlanStatusReader interface {
	PlanReviewStatus(ctx context.Context, degreePlanID, requesterID int64, requesterRole user.Role) (*app.PlanStatus, error)
}

// BotCommands serves the commands available to every linked user.
type BotCommands struct {
	ctx             context.Context
	adminTelegramID int64
	users           user.Repository
	plans           PlanStatusReader
	logger          *logrus.Entry
}

func NewBotCommands(ctx context.Context, adminTelegramID int64, users user.Repository, plans PlanStatusReader, baseLogger *logrus.Entry) *BotCommands {
	return &BotCommands{
		ctx:             ctx,
		adminTelegramID: adminTelegramID,
		users:           users,
		plans:           plans,
		logger:          baseLogger.WithField("handler_group", "start_help_status"),
	}
}

// RegisterBotCommands wires /start, /help and /status into the bot.
func RegisterBotCommands(b *telebot.Bot, h *BotCommands) {
	b.Handle("/start", h.handleStart)
	b.Handle("/help", h.handleHelp)
	b.Handle("/status", h.handleStatus)
}

func (h *BotCommands) handleStart(c telebot.Context) error {
	senderID := c.Sender().ID
	logCtx := h.logger.WithField("command", "/start").WithField("sender_id", senderID)
	logCtx.Info("Processing /start command")

	if senderID == h.adminTelegramID {
		logCtx.Info("User identified as Admin")
		return c.Send(fmt.Sprintf("Hello, administrator %s! Use /help to see the available commands.", c.Sender().FirstName))
	}

	u, err := h.users.GetByTelegramID(h.ctx, senderID)
	if err == nil {
		logCtx.WithField("user_id", u.ID).Info("User identified")
		return c.Send(fmt.Sprintf("Hello, %s! I will message you when a reviewer acts on your degree plan.", u.FirstName))
	} else if !errors.Is(err, user.ErrUserNotFound) {
		logCtx.WithError(err).Error("Error checking user for /start command")
		return c.Send("Something went wrong while checking your account. Please try again later.")
	}

	logCtx.Info("User is unknown")
	return c.Send("Hello! This bot reports degree plan review results. Ask your advising office to link your Telegram account.")
}

func (h *BotCommands) handleHelp(c telebot.Context) error {
	senderID := c.Sender().ID
	logCtx := h.logger.WithField("command", "/help").WithField("sender_id", senderID)
	logCtx.Info("Processing /help command")

	var helpText strings.Builder
	helpText.WriteString("Available commands:\n\n")
	helpText.WriteString("/status <planID> - show the review status of a degree plan.\n")
	if senderID == h.adminTelegramID {
		helpText.WriteString("/reclassify - move pending mentor reviews of juniors and seniors to their advisor.\n")
	}
	helpText.WriteString("/help - show this message.")
	return c.Send(helpText.String())
}

func (h *BotCommands) handleStatus(c telebot.Context) error {
	senderID := c.Sender().ID
	logCtx := h.logger.WithField("command", "/status").WithField("sender_id", senderID)

	args := c.Args()
	if len(args) != 1 {
		logCtx.WithField("args_count", len(args)).Warn("Invalid command format")
		return c.Send("Usage: /status <planID>")
	}
	planID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || planID <= 0 {
		return c.Send("Error: planID must be a positive number.")
	}
	logCtx = logCtx.WithField("degree_plan_id", planID)

	u, err := h.users.GetByTelegramID(h.ctx, senderID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			logCtx.Info("Unknown user requested status")
			return c.Send("Your Telegram account is not linked to a student or reviewer.")
		}
		logCtx.WithError(err).Error("Error looking up user for /status command")
		return c.Send("Something went wrong while checking your account. Please try again later.")
	}

	status, err := h.plans.PlanReviewStatus(h.ctx, planID, u.ID, u.Role)
	if err != nil {
		if errors.Is(err, review.ErrNotFound) {
			return c.Send("Degree plan not found.")
		}
		logCtx.WithError(err).Error("Failed to load plan review status")
		return c.Send("Could not load the review status. Please try again later.")
	}

	logCtx.Info("Plan status sent")
	return c.Send(FormatPlanStatus(status))
}

// FormatPlanStatus renders a plan status as plain text, one line per semester request.
func FormatPlanStatus(status *app.PlanStatus) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Degree plan %d\n", status.DegreePlanID)
	if len(status.Requests) == 0 {
		sb.WriteString("No semesters have been submitted for review.")
		return sb.String()
	}
	for _, r := range status.Requests {
		fmt.Fprintf(&sb, "- semester %d: %s", r.PlanSemesterID, r.Status)
		if r.RejectionReason != nil {
			fmt.Fprintf(&sb, " (%s)", *r.RejectionReason)
		}
		sb.WriteString("\n")
	}
	if status.FullyApproved {
		sb.WriteString("The plan is fully approved.")
	} else {
		sb.WriteString("The plan is not fully approved yet.")
	}
	return sb.String()
}
