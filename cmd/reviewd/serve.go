package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"degree_plan_review/internal/app"
	"degree_plan_review/internal/domain/notification"
	"degree_plan_review/internal/infra/httpapi"
	"degree_plan_review/internal/infra/logger"
	"degree_plan_review/internal/infra/mailer"
	"degree_plan_review/internal/infra/scheduler"
	"degree_plan_review/internal/infra/telegram"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gopkg.in/telebot.v3"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, notification dispatcher, scheduler and bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mainLogger := logger.Component("main")

	st, err := openStores()
	if err != nil {
		return err
	}
	defer st.Close()

	var senders []notification.Sender
	if cfg.SMTP.Enabled() {
		senders = append(senders, mailer.New(cfg.SMTP, logger.Component("mailer")))
		mainLogger.Info("E-mail notices enabled.")
	}

	var bot *telebot.Bot
	if cfg.TelegramToken != "" {
		botLogger := logger.Component("telegram")
		bot, err = telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				entry := botLogger.WithError(err)
				if c != nil && c.Sender() != nil {
					entry = entry.WithField("sender_id", c.Sender().ID).WithField("text", c.Text())
				}
				entry.Error("Telegram handler failed")
			},
		})
		if err != nil {
			return fmt.Errorf("could not create Telegram bot: %w", err)
		}
		senders = append(senders, telegram.NewNotifier(telegram.NewBotClient(bot), botLogger))
		mainLogger.Info("Telegram notices enabled.")
	}

	dispatcher := app.NewDispatcher(logger.Component("dispatcher"), st.users, cfg.NotifyQueueSize, cfg.NotifySendTimeout, senders...)
	dispatcher.Start()
	defer dispatcher.Stop()

	submissions := app.NewSubmissionService(st.reviews, st.plans, st.users, logger.Component("submission"), cfg.TxTimeout)
	reviews := app.NewReviewService(st.reviews, st.plans, dispatcher, logger.Component("review"), cfg.TxTimeout)
	admin := app.NewAdminService(st.reviews, st.users, logger.Component("admin"), cfg.TxTimeout, cfg.AdminTelegramID)

	if cfg.CronSpecReclassify != "" {
		sched := scheduler.NewReclassifyScheduler(admin, logger.Component("scheduler"), cfg.CronSpecReclassify)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	} else {
		mainLogger.Info("CRON_SPEC_RECLASSIFY is empty, scheduled sweep disabled.")
	}

	if bot != nil {
		botLogger := logger.Component("telegram")
		telegram.RegisterBotCommands(bot, telegram.NewBotCommands(ctx, cfg.AdminTelegramID, st.users, submissions, botLogger))
		telegram.RegisterAdminHandlers(bot, telegram.NewAdminHandlers(ctx, admin, botLogger))
		go bot.Start()
		defer bot.Stop()
		mainLogger.Info("Telegram bot started.")
	}

	gin.SetMode(cfg.GinMode)
	handler := httpapi.NewHandler(submissions, reviews, admin, logger.Component("http"))
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(handler, []byte(cfg.JWTSecret), st.users, logger.Component("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening.")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		mainLogger.Info("Shutting down application...")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Error("HTTP server did not shut down cleanly")
	}
	// Deferred stops run in reverse: bot, scheduler, then the dispatcher drains queued notices.
	mainLogger.Info("Application shut down gracefully.")
	return nil
}
