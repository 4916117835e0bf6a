// Package telegram is the transport adapter: it turns Telegram updates into
// workflow events and workflow messages back into Telegram sends.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"intakebot/internal/config"
	"intakebot/internal/logger"
	"intakebot/internal/recognizer"
	"intakebot/internal/session"
	"intakebot/internal/telegram/middleware"
	"intakebot/internal/telegram/sender"
	"intakebot/internal/workflow"
	"log/slog"
)

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunTelegram composes and runs the bot until the provided context is done.
func RunTelegram(ctx context.Context, cfg *config.Config, store session.Store, gw recognizer.Gateway) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		return fmt.Errorf("telegram: nil config provided")
	}

	poller := BuildPoller(PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	})

	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: BuildHTTPClient(),
	}

	buildStart := time.Now()
	bot, err := tele.NewBot(settings)
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	buildTook := time.Since(buildStart)

	sendDisp := sender.NewDispatcher(sender.Options{})
	out := NewResponder(bot, sendDisp)
	machine := workflow.NewMachine(store, gw, out)
	events := workflow.NewDispatcher(machine, workflow.Options{})
	handlers := NewHandlers(bot, events, out)

	switch p := poller.(type) {
	case *tele.Webhook:
		logger.TG.LogAttrs(ctx, slog.LevelInfo, "webhook mode",
			slog.String("event", "mode"),
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
	default:
		timeoutSec := 10
		if cfg.Telegram.LongPollTimeoutSeconds > 0 {
			timeoutSec = cfg.Telegram.LongPollTimeoutSeconds
		}
		logger.TG.Info("polling mode",
			slog.String("event", "mode"),
			slog.String("mode", "polling"),
			slog.Int("timeout_seconds", timeoutSec),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)

		if strings.EqualFold(cfg.Telegram.RunMode, config.RunModeLongpoll) {
			if err := deleteWebhook(cfg.Telegram.Token, false); err != nil {
				logger.TG.Warn("failed to delete webhook",
					slog.String("event", "delete_webhook"),
					slog.String("mode", "polling"),
					slog.String("err", err.Error()),
				)
			}
		}
	}

	bot.Use(middleware.RecoverMiddleware)
	bot.Use(middleware.LoggerMiddleware)
	if cfg.RateLimit.IntervalMS > 0 {
		bot.Use(middleware.RateLimitMiddleware(middleware.RateLimitOptions{
			Interval: time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
		}))
	}

	for _, route := range handlers.Routes() {
		bot.Handle(route.Endpoint, route.Handler)
	}

	SetupCommands(bot)

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		runErr = ctx.Err()
	case <-runDone:
	}

	// Drain pending workflow events before tearing down the sender, so late
	// replies still go out.
	events.Close()
	sendDisp.Close()
	if failed := sendDisp.ErrorCount(); failed > 0 {
		logger.TG.Warn("undelivered sends",
			slog.String("event", "sender.errors"),
			slog.Uint64("count", failed),
		)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func deleteWebhook(token string, dropPending bool) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("empty token")
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/deleteWebhook", token)
	body := "drop_pending_updates=false"
	if dropPending {
		body = "drop_pending_updates=true"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deleteWebhook status: %s", resp.Status)
	}
	return nil
}
