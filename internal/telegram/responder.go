package telegram

import (
	"context"
	"strings"

	tele "gopkg.in/telebot.v4"

	"intakebot/internal/logger"
	"intakebot/internal/telegram/keyboard"
	"intakebot/internal/telegram/sender"
	"intakebot/internal/workflow"
	"log/slog"
)

// responder renders abstract workflow messages into Telegram sends. Delivery
// goes through the async sender; a saturated queue falls back to a direct
// send so the user still gets an answer.
type responder struct {
	bot  *tele.Bot
	disp *sender.Dispatcher
}

// NewResponder builds the outbound sink handed to the workflow machine.
func NewResponder(bot *tele.Bot, disp *sender.Dispatcher) workflow.Responder {
	return &responder{bot: bot, disp: disp}
}

func (r *responder) Send(userID int64, msg workflow.Message) {
	to := tele.ChatID(userID)
	opts := &tele.SendOptions{}
	// Result echoes carry fenced JSON; only those need a parse mode.
	if strings.Contains(msg.Text, "```") {
		opts.ParseMode = tele.ModeMarkdown
	}
	switch {
	case len(msg.Menu) > 0:
		rows := make([][]string, len(msg.Menu))
		for i, option := range msg.Menu {
			rows[i] = []string{option}
		}
		opts.ReplyMarkup = keyboard.ReplyButtons(rows...)
	case msg.HideMenu:
		opts.ReplyMarkup = keyboard.RemoveKeyboard()
	}

	text := msg.Text
	run := func() error {
		_, err := r.bot.Send(to, text, opts)
		return err
	}

	ctx := logger.WithUpdateMeta(context.Background(), 0, userID, userID)
	if err := r.disp.Enqueue(ctx, "send.text", run); err != nil {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		if runErr := run(); runErr != nil {
			logger.Error(ctx, "tg.sender", "send.fail",
				slog.String("status", "fail"),
				slog.Int64("user_id", userID),
				slog.String("err", runErr.Error()),
			)
		}
	}
}
