package telegram

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"intakebot/internal/logger"
	"log/slog"
)

// SetupCommands publishes the command menu shown by Telegram clients.
func SetupCommands(bot *tele.Bot) {
	cmds := []tele.Command{
		{Text: "/start", Description: "Начать новую сессию"},
		{Text: "/status", Description: "Показать текущий этап"},
		{Text: "/cancel", Description: "Сбросить сессию"},
	}
	if err := bot.SetCommands(cmds); err != nil {
		logger.TG.LogAttrs(context.Background(), slog.LevelWarn, "commands setup failed",
			slog.String("event", "register.commands"),
			slog.String("err", err.Error()),
		)
	}
}
