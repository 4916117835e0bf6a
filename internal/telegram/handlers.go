package telegram

import (
	"errors"
	"io"
	"strings"

	tele "gopkg.in/telebot.v4"

	"intakebot/internal/logger"
	"intakebot/internal/session"
	tghelpers "intakebot/internal/telegram/helpers"
	"intakebot/internal/workflow"
	"log/slog"
)

// maxInboundFileBytes caps downloaded photo/voice payloads.
const maxInboundFileBytes = 10 << 20

const msgDownloadFailed = "❌ Не удалось загрузить файл. Отправьте его ещё раз."

// Handlers translates Telegram updates into workflow events.
type Handlers struct {
	bot    *tele.Bot
	events *workflow.Dispatcher
	out    workflow.Responder
}

// NewHandlers wires the inbound side of the transport adapter.
func NewHandlers(bot *tele.Bot, events *workflow.Dispatcher, out workflow.Responder) *Handlers {
	return &Handlers{bot: bot, events: events, out: out}
}

// Routes returns every endpoint the bot handles.
func (h *Handlers) Routes() []Route {
	return []Route{
		{Endpoint: "/start", Handler: h.onStart},
		{Endpoint: "/cancel", Handler: h.onCancel},
		{Endpoint: "/status", Handler: h.onStatus},
		{Endpoint: tele.OnPhoto, Handler: h.onPhoto},
		{Endpoint: tele.OnVoice, Handler: h.onVoice},
		{Endpoint: tele.OnText, Handler: h.onText},
	}
}

func (h *Handlers) onStart(c tele.Context) error {
	tghelpers.WithHandler(c, "start")
	return h.submit(c, workflow.Event{Kind: workflow.EventStart, UserID: c.Sender().ID})
}

func (h *Handlers) onCancel(c tele.Context) error {
	tghelpers.WithHandler(c, "cancel")
	return h.submit(c, workflow.Event{Kind: workflow.EventCancel, UserID: c.Sender().ID})
}

func (h *Handlers) onStatus(c tele.Context) error {
	tghelpers.WithHandler(c, "status")
	return h.submit(c, workflow.Event{Kind: workflow.EventStatus, UserID: c.Sender().ID})
}

func (h *Handlers) onPhoto(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "photo")
	photo := c.Message().Photo
	if photo == nil {
		return nil
	}

	// Telebot already resolves the largest size into Photo.
	data, err := h.download(&photo.File)
	if err != nil {
		logger.Error(ctx, "tg", "file.download",
			slog.String("status", "fail"),
			slog.Int64("user_id", c.Sender().ID),
			slog.String("err", err.Error()),
		)
		h.out.Send(c.Sender().ID, workflow.Message{Text: msgDownloadFailed})
		return nil
	}

	return h.submit(c, workflow.Event{
		Kind:    workflow.EventPhoto,
		UserID:  c.Sender().ID,
		Payload: data,
	})
}

func (h *Handlers) onVoice(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "voice")
	voice := c.Message().Voice
	if voice == nil {
		return nil
	}

	data, err := h.download(&voice.File)
	if err != nil {
		logger.Error(ctx, "tg", "file.download",
			slog.String("status", "fail"),
			slog.Int64("user_id", c.Sender().ID),
			slog.String("err", err.Error()),
		)
		h.out.Send(c.Sender().ID, workflow.Message{Text: msgDownloadFailed})
		return nil
	}

	return h.submit(c, workflow.Event{
		Kind:    workflow.EventVoice,
		UserID:  c.Sender().ID,
		Payload: data,
	})
}

// onText maps menu button presses back to their events; anything else flows
// through as free text.
func (h *Handlers) onText(c tele.Context) error {
	tghelpers.WithHandler(c, "text")
	userID := c.Sender().ID

	switch strings.TrimSpace(c.Text()) {
	case workflow.ButtonPassport:
		return h.submit(c, workflow.Event{Kind: workflow.EventSelect, UserID: userID, Document: session.DocumentPassport})
	case workflow.ButtonLicense:
		return h.submit(c, workflow.Event{Kind: workflow.EventSelect, UserID: userID, Document: session.DocumentLicense})
	case workflow.ButtonPatent:
		return h.submit(c, workflow.Event{Kind: workflow.EventSelect, UserID: userID, Document: session.DocumentPatent})
	case workflow.ButtonBack:
		return h.submit(c, workflow.Event{Kind: workflow.EventBackToMenu, UserID: userID})
	default:
		return h.submit(c, workflow.Event{Kind: workflow.EventText, UserID: userID, Text: c.Text()})
	}
}

func (h *Handlers) submit(c tele.Context, ev workflow.Event) error {
	ctx := tghelpers.BuildContext(c)
	if err := h.events.Submit(ctx, ev); err != nil {
		if errors.Is(err, workflow.ErrQueueFull) {
			h.out.Send(ev.UserID, workflow.Message{Text: workflow.MsgBusy})
			return nil
		}
		return err
	}
	return nil
}

func (h *Handlers) download(f *tele.File) ([]byte, error) {
	rc, err := h.bot.File(f)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxInboundFileBytes))
}
