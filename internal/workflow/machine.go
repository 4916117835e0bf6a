package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"intakebot/internal/logger"
	"intakebot/internal/normalize"
	"intakebot/internal/recognizer"
	"intakebot/internal/session"
	"log/slog"
)

// Machine owns all conversation transitions. It is safe for concurrent use
// across users as long as events for one user are handed to it serially,
// which the Dispatcher guarantees.
type Machine struct {
	store session.Store
	gw    recognizer.Gateway
	out   Responder
}

// NewMachine wires the state machine to its session store, recognition
// gateway and outbound sink.
func NewMachine(store session.Store, gw recognizer.Gateway, out Responder) *Machine {
	return &Machine{store: store, gw: gw, out: out}
}

// Handle processes one inbound event to completion, including any gateway
// call it triggers. Blocking here is fine: the dispatcher queues the rest of
// the user's events behind it.
func (m *Machine) Handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventStart, EventBackToMenu:
		m.restart(ctx, ev.UserID)
	case EventCancel:
		m.cancel(ctx, ev.UserID)
	case EventSelect:
		m.selectType(ctx, ev)
	case EventPhoto:
		m.photo(ctx, ev)
	case EventVoice:
		m.voice(ctx, ev)
	case EventText:
		m.text(ev)
	case EventStatus:
		m.status(ev)
	}
}

func (m *Machine) restart(ctx context.Context, userID int64) {
	s := m.store.Create(userID)
	logger.Info(ctx, "wf", "session.start",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("state", string(s.State)),
	)
	m.sendMenu(userID)
}

func (m *Machine) cancel(ctx context.Context, userID int64) {
	m.store.Remove(userID)
	logger.Info(ctx, "wf", "session.cancel",
		slog.String("status", "cancelled"),
		slog.Int64("user_id", userID),
	)
	// The session is gone, so the old document-type keyboard goes with it.
	m.out.Send(userID, Message{Text: msgCancelled, HideMenu: true})
}

func (m *Machine) selectType(ctx context.Context, ev Event) {
	s, ok := m.store.Get(ev.UserID)
	if !ok {
		m.out.Send(ev.UserID, Message{Text: msgNoSession})
		return
	}
	if s.State != session.StateSelectingDocumentType {
		m.guide(s)
		return
	}

	var to session.State
	var prompt string
	switch ev.Document {
	case session.DocumentPassport:
		to, prompt = session.StateTakingPassportPhoto, msgSendPassport
	case session.DocumentLicense:
		to, prompt = session.StateTakingLicenseFront, msgSendLicenseFront
	case session.DocumentPatent:
		to, prompt = session.StateTakingPatentPhoto, msgSendPatent
	default:
		m.sendMenu(ev.UserID)
		return
	}

	from := s.State
	s.DocumentType = ev.Document
	s.State = to
	s.Touch()
	m.store.Put(s)
	m.logTransition(ctx, s, from)
	m.out.Send(ev.UserID, Message{Text: prompt, Menu: []string{ButtonBack}})
}

func (m *Machine) photo(ctx context.Context, ev Event) {
	s, ok := m.store.Get(ev.UserID)
	if !ok {
		m.out.Send(ev.UserID, Message{Text: msgNoSession})
		return
	}

	switch s.State {
	case session.StateTakingPassportPhoto, session.StateTakingPatentPhoto:
		m.recognizeSingle(ctx, s, ev.Payload)
	case session.StateTakingLicenseFront:
		from := s.State
		s.Images = [][]byte{ev.Payload}
		s.State = session.StateTakingLicenseBack
		s.Touch()
		m.store.Put(s)
		m.logTransition(ctx, s, from)
		m.out.Send(s.UserID, Message{Text: msgSendLicenseBack, Menu: []string{ButtonBack}})
	case session.StateTakingLicenseBack:
		m.recognizeLicense(ctx, s, ev.Payload)
	case session.StateSelectingDocumentType:
		m.out.Send(s.UserID, Message{Text: msgSelectTypeGuidance})
	default:
		m.out.Send(s.UserID, Message{Text: msgAwaitVoiceGuidance})
	}
}

// recognizeSingle runs the one-image flows: passport and patent. On failure
// the image is discarded and the state stays, so the user just sends a new
// photo.
func (m *Machine) recognizeSingle(ctx context.Context, s *session.UserSession, image []byte) {
	m.out.Send(s.UserID, Message{Text: msgRecognizingDocument})

	var rec session.DocumentRecord
	var err error
	if s.DocumentType == session.DocumentPassport {
		var fields *recognizer.PassportFields
		fields, err = m.gw.RecognizePassport(ctx, image)
		if err == nil {
			rec = &session.PassportRecord{
				LastName:    fields.LastName,
				FirstName:   fields.FirstName,
				MiddleName:  fields.MiddleName,
				BirthDate:   fields.BirthDate,
				BirthPlace:  fields.BirthPlace,
				Number:      fields.PassportNumber,
				Citizenship: fields.Citizenship,
			}
		}
	} else {
		var fields *recognizer.PatentFields
		fields, err = m.gw.RecognizePatent(ctx, image)
		if err == nil {
			rec = &session.PatentRecord{
				FullName:    fields.FullName,
				Citizenship: fields.Citizenship,
				Number:      fields.DocumentNumber,
			}
		}
	}
	if err != nil {
		m.reportDocumentFailure(ctx, s, err)
		return
	}
	m.acceptDocument(ctx, s, rec)
}

// recognizeLicense runs once the back side arrives. Failure throws both
// captured sides away and sends the user back to the front side, the sides
// have to match within one recognition attempt.
func (m *Machine) recognizeLicense(ctx context.Context, s *session.UserSession, back []byte) {
	front := s.Images[0]
	s.Images = append(s.Images, back)
	s.Touch()
	m.store.Put(s)

	m.out.Send(s.UserID, Message{Text: msgRecognizingDocument})

	fields, err := m.gw.RecognizeLicense(ctx, front, back)
	if err != nil {
		from := s.State
		s.ClearImages()
		s.State = session.StateTakingLicenseFront
		s.Touch()
		m.store.Put(s)
		m.logTransition(ctx, s, from)
		m.out.Send(s.UserID, Message{
			Text: m.failureText(ctx, s, err, msgDocumentRejected, msgDocumentFailed) +
				"\n" + msgLicenseRecapture + "\n" + msgSendLicenseFront,
			Menu: []string{ButtonBack},
		})
		return
	}
	m.acceptDocument(ctx, s, &session.LicenseRecord{
		FullName: fields.FullName,
		Number:   fields.LicenseNumber,
	})
}

func (m *Machine) acceptDocument(ctx context.Context, s *session.UserSession, rec session.DocumentRecord) {
	from := s.State
	s.Document = rec
	s.ClearImages()
	s.State = session.StateTakingVoice
	s.Touch()
	m.store.Put(s)
	m.logTransition(ctx, s, from)
	m.out.Send(s.UserID, Message{
		Text: fmt.Sprintf(msgDocumentRecognized, renderJSON(rec)),
		Menu: []string{ButtonBack},
	})
}

func (m *Machine) reportDocumentFailure(ctx context.Context, s *session.UserSession, err error) {
	text := m.failureText(ctx, s, err, msgDocumentRejected, msgDocumentFailed)
	m.out.Send(s.UserID, Message{
		Text: text + "\n" + promptFor(s.State),
		Menu: []string{ButtonBack},
	})
}

// failureText picks the user-facing wording for a gateway error. Rejections
// carry the remote's own message verbatim; transport and decode problems are
// unexpected, so they get logged and reported generically.
func (m *Machine) failureText(ctx context.Context, s *session.UserSession, err error, rejectedFmt, genericMsg string) string {
	if recognizer.KindOf(err) == recognizer.RemoteRejected {
		return fmt.Sprintf(rejectedFmt, recognizer.ReasonOf(err))
	}
	logger.Error(ctx, "wf", "recognize.unexpected",
		slog.String("status", "fail"),
		slog.Int64("user_id", s.UserID),
		slog.String("state", string(s.State)),
		slog.String("err_kind", string(recognizer.KindOf(err))),
		slog.String("err", err.Error()),
	)
	return genericMsg
}

func (m *Machine) voice(ctx context.Context, ev Event) {
	s, ok := m.store.Get(ev.UserID)
	if !ok {
		m.out.Send(ev.UserID, Message{Text: msgNoSession})
		return
	}
	if s.State != session.StateTakingVoice || s.Document == nil {
		m.guide(s)
		return
	}

	m.out.Send(s.UserID, Message{Text: msgProcessingVoice})

	fields, err := m.gw.RecognizeAudio(ctx, ev.Payload)
	if err != nil {
		// Record and any images survive; the user just retries the voice note.
		text := m.failureText(ctx, s, err, msgAudioRejected, msgAudioFailed)
		m.out.Send(s.UserID, Message{Text: text + "\n" + msgSendVoice})
		return
	}

	bank := strings.TrimSpace(fields.BankName)
	if bank == "" {
		bank = msgBankUnknown
	}
	res := FinalResult{
		ID:             uuid.NewString(),
		UserID:         s.UserID,
		FullName:       s.Document.DisplayName(),
		DocumentNumber: s.Document.DocumentNumber(),
		DocumentType:   string(s.DocumentType),
		BankName:       bank,
		PhoneNumber:    normalize.Phone(fields.PhoneNumber),
		CreatedAt:      time.Now().UTC(),
	}

	logger.Info(ctx, "wf", "intake.complete",
		slog.String("status", "ok"),
		slog.Int64("user_id", s.UserID),
		slog.String("document_type", string(s.DocumentType)),
	)
	m.out.Send(s.UserID, Message{Text: fmt.Sprintf(msgFinalResult, renderJSON(res))})

	m.store.Remove(s.UserID)
	m.store.Create(s.UserID)
	m.sendMenu(s.UserID)
}

func (m *Machine) text(ev Event) {
	s, ok := m.store.Get(ev.UserID)
	if !ok {
		m.out.Send(ev.UserID, Message{Text: msgNoSession})
		return
	}
	if s.State == session.StateSelectingDocumentType {
		m.out.Send(ev.UserID, Message{Text: msgTextGuidance})
		return
	}
	m.guide(s)
}

func (m *Machine) status(ev Event) {
	s, ok := m.store.Get(ev.UserID)
	if !ok {
		m.out.Send(ev.UserID, Message{Text: msgNoSession})
		return
	}
	var text string
	switch s.State {
	case session.StateSelectingDocumentType:
		text = msgStatusSelecting
	case session.StateTakingLicenseFront:
		text = msgStatusLicenseFront
	case session.StateTakingLicenseBack:
		text = msgStatusLicenseBack
	case session.StateTakingVoice:
		text = fmt.Sprintf(msgStatusVoice, s.Document.DisplayName())
	default:
		text = msgStatusPhoto
	}
	m.out.Send(ev.UserID, Message{Text: text})
}

// guide answers an event that does not fit the current state. State stays
// untouched and nothing is logged; this is user behavior, not a failure.
func (m *Machine) guide(s *session.UserSession) {
	switch s.State {
	case session.StateSelectingDocumentType:
		m.out.Send(s.UserID, Message{Text: msgSelectTypeGuidance})
	case session.StateTakingVoice:
		m.out.Send(s.UserID, Message{Text: msgAwaitVoiceGuidance})
	default:
		m.out.Send(s.UserID, Message{Text: msgAwaitPhotoGuidance})
	}
}

func (m *Machine) sendMenu(userID int64) {
	m.out.Send(userID, Message{
		Text: msgChooseType,
		Menu: []string{ButtonPassport, ButtonLicense, ButtonPatent},
	})
}

func (m *Machine) logTransition(ctx context.Context, s *session.UserSession, from session.State) {
	logger.Info(ctx, "wf", "state.transition",
		slog.String("status", "ok"),
		slog.Int64("user_id", s.UserID),
		slog.String("document_type", string(s.DocumentType)),
		slog.String("from_state", string(from)),
		slog.String("to_state", string(s.State)),
	)
}

func promptFor(st session.State) string {
	switch st {
	case session.StateTakingPassportPhoto:
		return msgSendPassport
	case session.StateTakingLicenseFront:
		return msgSendLicenseFront
	case session.StateTakingLicenseBack:
		return msgSendLicenseBack
	case session.StateTakingPatentPhoto:
		return msgSendPatent
	default:
		return msgSendVoice
	}
}

func renderJSON(v any) string {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(pretty)
}
