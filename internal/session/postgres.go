package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"intakebot/internal/logger"
	"log/slog"
)

const pgOpTimeout = 5 * time.Second

// recordEnvelope tags a serialized DocumentRecord with its concrete variant
// so the stored JSON round-trips to the right type.
type recordEnvelope struct {
	Type DocumentType    `json:"type"`
	Data json.RawMessage `json:"data"`
}

func encodeRecord(rec DocumentRecord) ([]byte, error) {
	if rec == nil {
		return nil, nil
	}
	var typ DocumentType
	switch rec.(type) {
	case *PassportRecord:
		typ = DocumentPassport
	case *LicenseRecord:
		typ = DocumentLicense
	case *PatentRecord:
		typ = DocumentPatent
	default:
		return nil, fmt.Errorf("unknown document record %T", rec)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return json.Marshal(recordEnvelope{Type: typ, Data: data})
}

func decodeRecord(raw []byte) (DocumentRecord, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var env recordEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	var rec DocumentRecord
	switch env.Type {
	case DocumentPassport:
		rec = &PassportRecord{}
	case DocumentLicense:
		rec = &LicenseRecord{}
	case DocumentPatent:
		rec = &PatentRecord{}
	default:
		return nil, fmt.Errorf("unknown document record type %q", env.Type)
	}
	if err := json.Unmarshal(env.Data, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

type sessionRow struct {
	UserID       int64     `db:"user_id"`
	DocumentType string    `db:"document_type"`
	State        string    `db:"state"`
	Images       []byte    `db:"images"`
	Document     []byte    `db:"document"`
	CreatedAt    time.Time `db:"created_at"`
	LastActivity time.Time `db:"last_activity_at"`
}

type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore constructs the durable Store used when the session backend
// is postgres. Store operations do not return errors, so persistence failures
// are logged and the affected user falls back to no-session behavior.
func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (p *postgresStore) Get(userID int64) (*UserSession, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), pgOpTimeout)
	defer cancel()

	var row sessionRow
	err := p.db.GetContext(ctx, &row,
		`SELECT user_id, document_type, state, images, document, created_at, last_activity_at
		 FROM sessions WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		logger.SESS.Error("session load failed",
			slog.String("event", "session.get"),
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("backend", "postgres"),
			slog.String("err", err.Error()),
		)
		return nil, false
	}

	var images [][]byte
	if len(row.Images) > 0 {
		if err := json.Unmarshal(row.Images, &images); err != nil {
			logger.SESS.Error("session images corrupt",
				slog.String("event", "session.get"),
				slog.String("status", "fail"),
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
			return nil, false
		}
	}
	doc, err := decodeRecord(row.Document)
	if err != nil {
		logger.SESS.Error("session document corrupt",
			slog.String("event", "session.get"),
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return nil, false
	}

	return &UserSession{
		UserID:         row.UserID,
		DocumentType:   DocumentType(row.DocumentType),
		State:          State(row.State),
		Images:         images,
		Document:       doc,
		CreatedAt:      row.CreatedAt,
		LastActivityAt: row.LastActivity,
	}, true
}

func (p *postgresStore) Create(userID int64) *UserSession {
	now := time.Now()
	s := &UserSession{
		UserID:         userID,
		DocumentType:   DocumentNone,
		State:          StateSelectingDocumentType,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	p.Put(s)
	return s
}

func (p *postgresStore) Put(s *UserSession) {
	ctx, cancel := context.WithTimeout(context.Background(), pgOpTimeout)
	defer cancel()

	var images []byte
	if len(s.Images) > 0 {
		encoded, err := json.Marshal(s.Images)
		if err != nil {
			logger.SESS.Error("session images encode failed",
				slog.String("event", "session.put"),
				slog.String("status", "fail"),
				slog.Int64("user_id", s.UserID),
				slog.String("err", err.Error()),
			)
			return
		}
		images = encoded
	}
	doc, err := encodeRecord(s.Document)
	if err != nil {
		logger.SESS.Error("session document encode failed",
			slog.String("event", "session.put"),
			slog.String("status", "fail"),
			slog.Int64("user_id", s.UserID),
			slog.String("err", err.Error()),
		)
		return
	}

	_, err = p.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, document_type, state, images, document, created_at, last_activity_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE SET
		   document_type = EXCLUDED.document_type,
		   state = EXCLUDED.state,
		   images = EXCLUDED.images,
		   document = EXCLUDED.document,
		   created_at = EXCLUDED.created_at,
		   last_activity_at = EXCLUDED.last_activity_at`,
		s.UserID, string(s.DocumentType), string(s.State), images, doc,
		s.CreatedAt, s.LastActivityAt)
	if err != nil {
		logger.SESS.Error("session save failed",
			slog.String("event", "session.put"),
			slog.String("status", "fail"),
			slog.Int64("user_id", s.UserID),
			slog.String("backend", "postgres"),
			slog.String("err", err.Error()),
		)
	}
}

func (p *postgresStore) Remove(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), pgOpTimeout)
	defer cancel()

	if _, err := p.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		logger.SESS.Error("session delete failed",
			slog.String("event", "session.remove"),
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("backend", "postgres"),
			slog.String("err", err.Error()),
		)
	}
}
