package recognizer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"intakebot/internal/logger"
	"log/slog"
)

const maxResponseBytes = 1 << 20

// Config carries the endpoint addresses and call timeouts for the HTTP
// gateway. Document recognizers share one bound; audio gets a longer one
// because the payloads are larger and remote processing is slower.
type Config struct {
	PassportURL string
	LicenseURL  string
	PatentURL   string
	AudioURL    string

	DocumentTimeout time.Duration
	AudioTimeout    time.Duration
}

// Client is the HTTP implementation of Gateway. Each call performs exactly
// one attempt; there is no retry layer here on purpose.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds the HTTP gateway. When httpClient is nil a plain client
// is used; per-call timeouts come from contexts, not from the client.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.DocumentTimeout <= 0 {
		cfg.DocumentTimeout = 30 * time.Second
	}
	if cfg.AudioTimeout <= 0 {
		cfg.AudioTimeout = 60 * time.Second
	}
	return &Client{cfg: cfg, http: httpClient}
}

// remoteResponse is the union of all recognizer response schemas. The
// remote functions own these field names; keeping the mapping in one place
// is the whole point of this package.
type remoteResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`

	// passport
	LastName       string `json:"last_name"`
	FirstName      string `json:"first_name"`
	MiddleName     string `json:"middle_name"`
	BirthDate      string `json:"birth_date"`
	BirthPlace     string `json:"birth_place"`
	PassportNumber string `json:"passport_number"`

	// license / patent
	FullName       string `json:"full_name"`
	LicenseNumber  string `json:"license_number"`
	DocumentNumber string `json:"document_number"`
	Citizenship    string `json:"citizenship"`

	// audio
	BankName    string `json:"bank_name"`
	PhoneNumber string `json:"phone_number"`
	RawText     string `json:"raw_text"`
}

// RecognizePassport sends one passport page image for recognition.
func (c *Client) RecognizePassport(ctx context.Context, image []byte) (*PassportFields, error) {
	resp, err := c.call(ctx, "passport", c.cfg.PassportURL, c.cfg.DocumentTimeout, map[string]string{
		"image": base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return nil, err
	}
	return &PassportFields{
		LastName:       resp.LastName,
		FirstName:      resp.FirstName,
		MiddleName:     resp.MiddleName,
		BirthDate:      resp.BirthDate,
		BirthPlace:     resp.BirthPlace,
		PassportNumber: resp.PassportNumber,
		Citizenship:    resp.Citizenship,
	}, nil
}

// RecognizeLicense sends both sides of a driver's license in one request.
func (c *Client) RecognizeLicense(ctx context.Context, front, back []byte) (*LicenseFields, error) {
	resp, err := c.call(ctx, "license", c.cfg.LicenseURL, c.cfg.DocumentTimeout, map[string]string{
		"front_image": base64.StdEncoding.EncodeToString(front),
		"back_image":  base64.StdEncoding.EncodeToString(back),
	})
	if err != nil {
		return nil, err
	}
	return &LicenseFields{
		FullName:      resp.FullName,
		LicenseNumber: resp.LicenseNumber,
	}, nil
}

// RecognizePatent sends one work patent image for recognition.
func (c *Client) RecognizePatent(ctx context.Context, image []byte) (*PatentFields, error) {
	resp, err := c.call(ctx, "patent", c.cfg.PatentURL, c.cfg.DocumentTimeout, map[string]string{
		"image": base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return nil, err
	}
	return &PatentFields{
		FullName:       resp.FullName,
		Citizenship:    resp.Citizenship,
		DocumentNumber: resp.DocumentNumber,
	}, nil
}

// RecognizeAudio sends one voice clip for bank/phone extraction.
func (c *Client) RecognizeAudio(ctx context.Context, clip []byte) (*AudioFields, error) {
	resp, err := c.call(ctx, "audio", c.cfg.AudioURL, c.cfg.AudioTimeout, map[string]string{
		"audio": base64.StdEncoding.EncodeToString(clip),
	})
	if err != nil {
		return nil, err
	}
	return &AudioFields{
		BankName:    resp.BankName,
		PhoneNumber: resp.PhoneNumber,
		RawText:     resp.RawText,
	}, nil
}

func (c *Client) call(ctx context.Context, name, endpoint string, timeout time.Duration, payload map[string]string) (*remoteResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Kind: BadResponse, Recognizer: name, Reason: "request encoding failed", cause: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: TransportError, Recognizer: name, Reason: "request build failed", cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		kind := classifyTransport(err)
		logger.Error(ctx, "gw", "recognize.fail",
			slog.String("status", "fail"),
			slog.String("recognizer", name),
			slog.String("err_kind", kind),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return nil, &Error{Kind: TransportError, Recognizer: name, Reason: kind, cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Kind: TransportError, Recognizer: name, Reason: "response read failed", cause: err}
	}

	var decoded remoteResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			logger.Error(ctx, "gw", "recognize.fail",
				slog.String("status", "fail"),
				slog.String("recognizer", name),
				slog.String("err_kind", "http_status"),
				slog.Int("http_code", resp.StatusCode),
				slog.Duration("duration", logger.Took(start)),
			)
			return nil, &Error{
				Kind:       TransportError,
				Recognizer: name,
				Reason:     fmt.Sprintf("unexpected status %d", resp.StatusCode),
			}
		}
		logger.Error(ctx, "gw", "recognize.fail",
			slog.String("status", "fail"),
			slog.String("recognizer", name),
			slog.String("err_kind", "bad_json"),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return nil, &Error{Kind: BadResponse, Recognizer: name, Reason: "invalid response payload", cause: err}
	}

	if !decoded.Success {
		reason := decoded.Error
		if decoded.Message != "" {
			reason = decoded.Message
		}
		if reason == "" {
			reason = "unknown error"
		}
		logger.Warn(ctx, "gw", "recognize.rejected",
			slog.String("status", "rejected"),
			slog.String("recognizer", name),
			slog.Int("http_code", resp.StatusCode),
			slog.Duration("duration", logger.Took(start)),
			slog.String("payload", logger.SanitizeLimit(reason, 256)),
		)
		return nil, &Error{Kind: RemoteRejected, Recognizer: name, Reason: reason}
	}

	logger.Info(ctx, "gw", "recognize.ok",
		slog.String("status", "ok"),
		slog.String("recognizer", name),
		slog.Duration("duration", logger.Took(start)),
	)
	return &decoded, nil
}

func classifyTransport(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return "timeout"
		}
		var opErr *net.OpError
		if errors.As(urlErr.Err, &opErr) && opErr.Op == "dial" {
			return "dial"
		}
	}
	return "network"
}
