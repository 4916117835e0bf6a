// Package recognizer wraps the four remote recognition services behind one
// request/response contract. All knowledge of the remote wire schemas lives
// here; callers only ever see the mapped field structs and a typed failure.
package recognizer

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies why a recognition call failed.
type FailureKind string

const (
	// TransportError covers network failures, timeouts and non-2xx
	// responses without a parseable body.
	TransportError FailureKind = "transport_error"
	// BadResponse covers syntactically invalid payloads from the remote.
	BadResponse FailureKind = "bad_response"
	// RemoteRejected covers responses where the remote explicitly declined
	// with an error message.
	RemoteRejected FailureKind = "remote_rejected"
)

// Error is the typed failure returned by every gateway operation.
type Error struct {
	Kind       FailureKind
	Recognizer string
	// Reason is safe to show to the user for RemoteRejected failures.
	Reason string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s recognizer: %s: %s: %v", e.Recognizer, e.Kind, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s recognizer: %s: %s", e.Recognizer, e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.cause }

// KindOf extracts the failure kind from an error returned by the gateway.
// Unknown errors map to TransportError, the most conservative bucket.
func KindOf(err error) FailureKind {
	var gwErr *Error
	if ok := asError(err, &gwErr); ok {
		return gwErr.Kind
	}
	return TransportError
}

// ReasonOf extracts the user-facing reason from a gateway error.
func ReasonOf(err error) string {
	var gwErr *Error
	if ok := asError(err, &gwErr); ok {
		return gwErr.Reason
	}
	return ""
}

func asError(err error, target **Error) bool {
	return errors.As(err, target)
}

// PassportFields is the mapped result of a passport recognition call.
type PassportFields struct {
	LastName       string
	FirstName      string
	MiddleName     string
	BirthDate      string
	BirthPlace     string
	PassportNumber string
	Citizenship    string
}

// LicenseFields is the mapped result of a driver's license recognition call.
type LicenseFields struct {
	FullName      string
	LicenseNumber string
}

// PatentFields is the mapped result of a work patent recognition call.
type PatentFields struct {
	FullName       string
	Citizenship    string
	DocumentNumber string
}

// AudioFields is the mapped result of a voice note recognition call.
type AudioFields struct {
	BankName    string
	PhoneNumber string
	RawText     string
}

// Gateway is the uniform contract over the remote recognizers. Every
// operation performs exactly one attempt; callers decide whether to
// re-prompt the user.
type Gateway interface {
	RecognizePassport(ctx context.Context, image []byte) (*PassportFields, error)
	RecognizeLicense(ctx context.Context, front, back []byte) (*LicenseFields, error)
	RecognizePatent(ctx context.Context, image []byte) (*PatentFields, error)
	RecognizeAudio(ctx context.Context, clip []byte) (*AudioFields, error)
}
