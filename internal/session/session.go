// Package session holds the per-user conversation model and the stores that
// keep it between updates.
package session

import (
	"strings"
	"time"

	"intakebot/internal/normalize"
)

// DocumentType identifies which document flow a user picked.
type DocumentType string

const (
	DocumentNone     DocumentType = ""
	DocumentPassport DocumentType = "passport"
	DocumentLicense  DocumentType = "license"
	DocumentPatent   DocumentType = "patent"
)

// State identifies the conversation step a user is at.
type State string

const (
	StateSelectingDocumentType State = "selecting_document_type"
	StateTakingPassportPhoto   State = "taking_passport_photo"
	StateTakingLicenseFront    State = "taking_license_front"
	StateTakingLicenseBack     State = "taking_license_back"
	StateTakingPatentPhoto     State = "taking_patent_photo"
	StateTakingVoice           State = "taking_voice"
)

// DocumentRecord is a recognized document of any supported type. The two
// accessors are everything the final record needs; concrete fields stay with
// the variant.
type DocumentRecord interface {
	DisplayName() string
	DocumentNumber() string
}

// PassportRecord holds recognized passport fields.
type PassportRecord struct {
	LastName    string `json:"last_name"`
	FirstName   string `json:"first_name"`
	MiddleName  string `json:"middle_name"`
	BirthDate   string `json:"birth_date"`
	BirthPlace  string `json:"birth_place"`
	Number      string `json:"passport_number"`
	Citizenship string `json:"citizenship"`
}

func (r *PassportRecord) DisplayName() string {
	return normalize.Name(r.LastName, r.FirstName, r.MiddleName)
}

func (r *PassportRecord) DocumentNumber() string { return r.Number }

// LicenseRecord holds recognized driver's license fields.
type LicenseRecord struct {
	FullName string `json:"full_name"`
	Number   string `json:"license_number"`
}

func (r *LicenseRecord) DisplayName() string {
	if strings.TrimSpace(r.FullName) == "" {
		return normalize.UnknownName
	}
	return strings.TrimSpace(r.FullName)
}

func (r *LicenseRecord) DocumentNumber() string { return r.Number }

// PatentRecord holds recognized work patent fields.
type PatentRecord struct {
	FullName    string `json:"full_name"`
	Citizenship string `json:"citizenship"`
	Number      string `json:"document_number"`
}

func (r *PatentRecord) DisplayName() string {
	if strings.TrimSpace(r.FullName) == "" {
		return normalize.UnknownName
	}
	return strings.TrimSpace(r.FullName)
}

func (r *PatentRecord) DocumentNumber() string { return r.Number }

// UserSession is one user's intake conversation. Images holds at most two
// entries and reaches two only between license back capture and the gateway
// call. Document is nil until a recognizer accepted the document.
type UserSession struct {
	UserID         int64
	DocumentType   DocumentType
	State          State
	Images         [][]byte
	Document       DocumentRecord
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// Touch bumps the activity timestamp; call before Put on every handled event.
func (s *UserSession) Touch() {
	s.LastActivityAt = time.Now()
}

// ClearImages drops captured images, keeping capacity out of the session.
func (s *UserSession) ClearImages() {
	s.Images = nil
}
