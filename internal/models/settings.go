package models

import (
	"strings"
	"time"
)

// SettingsDocumentID is the well-known identifier of the singleton
// AdminSettings document in the remote store.
const SettingsDocumentID = "admin_settings"

// SystemActor is recorded as UpdatedBy when the settings document is
// lazily initialized rather than mutated by a person.
const SystemActor = "system"

// AdminSettings is the singleton allow-list of administrator identities.
// AdminEmails holds normalized (lower-cased) unique entries and is never
// empty once initialized; every mutation is a full-document replace.
type AdminSettings struct {
	AdminEmails []string  `json:"adminEmails"`
	LastUpdated time.Time `json:"lastUpdated"`
	UpdatedBy   string    `json:"updatedBy"`
}

// NormalizeEmail lower-cases and trims an email for allow-list comparisons.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasAdmin reports whether the normalized email is present in the allow-list.
func (s *AdminSettings) HasAdmin(email string) bool {
	if s == nil {
		return false
	}
	email = NormalizeEmail(email)
	for _, e := range s.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

// WithAdmin returns a copy of the settings with the normalized email
// appended. The caller must have checked for duplicates.
func (s *AdminSettings) WithAdmin(email, addedBy string, now time.Time) *AdminSettings {
	emails := make([]string, 0, len(s.AdminEmails)+1)
	emails = append(emails, s.AdminEmails...)
	emails = append(emails, NormalizeEmail(email))
	return &AdminSettings{AdminEmails: emails, LastUpdated: now, UpdatedBy: addedBy}
}

// WithoutAdmin returns a copy of the settings with the normalized email
// filtered out.
func (s *AdminSettings) WithoutAdmin(email, updatedBy string, now time.Time) *AdminSettings {
	email = NormalizeEmail(email)
	emails := make([]string, 0, len(s.AdminEmails))
	for _, e := range s.AdminEmails {
		if e != email {
			emails = append(emails, e)
		}
	}
	return &AdminSettings{AdminEmails: emails, LastUpdated: now, UpdatedBy: updatedBy}
}

// Clone returns a copy with its own email slice.
func (s *AdminSettings) Clone() *AdminSettings {
	if s == nil {
		return nil
	}
	out := *s
	out.AdminEmails = append([]string(nil), s.AdminEmails...)
	return &out
}
