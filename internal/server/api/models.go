package api

import "github.com/akarpov87/storysync/internal/models"

// ErrorResponse is the uniform error body returned by every endpoint.
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AddAdminRequest adds one email to the allow-list.
type AddAdminRequest struct {
	Email string `json:"email" binding:"required"`
}

// SettingsResponse wraps the current AdminSettings.
type SettingsResponse struct {
	Settings *models.AdminSettings `json:"settings"`
}

// RecordResponse returns both copies of a record; either may be null.
type RecordResponse struct {
	Draft  *models.LocalDraft `json:"draft"`
	Remote *models.Record     `json:"remote"`
}

// DraftResponse wraps a freshly saved local draft.
type DraftResponse struct {
	Draft *models.LocalDraft `json:"draft"`
}

// PublishResponse wraps the reconciled, persisted record.
type PublishResponse struct {
	Record *models.Record `json:"record"`
}
