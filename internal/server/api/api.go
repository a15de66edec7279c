// Package api exposes the settings accessor and draft reconciliation
// services over a thin HTTP surface consumed by the UI layer.
package api

import (
	"errors"
	"net/http"

	"github.com/akarpov87/storysync/internal/common"
	"github.com/akarpov87/storysync/internal/logging"
	"github.com/akarpov87/storysync/internal/models"
	"github.com/akarpov87/storysync/internal/reconciler"
	"github.com/akarpov87/storysync/internal/settings"
	"github.com/gin-gonic/gin"
)

// ActorHeader carries the identity of the caller. Authentication itself is
// handled upstream of this service.
const ActorHeader = "X-Actor-Email"

// Handler bundles the services behind the HTTP endpoints.
type Handler struct {
	settings *settings.Service
	recon    *reconciler.Service
	log      logging.Logger
}

// NewHandler creates an API handler over the given services.
func NewHandler(s *settings.Service, r *reconciler.Service, log logging.Logger) *Handler {
	return &Handler{settings: s, recon: r, log: log.With("component", "api")}
}

// SetupRoutes registers all endpoints on the router.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.health)

	api := router.Group("/api")
	{
		api.GET("/settings", h.getSettings)

		admins := api.Group("/settings/admins")
		admins.Use(RequireAdmin(h.settings))
		{
			admins.POST("", h.addAdmin)
			admins.DELETE("/:email", h.removeAdmin)
		}

		records := api.Group("/records/:kind/:id")
		{
			records.GET("", h.getRecord)
			records.PUT("/draft", h.saveDraft)
			records.DELETE("/draft", h.discardDraft)
			records.POST("/publish", h.publishRecord)
		}
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getSettings(c *gin.Context) {
	force := c.Query("force") == "true"

	s, err := h.settings.Get(c.Request.Context(), force)
	if err != nil {
		writeError(c, err)
		return
	}
	if s == nil {
		// a fetch is in flight and nothing is cached yet
		c.JSON(http.StatusAccepted, gin.H{"status": "pending"})
		return
	}
	c.JSON(http.StatusOK, SettingsResponse{Settings: s})
}

func (h *Handler) addAdmin(c *gin.Context) {
	var req AddAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, common.ErrInvalidEmail)
		return
	}

	s, err := h.settings.AddAdmin(c.Request.Context(), req.Email, c.GetHeader(ActorHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SettingsResponse{Settings: s})
}

func (h *Handler) removeAdmin(c *gin.Context) {
	s, err := h.settings.RemoveAdmin(c.Request.Context(), c.Param("email"), c.GetHeader(ActorHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SettingsResponse{Settings: s})
}

func (h *Handler) getRecord(c *gin.Context) {
	kind, id := c.Param("kind"), c.Param("id")

	local, rem, err := h.recon.Open(c.Request.Context(), kind, id)
	if err != nil {
		writeError(c, err)
		return
	}
	if local == nil && rem == nil {
		writeError(c, common.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, RecordResponse{Draft: local, Remote: rem})
}

func (h *Handler) saveDraft(c *gin.Context) {
	rec, ok := h.bindRecord(c)
	if !ok {
		return
	}

	d, err := h.recon.SaveDraft(c.Request.Context(), rec)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, DraftResponse{Draft: d})
}

func (h *Handler) discardDraft(c *gin.Context) {
	if err := h.recon.Discard(c.Request.Context(), c.Param("kind"), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) publishRecord(c *gin.Context) {
	rec, ok := h.bindRecord(c)
	if !ok {
		return
	}

	out, err := h.recon.Publish(c.Request.Context(), rec, c.GetHeader(ActorHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, PublishResponse{Record: out})
}

// bindRecord decodes the request body and pins identity to the URL.
func (h *Handler) bindRecord(c *gin.Context) (*models.Record, bool) {
	var rec models.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  "error",
			Code:    "BAD_REQUEST",
			Message: "invalid record payload",
		})
		return nil, false
	}
	rec.Kind = c.Param("kind")
	rec.ID = c.Param("id")
	return &rec, true
}

// writeError maps service errors to HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"

	switch {
	case errors.Is(err, common.ErrDuplicateAdmin):
		status, code = http.StatusConflict, "DUPLICATE_ADMIN"
	case errors.Is(err, common.ErrLastAdmin):
		status, code = http.StatusUnprocessableEntity, "LAST_ADMIN"
	case errors.Is(err, common.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, common.ErrInvalidEmail):
		status, code = http.StatusBadRequest, "INVALID_EMAIL"
	case errors.Is(err, common.ErrSettingsFetch):
		status, code = http.StatusBadGateway, "SETTINGS_FETCH_FAILED"
	case errors.Is(err, common.ErrRemoteWrite):
		status, code = http.StatusBadGateway, "REMOTE_WRITE_FAILED"
	case errors.Is(err, common.ErrLocalPersistence):
		status, code = http.StatusInsufficientStorage, "LOCAL_PERSISTENCE_FAILED"
	}

	c.JSON(status, ErrorResponse{Status: "error", Code: code, Message: err.Error()})
}
