package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/akarpov87/storysync/internal/localstore"
	"github.com/akarpov87/storysync/internal/logging"
	"github.com/akarpov87/storysync/internal/models"
	"github.com/akarpov87/storysync/internal/reconciler"
	"github.com/akarpov87/storysync/internal/remote"
	"github.com/akarpov87/storysync/internal/settings"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (*gin.Engine, *remote.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	store := remote.NewMemoryStore()

	h := NewHandler(
		settings.NewService(store, log, settings.DefaultTTL),
		reconciler.NewService(localstore.NewMemoryKV(), store, log),
		log,
	)

	router := gin.New()
	h.SetupRoutes(router)
	return router, store
}

func seedSettings(t *testing.T, store *remote.MemoryStore, emails ...string) {
	t.Helper()
	b, err := json.Marshal(&models.AdminSettings{
		AdminEmails: emails,
		LastUpdated: time.Now().UTC(),
		UpdatedBy:   models.SystemActor,
	})
	require.NoError(t, err)
	require.NoError(t, store.SetDocument(context.Background(), &remote.Document{
		ID:      models.SettingsDocumentID,
		Payload: b,
	}))
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, actor string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(ActorHeader, actor)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t)
	w := doJSON(t, router, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetSettings_LazyInitializes(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/settings", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp SettingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Settings)
	assert.Empty(t, resp.Settings.AdminEmails)
	assert.Equal(t, models.SystemActor, resp.Settings.UpdatedBy)
}

func TestAddAdmin_RequiresActorHeader(t *testing.T) {
	router, store := setupRouter(t)
	seedSettings(t, store, "a@x.com")

	w := doJSON(t, router, http.MethodPost, "/api/settings/admins", AddAdminRequest{Email: "b@x.com"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAddAdmin_NonAdminForbidden(t *testing.T) {
	router, store := setupRouter(t)
	seedSettings(t, store, "a@x.com")

	w := doJSON(t, router, http.MethodPost, "/api/settings/admins", AddAdminRequest{Email: "b@x.com"}, "mallory@x.com")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAddAdmin_BootstrapOnEmptyList(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/settings/admins", AddAdminRequest{Email: "First@x.com"}, "first@x.com")
	require.Equal(t, http.StatusCreated, w.Code)

	var resp SettingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"first@x.com"}, resp.Settings.AdminEmails)
}

func TestAddAdmin_AdminCanAddAndDuplicateConflicts(t *testing.T) {
	router, store := setupRouter(t)
	seedSettings(t, store, "a@x.com")

	// prime the IsAdmin view
	w := doJSON(t, router, http.MethodGet, "/api/settings", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/settings/admins", AddAdminRequest{Email: "B@x.com"}, "a@x.com")
	require.Equal(t, http.StatusCreated, w.Code)

	var resp SettingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, resp.Settings.AdminEmails)
	assert.Equal(t, "a@x.com", resp.Settings.UpdatedBy)

	w = doJSON(t, router, http.MethodPost, "/api/settings/admins", AddAdminRequest{Email: "b@x.com"}, "a@x.com")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRemoveAdmin_LastAdminRejected(t *testing.T) {
	router, store := setupRouter(t)
	seedSettings(t, store, "a@x.com")

	// prime the IsAdmin view
	doJSON(t, router, http.MethodGet, "/api/settings", nil, "")

	w := doJSON(t, router, http.MethodDelete, "/api/settings/admins/a@x.com", nil, "a@x.com")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "LAST_ADMIN", resp.Code)
}

func TestRemoveAdmin_AbsentNotFound(t *testing.T) {
	router, store := setupRouter(t)
	seedSettings(t, store, "a@x.com", "b@x.com")

	doJSON(t, router, http.MethodGet, "/api/settings", nil, "")

	w := doJSON(t, router, http.MethodDelete, "/api/settings/admins/c@x.com", nil, "a@x.com")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordLifecycle_DraftPublishGet(t *testing.T) {
	router, _ := setupRouter(t)

	// save a draft
	w := doJSON(t, router, http.MethodPut, "/api/records/story/p1/draft",
		gin.H{"fields": gin.H{"title": "Draft Title"}}, "a@x.com")
	require.Equal(t, http.StatusOK, w.Code)

	var draftResp DraftResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &draftResp))
	require.NotNil(t, draftResp.Draft)
	assert.Equal(t, "Draft Title", draftResp.Draft.Fields["title"])
	assert.False(t, draftResp.Draft.LastSaved.IsZero())

	// both copies visible, remote still absent
	w = doJSON(t, router, http.MethodGet, "/api/records/story/p1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var recResp RecordResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recResp))
	require.NotNil(t, recResp.Draft)
	assert.Nil(t, recResp.Remote)

	// publish
	w = doJSON(t, router, http.MethodPost, "/api/records/story/p1/publish",
		gin.H{"fields": gin.H{"title": "Draft Title"}}, "a@x.com")
	require.Equal(t, http.StatusOK, w.Code)
	var pubResp PublishResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pubResp))
	assert.Equal(t, "p1", pubResp.Record.ID)
	assert.Equal(t, "a@x.com", pubResp.Record.CreatedBy)

	// draft cleared, remote present
	w = doJSON(t, router, http.MethodGet, "/api/records/story/p1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	recResp = RecordResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recResp))
	assert.Nil(t, recResp.Draft)
	require.NotNil(t, recResp.Remote)
	assert.Equal(t, "Draft Title", recResp.Remote.Fields["title"])
}

func TestGetRecord_AbsentEverywhere(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/records/story/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDiscardDraft(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, http.MethodPut, "/api/records/story/p1/draft",
		gin.H{"fields": gin.H{"title": "x"}}, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/records/story/p1/draft", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/records/story/p1", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSaveDraft_BadPayload(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/api/records/story/p1/draft", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
