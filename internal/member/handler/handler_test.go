package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unionhub/internal/member/models"
	"unionhub/internal/member/service"
	"unionhub/internal/member/store"
	id "unionhub/pkg/domain"
	"unionhub/pkg/platform/tx"
)

func newRouter(t *testing.T) (http.Handler, *models.Member) {
	t.Helper()
	st := store.NewInMemory()
	m, err := models.NewMember("12345", "Aroha Smith", id.SourceCSVStandard, time.Now())
	require.NoError(t, err)
	require.NoError(t, st.Create(context.Background(), m))

	h := New(service.New(st, st, tx.NewMemoryRunner()), slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.RegisterPublic(r)
	h.RegisterAdmin(r)
	return r, m
}

func TestVerifyAndFetch(t *testing.T) {
	router, m := newRouter(t)

	body, _ := json.Marshal(map[string]string{
		"membership_number": "12345",
		"verification_code": m.VerificationCode,
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/members/verify", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, m.Token, resp.Token)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/members/"+resp.Token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"membership_number":"12345"`)
	assert.NotContains(t, rec.Body.String(), "verification_code")
}

func TestVerifyWrongCode(t *testing.T) {
	router, _ := newRouter(t)
	body, _ := json.Marshal(map[string]string{"membership_number": "12345", "verification_code": "nope"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/members/verify", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitFinancialForm(t *testing.T) {
	router, m := newRouter(t)
	body, _ := json.Marshal(map[string]any{"profile": map[string]string{"workplace": "Depot 4"}})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/members/"+m.Token+"/financial-form", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var form models.FinancialForm
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&form))
	assert.Equal(t, []string{"workplace"}, form.ChangedFields)
	assert.Equal(t, models.SyncSkipped, form.SyncStatus)
}

func TestAdminGetRejectsBadID(t *testing.T) {
	router, _ := newRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/members/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
