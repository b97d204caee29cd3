package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unionhub/internal/importer/models"
	"unionhub/internal/importer/service"
	mstore "unionhub/internal/member/store"
	id "unionhub/pkg/domain"
	"unionhub/pkg/platform/tx"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(context.Context, string) ([]map[string]any, error) {
	return []map[string]any{{"membership_number": "I1", "name": "From Informer"}}, nil
}

func newRouter(t *testing.T) (http.Handler, *mstore.InMemory) {
	t.Helper()
	members := mstore.NewInMemory()
	svc := service.New(members, tx.NewMemoryRunner(), service.WithFetcher(stubFetcher{}))
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterAdmin(r)
	return r, members
}

const standardCSV = "name,primaryEmail,membership_number\nMere Smith,mere@example.com,A1\n"

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) models.Result {
	t.Helper()
	var out models.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestImportCSVRawBody(t *testing.T) {
	router, members := newRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/import/csv", strings.NewReader(standardCSV)))
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, id.SourceCSVStandard, result.Source)

	_, err := members.FindByMembershipNumber(context.Background(), "A1")
	assert.NoError(t, err)
}

func TestImportCSVMultipart(t *testing.T) {
	router, _ := newRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "members.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(standardCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/import/csv?source=manual", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id.SourceManual, decodeResult(t, rec).Source)
}

func TestImportCSVBadInput(t *testing.T) {
	router, _ := newRouter(t)

	for _, path := range []string{
		"/api/admin/import/csv?source=carrier-pigeon",
		"/api/admin/import/csv?emergency=maybe",
		"/api/admin/import/csv?event_id=nope",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(standardCSV)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/import/csv", strings.NewReader("a,b\n1,2\n")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportInformer(t *testing.T) {
	router, _ := newRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/import/informer",
		strings.NewReader(`{"token":"abc","source":"INFORMER_ATTENDEES"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, id.SourceInformerAttendees, result.Source)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/import/informer", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
