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

	"unionhub/internal/bmm/config"
	"unionhub/internal/bmm/models"
	"unionhub/internal/bmm/service"
	"unionhub/internal/bmm/store"
	eservice "unionhub/internal/event/service"
	estore "unionhub/internal/event/store"
	emodels "unionhub/internal/event/models"
	mmodels "unionhub/internal/member/models"
	mstore "unionhub/internal/member/store"
	id "unionhub/pkg/domain"
	"unionhub/pkg/platform/tx"
)

type fixture struct {
	router  http.Handler
	event   *emodels.Event
	members *mstore.InMemory
	bmm     *service.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	events := eservice.New(estore.NewInMemory())
	_, err := events.SeedDefaultTemplates(ctx)
	require.NoError(t, err)
	e, err := events.Create(ctx, emodels.CreateEventRequest{Name: "BMM", Type: string(emodels.EventTypeBMMVoting)})
	require.NoError(t, err)

	members := mstore.NewInMemory()
	svc := service.New(store.NewInMemory(), members, events, tx.NewMemoryRunner(), config.Default())
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.RegisterPublic(r)
	h.RegisterAdmin(r)
	return &fixture{router: r, event: e, members: members, bmm: svc}
}

func (f *fixture) register(t *testing.T, number, region string) (*mmodels.Member, *models.EventMember) {
	t.Helper()
	m, err := mmodels.NewMember(number, "Member "+number, id.SourceManual, time.Now())
	require.NoError(t, err)
	m.Region = region
	require.NoError(t, f.members.Create(context.Background(), m))
	em, err := f.bmm.Register(context.Background(), f.event.ID, m.ID, "")
	require.NoError(t, err)
	return m, em
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestSubmitPreferences(t *testing.T) {
	f := newFixture(t)
	m, _ := f.register(t, "500", config.RegionCentral)
	path := "/api/bmm/" + f.event.ID.String() + "/preferences/" + m.Token

	rec := f.do(http.MethodPost, path, map[string]any{"preferred_venues": []string{"Wellington", "Napier"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, path, map[string]any{"preferred_venues": []string{"Wellington"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var em models.EventMember
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&em))
	assert.Equal(t, models.StageVenueAssigned, em.Stage)
	assert.Equal(t, "Wellington", em.AssignedVenueFinal)

	rec = f.do(http.MethodPost, "/api/bmm/"+f.event.ID.String()+"/confirm/"+m.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bmm_stage":"ATTENDANCE_CONFIRMED"`)
}

func TestSpecialVoteNorthernRejected(t *testing.T) {
	f := newFixture(t)
	_, em := f.register(t, "600", config.RegionNorthern)

	rec := f.do(http.MethodPost, "/api/admin/event-members/"+em.ID.String()+"/special-vote",
		map[string]any{"special_vote_requested": true, "reason": "ILLNESS"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/admin/event-members/"+em.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bmm_stage":"INVITED"`)
}

func TestCampaignRoutes(t *testing.T) {
	f := newFixture(t)
	f.register(t, "700", config.RegionCentral)
	base := "/api/admin/events/" + f.event.ID.String()

	rec := f.do(http.MethodPost, base+"/campaigns/fireworks", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPost, base+"/campaigns/invitations?region=Central+Region", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.BatchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Failed)

	rec = f.do(http.MethodGet, base+"/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}

func TestListFiltersByStage(t *testing.T) {
	f := newFixture(t)
	f.register(t, "800", config.RegionCentral)
	base := "/api/admin/events/" + f.event.ID.String() + "/members"

	rec := f.do(http.MethodGet, base+"?stage=invited", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = f.do(http.MethodGet, base+"?stage=TICKET_ISSUED", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)

	rec = f.do(http.MethodGet, base+"?stage=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
