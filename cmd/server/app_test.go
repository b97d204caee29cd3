package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authmodels "unionhub/internal/auth/models"
	emodels "unionhub/internal/event/models"
	imodels "unionhub/internal/importer/models"
	"unionhub/internal/platform/config"
	"unionhub/internal/platform/logger"
	httptransport "unionhub/internal/transport/http"
	"unionhub/pkg/testutil"
)

func inMemoryConfig() config.Config {
	return config.Config{
		Server: config.Server{PublicURL: "https://members.example.org"},
		Auth: config.Auth{
			JWTSigningKey: "wiring-test-key",
			Issuer:        "unionhub",
			TokenTTL:      time.Hour,
		},
	}
}

func TestInMemoryAppServesImportFlow(t *testing.T) {
	ctx := context.Background()
	a, err := newApp(ctx, inMemoryConfig(), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(a.close)

	require.NoError(t, a.seed(ctx))
	require.NoError(t, a.seed(ctx), "seeding twice is a no-op")

	_, err = a.auth.CreateAdmin(ctx, authmodels.CreateAdminRequest{Username: "organiser", Password: "correct horse battery"})
	require.NoError(t, err)

	router := httptransport.NewRouter(a.httpConfig())

	var token string
	testutil.Given(t, "an admin session", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/api/admin/login", authmodels.LoginRequest{
			Username: "organiser",
			Password: "correct horse battery",
		}))
		require.Equal(t, http.StatusOK, rr.Code)
		token = testutil.UnmarshalResponse[authmodels.LoginResult](t, rr).Token
	})
	require.NotEmpty(t, token)

	var event *emodels.Event
	testutil.Given(t, "a BMM event", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/api/admin/events",
			emodels.CreateEventRequest{Name: "BMM 2026", Type: string(emodels.EventTypeBMMVoting)}), token))
		require.Equal(t, http.StatusCreated, rr.Code)
		event = testutil.UnmarshalResponse[emodels.Event](t, rr)
	})
	require.NotNil(t, event)

	testutil.When(t, "a financial declaration CSV is uploaded for the event", func(t *testing.T) {
		csv := "Membership Number,First Name,Surname,Email,Mobile,Region\n" +
			"1001,Aroha,Ngata,aroha@example.com,0211234567,Central Region\n" +
			"1002,Mere,Smith,,0217654321,Southern Region\n"
		rr := testutil.DoRequest(router, testutil.WithBearer(testutil.NewCSVRequest(t, http.MethodPost,
			"/api/admin/import/csv?event_id="+event.ID.String(), csv), token))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		result := testutil.UnmarshalResponse[imodels.Result](t, rr)
		testutil.Then(t, "both members are created and registered", func(t *testing.T) {
			assert.Equal(t, 2, result.Total)
			assert.Equal(t, 2, result.Created)
			assert.Zero(t, result.Failed)

			rr := testutil.DoRequest(router, testutil.WithBearer(testutil.NewRequest(t, http.MethodGet,
				"/api/admin/events/"+event.ID.String()+"/members"), token))
			require.Equal(t, http.StatusOK, rr.Code)
			testutil.AssertJSONContains(t, rr, "count", float64(2))
		})
	})

	testutil.Then(t, "the import and login are in the audit trail", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, "/api/admin/audit?action=members_imported"), token))
		require.Equal(t, http.StatusOK, rr.Code)
		body := rr.Body.String()
		assert.Contains(t, body, `"count":1`)
		assert.Contains(t, body, `"actor":"organiser"`)

		rr = testutil.DoRequest(router, testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, "/api/admin/audit?category=security"), token))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "admin_login")
	})

	testutil.Then(t, "the seeded notification templates are listed", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, "/api/admin/notifications/templates"), token))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "BMM_INVITATION")
	})
}

func TestNewAppRejectsBadWorkflowConfig(t *testing.T) {
	cfg := inMemoryConfig()
	cfg.Workflow.ConfigPath = t.TempDir() + "/missing.yaml"

	_, err := newApp(context.Background(), cfg, logger.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read workflow config")
}
