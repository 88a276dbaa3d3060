package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/wardstate/internal/config"
	"github.com/ehr/wardstate/internal/domain/autopsy"
	"github.com/ehr/wardstate/internal/hospital"
	"github.com/ehr/wardstate/internal/platform/idgen"
)

func TestRootCmd_Subcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd().Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "demo"}, names)
}

func TestSeedDemo(t *testing.T) {
	h := hospital.New(hospital.WithIDs(idgen.Sequence("")))
	require.NoError(t, seedDemo(h))

	assert.Equal(t, 3, h.Patients.Len())
	assert.Len(t, h.AvailableBeds(), 3, "one admitted patient, one discharged by death")
	assert.Len(t, h.Invoices.GetAll(), 1)
	assert.Len(t, h.PendingSuggestions(), 1)
	assert.Len(t, h.Communications.Pending(), 1)

	cases := h.Autopsies.GetAll()
	require.Len(t, cases, 1)
	assert.Equal(t, autopsy.StatusReportPending, cases[0].Status)
	assert.NotEmpty(t, cases[0].Report)
}

func TestDemoCmd_PrintsSummary(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"demo"})
	require.NoError(t, cmd.Execute())

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	for _, key := range []string{"rooms", "patients", "invoices", "pending_suggestions", "autopsies", "low_stock"} {
		assert.Contains(t, got, key)
	}
}

func TestNewServer_Routes(t *testing.T) {
	cfg := &config.Config{Port: "0", Env: "test", LogLevel: "info", IDStrategy: "sequence", DraftTimeout: time.Second, CORSOrigins: []string{"*"}}
	h, err := newHospital(cfg, zerolog.Nop())
	require.NoError(t, err)
	e, stop := newServer(cfg, h, nil, zerolog.Nop())
	defer stop()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/beds", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, h.Beds.Listeners(), "hub watches the bed store")
	stop()
	assert.Zero(t, h.Beds.Listeners())
}
