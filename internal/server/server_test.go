package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/City-of-Helsinki/text-anonymizer/pkg/anonymizer"
	"github.com/City-of-Helsinki/text-anonymizer/pkg/config"
	"github.com/City-of-Helsinki/text-anonymizer/pkg/ner"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	server  *Server
	handler http.Handler
	root    string
}

func newTestServer(t *testing.T, cfg Config, mutate func(*anonymizer.Settings)) *testServer {
	t.Helper()
	root := t.TempDir()
	settings := anonymizer.DefaultSettings()
	if mutate != nil {
		mutate(&settings)
	}
	provider := config.NewProvider(config.NewCache(root, discard()))
	entities := map[string]string{"Matti Meikäläinen": "PERSON"}
	builder := anonymizer.NewBuilder(provider, ner.NewStatic(entities, 0.8), settings, discard())
	srv := New(cfg, anonymizer.New(settings, builder, discard()), builder, provider, settings, discard())
	return &testServer{server: srv, handler: srv.Routes(), root: root}
}

func (ts *testServer) writeProfile(t *testing.T, profile, name, content string) {
	t.Helper()
	dir := filepath.Join(ts.root, profile)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestAnonymizeEndpoint(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	body := `{"text": "Moikka, olen Matti Meikäläinen ja mun puhelinnumero on 0401234567."}`
	rec := ts.do(http.MethodPost, "/api/anonymize", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result anonymizer.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Moikka, olen <NIMI> ja mun puhelinnumero on <PUHELIN>.", result.Text)
	assert.Equal(t, map[string]int{"NIMI": 1, "PUHELIN": 1}, result.Statistics)
	assert.Nil(t, result.Details)
	assert.NotContains(t, rec.Body.String(), `"details"`)
}

func TestAnonymizeEndpointDebugDetails(t *testing.T) {
	ts := newTestServer(t, Config{}, func(s *anonymizer.Settings) {
		s.Debug = true
	})

	body := `{"text": "Moikka, olen Matti Meikäläinen ja mun puhelinnumero on 0401234567."}`
	rec := ts.do(http.MethodPost, "/api/anonymize", body)

	require.Equal(t, http.StatusOK, rec.Code)

	var result anonymizer.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Moikka, olen <SPACY_NIMI_0.90> ja mun puhelinnumero on <PUHELIN_0.70>.", result.Text)
	assert.Equal(t, []string{"Matti Meikäläinen"}, result.Details["SPACY_NIMI_0.90"])
	assert.Equal(t, []string{"0401234567"}, result.Details["PUHELIN_0.70"])
}

func TestAnonymizeEndpointProfile(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)
	ts.writeProfile(t, "palautteet", "blocklist.txt", "projekti tempo\n")

	body := `{"text": "Projekti Tempo etenee aikataulussa.", "profile": "palautteet"}`
	rec := ts.do(http.MethodPost, "/api/anonymize", body)

	require.Equal(t, http.StatusOK, rec.Code)

	var result anonymizer.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "<KIELTOLISTA_TUNNISTE> etenee aikataulussa.", result.Text)
}

func TestAnonymizeEndpointInvalidJSON(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	rec := ts.do(http.MethodPost, "/api/anonymize", `{"text": `)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid JSON body", resp.Error)
}

func TestAnonymizeEndpointBodyTooLarge(t *testing.T) {
	ts := newTestServer(t, Config{MaxBodyBytes: 64}, nil)

	body := `{"text": "` + strings.Repeat("a", 200) + `"}`
	rec := ts.do(http.MethodPost, "/api/anonymize", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAnonymizeEndpointMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	rec := ts.do(http.MethodGet, "/api/anonymize", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBatchEndpoint(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	body := `{"items": [
		{"text": "Moikka, olen Matti Meikäläinen ja mun puhelinnumero on 0401234567."},
		{"text": "Matti Meikäläinen soitti."}
	]}`
	rec := ts.do(http.MethodPost, "/api/anonymize/batch", body)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results            []anonymizer.Result `json:"results"`
		CombinedStatistics map[string]int      `json:"combined_statistics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Moikka, olen <NIMI> ja mun puhelinnumero on <PUHELIN>.", resp.Results[0].Text)
	assert.Equal(t, "<NIMI> soitti.", resp.Results[1].Text)
	assert.Equal(t, map[string]int{"NIMI": 2, "PUHELIN": 1}, resp.CombinedStatistics)
}

func TestBatchEndpointEmpty(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	rec := ts.do(http.MethodPost, "/api/anonymize/batch", `{"items": []}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results            []anonymizer.Result `json:"results"`
		CombinedStatistics map[string]int      `json:"combined_statistics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Results)
	assert.Empty(t, resp.CombinedStatistics)
}

func TestProfilesEndpoint(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)
	ts.writeProfile(t, "palautteet", "blocklist.txt", "projekti tempo\n")
	ts.writeProfile(t, "kirjaamo", "grantlist.txt", "helsinki\n")

	rec := ts.do(http.MethodGet, "/api/profiles", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp profilesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"kirjaamo", "palautteet"}, resp.Profiles)
}

func TestProfilesEndpointEmptyRoot(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	rec := ts.do(http.MethodGet, "/api/profiles", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"profiles": []}`, rec.Body.String())
}

func TestHealthzEndpoint(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	rec := ts.do(http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	body := `{"text": "Moikka, olen Matti Meikäläinen ja mun puhelinnumero on 0401234567."}`
	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/anonymize", body).Code)

	rec := ts.do(http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	metrics := rec.Body.String()
	assert.Contains(t, metrics, `anonymizer_texts_total{status="success"} 1`)
	assert.Contains(t, metrics, `anonymizer_spans_total{label="NIMI"} 1`)
	assert.Contains(t, metrics, `anonymizer_http_requests_total{endpoint="anonymize",method="POST",status_code="200"} 1`)
	assert.Contains(t, metrics, "anonymizer_registries_cached 1")
}

func TestRequestIDGenerated(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	rec := ts.do(http.MethodGet, "/healthz", "")

	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDEchoed(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestUnknownPathNotFound(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	rec := ts.do(http.MethodGet, "/nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEndpointName(t *testing.T) {
	assert.Equal(t, "anonymize", endpointName("/api/anonymize"))
	assert.Equal(t, "anonymize_batch", endpointName("/api/anonymize/batch"))
	assert.Equal(t, "profiles", endpointName("/api/profiles"))
	assert.Equal(t, "healthz", endpointName("/healthz"))
	assert.Equal(t, "metrics", endpointName("/metrics"))
	assert.Equal(t, "unknown", endpointName("/nope"))
}
