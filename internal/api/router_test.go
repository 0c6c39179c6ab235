package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/panelscribe/internal/store"
	"github.com/forPelevin/panelscribe/internal/types"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	r := types.Report{
		RunID: "r1",
		Input: "panel.mp4",
		Run: types.TranscriptRun{ID: "r1", Records: []types.TranscriptRecord{
			{Index: 0, SpeakerID: "A", StartSec: 0, EndSec: 2, DurationSec: 2, Text: "hi"},
			{Index: 1, SpeakerID: "B", StartSec: 2, EndSec: 5, DurationSec: 3, Text: "hello"},
		}},
		Speakers: []types.SpeakerSummary{
			{SpeakerID: "A", TotalDurationSec: 2, ConcatenatedText: "hi", KeywordFrequency: map[string]int{"hi": 1}},
			{SpeakerID: "B", TotalDurationSec: 3, ConcatenatedText: "hello", KeywordFrequency: map[string]int{"hello": 1}},
		},
		SpeakerCount: 2,
	}
	require.NoError(t, s.SaveReport(context.Background(), r))
	return s
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRoutes(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	h := NewRouter(seededStore(t), Options{Log: log})

	rec := get(t, h, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.Empty(t, hook.AllEntries(), "health checks are not logged")

	rec = get(t, h, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []store.RunInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	require.Equal(t, "r1", runs[0].ID)
	require.Equal(t, 2, runs[0].RecordCount)

	rec = get(t, h, "/api/runs/r1")
	require.Equal(t, http.StatusOK, rec.Code)
	var rep types.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	require.Equal(t, "panel.mp4", rep.Input)

	rec = get(t, h, "/api/runs/r1/records")
	require.Equal(t, http.StatusOK, rec.Code)
	var recs []types.TranscriptRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.Len(t, recs, 2)
	require.Equal(t, "B", recs[1].SpeakerID)

	rec = get(t, h, "/api/runs/r1/speakers")
	require.Equal(t, http.StatusOK, rec.Code)
	var spk []types.SpeakerSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spk))
	require.Equal(t, "A", spk[0].SpeakerID)

	require.NotEmpty(t, hook.AllEntries())
	require.Equal(t, "/api/runs", hook.AllEntries()[0].Data["path"])
}

func TestRoutes_Errors(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	h := NewRouter(seededStore(t), Options{Log: log})

	require.Equal(t, http.StatusNotFound, get(t, h, "/api/runs/missing").Code)
	require.Equal(t, http.StatusNotFound, get(t, h, "/api/runs/missing/records").Code)
	require.Equal(t, http.StatusBadRequest, get(t, h, "/api/runs?limit=zero").Code)
	require.Equal(t, http.StatusNotFound, get(t, h, "/nope").Code)
}

type brokenStore struct{ RunReader }

func (brokenStore) ListRuns(context.Context, int) ([]store.RunInfo, error) {
	return nil, errors.New("disk gone")
}

func TestRoutes_StoreFailureIs500(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	h := NewRouter(brokenStore{}, Options{Log: log})

	rec := get(t, h, "/api/runs")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "disk gone")

	var sawErr bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			sawErr = true
		}
	}
	require.True(t, sawErr)
}

func TestCORS(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	h := NewRouter(seededStore(t), Options{Log: log, AllowedOrigins: []string{"https://ui.example"}})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://ui.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "https://ui.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
