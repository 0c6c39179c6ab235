package openaiasr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"github.com/stretchr/testify/require"
)

func writeSilence(t *testing.T, path string, seconds int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	format := beep.Format{SampleRate: 16000, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(seconds*16000), format))
	require.NoError(t, f.Close())
}

func newServer(t *testing.T, body string, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Path != "/v1/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil || r.FormValue("response_format") != "verbose_json" {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTranscribe(t *testing.T) {
	var calls int32
	srv := newServer(t, `{"task":"transcribe","language":"english","duration":1.0,"text":" hello there "}`, &calls)
	in := filepath.Join(t.TempDir(), "turn.wav")
	writeSilence(t, in, 1)

	a := New("k", "", srv.URL+"/v1/")
	got, err := a.Transcribe(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "hello there", got.Text)
	require.Equal(t, "english", got.Language)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestTranscribe_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"nope"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()
	in := filepath.Join(t.TempDir(), "turn.wav")
	writeSilence(t, in, 1)

	_, err := New("k", "", srv.URL+"/v1").Transcribe(context.Background(), in)
	require.Error(t, err)
}

func TestDetectLanguage(t *testing.T) {
	var calls int32
	srv := newServer(t, `{"task":"transcribe","language":"german","duration":2.0,"text":"hallo"}`, &calls)
	in := filepath.Join(t.TempDir(), "full.wav")
	writeSilence(t, in, 2)

	got, err := New("k", "", srv.URL+"/v1").DetectLanguage(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "german", got)
}

func TestDetectLanguage_NoLanguage(t *testing.T) {
	var calls int32
	srv := newServer(t, `{"text":"hallo"}`, &calls)
	in := filepath.Join(t.TempDir(), "full.wav")
	writeSilence(t, in, 1)

	_, err := New("k", "", srv.URL+"/v1").DetectLanguage(context.Background(), in)
	require.Error(t, err)
}
