package sentimentapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeLabel(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"object", `{"label":"POSITIVE","score":0.9}`, "positive", false},
		{"list", `[{"label":"negative","score":0.2},{"label":"neutral","score":0.7}]`, "neutral", false},
		{"nested", `[[{"label":"negative","score":0.8},{"label":"positive","score":0.1}]]`, "negative", false},
		{"no label", `{"score":1}`, "", true},
		{"garbage", `nope`, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeLabel([]byte(tc.body))
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestClassify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/classify" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req classifyReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		label := "negative"
		if req.Text == "love it" {
			label = "positive"
		}
		_ = json.NewEncoder(w).Encode(score{Label: label, Score: 0.99})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", 0)
	got, err := c.Classify(context.Background(), "love it")
	require.NoError(t, err)
	require.Equal(t, "positive", got)

	got, err = c.Classify(context.Background(), "hate it")
	require.NoError(t, err)
	require.Equal(t, "negative", got)
}

func TestClassify_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL, 0).Classify(context.Background(), "x")
	require.ErrorContains(t, err, "model loading")
}
