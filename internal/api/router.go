// Package api serves stored runs over a read-only HTTP API.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/forPelevin/panelscribe/internal/store"
	"github.com/forPelevin/panelscribe/internal/types"
)

// RunReader is the read side of the run store.
type RunReader interface {
	ListRuns(ctx context.Context, limit int) ([]store.RunInfo, error)
	GetRun(ctx context.Context, id string) (types.Report, error)
	Records(ctx context.Context, id string) ([]types.TranscriptRecord, error)
	Speakers(ctx context.Context, id string) ([]types.SpeakerSummary, error)
}

type Options struct {
	AllowedOrigins []string
	Log            logrus.FieldLogger
}

func NewRouter(runs RunReader, opt Options) *chi.Mux {
	log := opt.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(Logger(log))
	r.Use(cors.Handler(corsOptions(opt.AllowedOrigins)))

	h := &runsHandler{runs: runs, log: log}
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health)
		r.Get("/runs", h.list)
		r.Get("/runs/{id}", h.get)
		r.Get("/runs/{id}/records", h.records)
		r.Get("/runs/{id}/speakers", h.speakers)
	})
	return r
}

func corsOptions(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
