package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"gamecre8/internal/assets"
	"gamecre8/internal/domain"
	"gamecre8/internal/infra"
	"gamecre8/internal/middleware"
	"gamecre8/internal/queue"
	"gamecre8/internal/runner"
	"gamecre8/internal/seed"
)

const maxRunBatch = 50

// App carries the collaborators shared by every HTTP handler.
type App struct {
	Queue     *queue.Queue
	Runner    *runner.Runner
	Manifests assets.ManifestSource
	Games     domain.GameRepository
	Seeds     *seed.Source
	Logger    *infra.Logger

	// BatchSize is the number of jobs a run-queue call claims when the
	// request does not say.
	BatchSize int
	// PublicSiteURL prefixes play links. Empty uses the request host.
	PublicSiteURL string
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorResponse{OK: false, Error: message, Code: code})
}

// fail maps err onto a status code and writes it.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, domain.ErrInvalidPrompt):
		status, code = http.StatusBadRequest, "invalid_prompt"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrNoAssets):
		status, code = http.StatusUnprocessableEntity, "no_assets"
	}
	if status == http.StatusInternalServerError {
		a.log().Error().Err(err).Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).Msg("handler failed")
	}
	a.error(w, status, code, err.Error())
}

func (a *App) log() *zerolog.Logger {
	if a.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return a.Logger
}
