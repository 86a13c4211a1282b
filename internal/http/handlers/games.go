package handlers

import (
	"net/http"
	"strings"

	"gamecre8/internal/domain"
)

type gameResponse struct {
	OK   bool         `json:"ok"`
	Slug string       `json:"slug"`
	Game *domain.Game `json:"game"`
}

// Generate builds and stores a game for the prompt immediately, skipping
// the queue.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	prompt, err := readPrompt(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	g, err := a.Runner.GenerateNow(r.Context(), prompt)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, gameResponse{OK: true, Slug: g.Slug, Game: g})
}

// GetGame loads a stored game by ?slug=.
func (a *App) GetGame(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(r.URL.Query().Get("slug"))
	if slug == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "missing slug")
		return
	}
	g, err := a.Games.GetBySlug(r.Context(), slug)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, gameResponse{OK: true, Slug: g.Slug, Game: g})
}
