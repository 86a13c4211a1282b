package handlers

import (
	"net/http"
	"time"

	"gamecre8/internal/domain"
)

const timeLayout = time.RFC3339

type assetCounts struct {
	Sprites     int `json:"sprites"`
	Backgrounds int `json:"backgrounds"`
}

type scanResponse struct {
	OK          bool        `json:"ok"`
	Counts      assetCounts `json:"counts"`
	GeneratedAt string      `json:"generated_at"`
}

type manifestResponse struct {
	OK       bool             `json:"ok"`
	Manifest *domain.Manifest `json:"manifest"`
}

// ScanAssets rebuilds the manifest and reports how many sprites and
// backgrounds were found.
func (a *App) ScanAssets(w http.ResponseWriter, r *http.Request) {
	m, err := a.Manifests.Build(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, scanResponse{
		OK:          true,
		Counts:      assetCounts{Sprites: len(m.Sprites), Backgrounds: len(m.Backgrounds)},
		GeneratedAt: m.GeneratedAt.Format(timeLayout),
	})
}

// Manifest returns a freshly built manifest snapshot.
func (a *App) Manifest(w http.ResponseWriter, r *http.Request) {
	m, err := a.Manifests.Build(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, manifestResponse{OK: true, Manifest: m})
}
