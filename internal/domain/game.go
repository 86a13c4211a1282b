package domain

import "time"

// GameArt holds the art chosen for a game.
type GameArt struct {
	Sprite        string `json:"sprite"`
	Background    string `json:"background"`
	SpriteURL     string `json:"sprite_url,omitempty"`
	BackgroundURL string `json:"background_url,omitempty"`
}

// GamePhysics carries the engine tuning knobs stored with a game.
type GamePhysics struct {
	Gravity float64 `json:"gravity"`
}

// Game is the playable envelope persisted for a prompt.
type Game struct {
	Slug            string      `json:"slug"`
	Version         int         `json:"version"`
	Title           string      `json:"title"`
	Prompt          string      `json:"prompt"`
	Art             GameArt     `json:"art"`
	BackgroundColor string      `json:"background_color,omitempty"`
	Tags            []string    `json:"tags"`
	Physics         GamePhysics `json:"physics"`
	Win             string      `json:"win"`
	Lose            string      `json:"lose"`
	CreatedAt       time.Time   `json:"created_at"`
}
