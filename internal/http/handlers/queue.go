package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"gamecre8/internal/domain"
	"gamecre8/internal/runner"
)

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type queuePromptResponse struct {
	OK      bool              `json:"ok"`
	Skipped bool              `json:"skipped"`
	Job     *domain.PromptJob `json:"job,omitempty"`
}

type autoEnqueueResponse struct {
	OK       bool   `json:"ok"`
	Enqueued int    `json:"enqueued"`
	Skipped  int    `json:"skipped"`
	Note     string `json:"note,omitempty"`
}

type runQueueResponse struct {
	OK bool `json:"ok"`
	runner.PassReport
	SlugList []string `json:"slugs"`
}

type jobResponse struct {
	OK  bool              `json:"ok"`
	Job *domain.PromptJob `json:"job"`
}

type promptToPlayResponse struct {
	OK      bool              `json:"ok"`
	Prompt  string            `json:"prompt"`
	Skipped bool              `json:"skipped"`
	Run     runner.PassReport `json:"run"`
	Slug    string            `json:"slug,omitempty"`
	PlayURL string            `json:"play_url,omitempty"`
}

// QueuePrompt enqueues ?prompt= or a JSON {"prompt": ...} body.
func (a *App) QueuePrompt(w http.ResponseWriter, r *http.Request) {
	prompt, err := readPrompt(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	res, err := a.Queue.Enqueue(r.Context(), prompt)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, queuePromptResponse{OK: true, Skipped: res.Skipped, Job: res.Job})
}

// AutoEnqueue loads the seed prompt list and enqueues every new prompt.
func (a *App) AutoEnqueue(w http.ResponseWriter, r *http.Request) {
	prompts, err := a.Seeds.Load(r.Context())
	if errors.Is(err, domain.ErrNotFound) {
		a.json(w, http.StatusOK, autoEnqueueResponse{OK: true, Note: "no prompt list found"})
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if len(prompts) == 0 {
		a.json(w, http.StatusOK, autoEnqueueResponse{OK: true, Note: "prompt list empty"})
		return
	}
	res, err := a.Queue.EnqueueMany(r.Context(), prompts)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, autoEnqueueResponse{OK: true, Enqueued: len(res.Enqueued), Skipped: res.Skipped})
}

// RunQueue runs one pass over up to ?n= queued jobs.
func (a *App) RunQueue(w http.ResponseWriter, r *http.Request) {
	n, err := a.batchSize(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	report, err := a.Runner.RunPass(r.Context(), n)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, runQueueResponse{OK: true, PassReport: report, SlugList: report.Slugs()})
}

// GetJob reports a job's status.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Queue.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, jobResponse{OK: true, Job: job})
}

// RequeueJob enqueues the prompt of an errored job again.
func (a *App) RequeueJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Queue.Requeue(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, jobResponse{OK: true, Job: job})
}

// PromptToPlay enqueues a prompt, runs a pass right away and answers with
// the play link of the resulting game. ?redirect=1 turns the answer into a
// redirect.
func (a *App) PromptToPlay(w http.ResponseWriter, r *http.Request) {
	prompt := strings.TrimSpace(r.URL.Query().Get("prompt"))
	if prompt == "" {
		a.error(w, http.StatusBadRequest, "invalid_prompt", "provide ?prompt=your%20idea")
		return
	}
	queued, err := a.Queue.Enqueue(r.Context(), prompt)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	report, err := a.Runner.RunPass(r.Context(), a.defaultBatch())
	if err != nil {
		a.fail(w, r, err)
		return
	}

	resp := promptToPlayResponse{Prompt: prompt, Skipped: queued.Skipped, Run: report}
	resp.Slug = pickSlug(report, queued.Job)
	if resp.Slug != "" {
		resp.OK = true
		resp.PlayURL = a.siteURL(r) + "/play.html?slug=" + url.QueryEscape(resp.Slug)
	}
	if r.URL.Query().Get("redirect") == "1" && resp.PlayURL != "" {
		http.Redirect(w, r, resp.PlayURL, http.StatusFound)
		return
	}
	a.json(w, http.StatusOK, resp)
}

// pickSlug prefers the game built for job and falls back to the first game
// of the pass.
func pickSlug(report runner.PassReport, job *domain.PromptJob) string {
	if job != nil {
		for _, res := range report.Results {
			if res.JobID == job.ID {
				return res.Slug
			}
		}
	}
	if slugs := report.Slugs(); len(slugs) > 0 {
		return slugs[0]
	}
	return ""
}

func (a *App) batchSize(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("n"))
	if raw == "" {
		return a.defaultBatch(), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("n must be a positive integer")
	}
	return min(n, maxRunBatch), nil
}

func (a *App) defaultBatch() int {
	if a.BatchSize > 0 {
		return a.BatchSize
	}
	return 1
}

func (a *App) siteURL(r *http.Request) string {
	if a.PublicSiteURL != "" {
		return strings.TrimRight(a.PublicSiteURL, "/")
	}
	scheme := "https"
	if r.TLS == nil && !strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "http"
	}
	return scheme + "://" + r.Host
}

// readPrompt takes ?prompt= first and falls back to a JSON body. An empty
// body is not an error; the queue rejects the blank prompt.
func readPrompt(r *http.Request) (string, error) {
	if p := strings.TrimSpace(r.URL.Query().Get("prompt")); p != "" || r.Method == http.MethodGet {
		return p, nil
	}
	var req promptRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(req.Prompt), nil
}
