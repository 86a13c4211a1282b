// Package runner drains the prompt queue: every claimed job has its art
// selected, a game generated and the game persisted, and the outcome is
// written back to the queue.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"gamecre8/internal/assets"
	"gamecre8/internal/domain"
	"gamecre8/internal/game"
	"gamecre8/internal/infra"
	"gamecre8/internal/queue"
)

const (
	stageGenerate = "generate"
	stagePersist  = "persist"
)

// Options tunes a Runner.
type Options struct {
	// Concurrency bounds how many claimed jobs are processed at once.
	Concurrency int
	// Limiter, when set, paces generation calls.
	Limiter   *rate.Limiter
	Extractor assets.TagExtractor
	Rand      assets.RandSource
	Logger    *infra.Logger
}

// Runner turns queued prompts into stored games.
type Runner struct {
	queue       *queue.Queue
	manifests   assets.ManifestSource
	generator   game.Generator
	games       domain.GameRepository
	extractor   assets.TagExtractor
	selector    *assets.Selector
	limiter     *rate.Limiter
	concurrency int
	logger      zerolog.Logger
}

// JobResult is the outcome of one claimed job.
type JobResult struct {
	JobID  string           `json:"job_id"`
	Prompt string           `json:"prompt"`
	Status domain.JobStatus `json:"status"`
	Slug   string           `json:"slug,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// PassReport summarizes a RunPass call.
type PassReport struct {
	Claimed int         `json:"claimed"`
	Done    int         `json:"done"`
	Failed  int         `json:"failed"`
	Results []JobResult `json:"results"`
}

// Slugs returns the slugs of the games produced in the pass, in claim order.
func (p PassReport) Slugs() []string {
	out := make([]string, 0, p.Done)
	for _, r := range p.Results {
		if r.Slug != "" {
			out = append(out, r.Slug)
		}
	}
	return out
}

// New wires a Runner.
func New(q *queue.Queue, manifests assets.ManifestSource, generator game.Generator, games domain.GameRepository, opts Options) *Runner {
	r := &Runner{
		queue:       q,
		manifests:   manifests,
		generator:   generator,
		games:       games,
		extractor:   opts.Extractor,
		selector:    assets.NewSelector(opts.Rand),
		limiter:     opts.Limiter,
		concurrency: opts.Concurrency,
		logger:      zerolog.Nop(),
	}
	if r.concurrency <= 0 {
		r.concurrency = 1
	}
	if opts.Logger != nil {
		r.logger = *opts.Logger
	}
	return r
}

// RunPass claims up to n queued jobs and processes them. Job failures are
// recorded on the job and in the report; only a failure to claim is
// returned as an error.
func (r *Runner) RunPass(ctx context.Context, n int) (PassReport, error) {
	jobs, err := r.queue.Claim(ctx, n)
	report := PassReport{Claimed: len(jobs), Results: make([]JobResult, len(jobs))}
	if err != nil && len(jobs) == 0 {
		return report, err
	}
	if err != nil {
		r.logger.Warn().Err(err).Int("claimed", len(jobs)).Msg("runner: claim stopped early")
	}

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			report.Results[i] = r.process(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range report.Results {
		if res.Status == domain.JobStatusDone {
			report.Done++
		} else {
			report.Failed++
		}
	}
	r.logger.Info().Int("claimed", report.Claimed).Int("done", report.Done).Int("failed", report.Failed).Msg("runner: pass finished")
	return report, nil
}

// GenerateNow runs the pipeline for prompt without going through the queue
// and returns the stored game.
func (r *Runner) GenerateNow(ctx context.Context, prompt string) (*domain.Game, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, domain.ErrInvalidPrompt
	}
	g, err := r.pipeline(ctx, prompt)
	if err != nil {
		var se *stageError
		if errors.As(err, &se) {
			return nil, se.err
		}
		return nil, err
	}
	return g, nil
}

func (r *Runner) process(ctx context.Context, job domain.PromptJob) JobResult {
	res := JobResult{JobID: job.ID, Prompt: job.Prompt}
	log := r.logger.With().Str("job_id", job.ID).Logger()
	// Write-back must land even when the pass itself was cancelled.
	writeCtx := context.WithoutCancel(ctx)

	g, err := r.pipeline(ctx, job.Prompt)
	if err != nil {
		res.Status = domain.JobStatusError
		res.Error = err.Error()
		log.Warn().Err(err).Msg("runner: job failed")
		if ferr := r.queue.Fail(writeCtx, job.ID, res.Error); ferr != nil {
			log.Error().Err(ferr).Msg("runner: could not record failure")
		}
		return res
	}

	res.Slug = g.Slug
	if err := r.queue.Complete(writeCtx, job.ID, g.Slug); err != nil {
		log.Error().Err(err).Msg("runner: could not record completion")
		res.Status = domain.JobStatusWorking
		res.Error = err.Error()
		return res
	}
	res.Status = domain.JobStatusDone
	log.Info().Str("slug", g.Slug).Msg("runner: job done")
	return res
}

func (r *Runner) pipeline(ctx context.Context, prompt string) (*domain.Game, error) {
	manifest, err := r.manifests.Build(ctx)
	if err != nil {
		return nil, &stageError{stage: stageGenerate, err: fmt.Errorf("build manifest: %w", err)}
	}
	want := assets.WantTags(ctx, prompt, r.extractor, r.logger)
	sel, err := r.selector.SelectArt(manifest, want.Tags)
	if err != nil {
		return nil, &stageError{stage: stageGenerate, err: err}
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, &stageError{stage: stageGenerate, err: err}
		}
	}
	g, err := r.generator.Generate(ctx, game.Request{
		Prompt:          prompt,
		SpritePath:      sel.Sprite.Path,
		BackgroundPath:  sel.Background.Path,
		TagsUsed:        sel.TagsUsed,
		BackgroundColor: want.BackgroundColor,
	})
	if err != nil {
		return nil, &stageError{stage: stageGenerate, err: err}
	}
	ref, err := r.games.Save(ctx, g)
	if err != nil {
		return nil, &stageError{stage: stagePersist, err: err}
	}
	if ref != "" {
		g.Slug = ref
	}
	return g, nil
}

// stageError tags a pipeline failure with the step that produced it. Its
// text is what ends up in the job's error message.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }

func (e *stageError) Unwrap() error { return e.err }
