// Package screening runs the per-application resume screening pipeline
// that the queue consumer feeds.
package screening

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/kbir-dev/FWC-HRMS-sub001/analysis"
	"github.com/kbir-dev/FWC-HRMS-sub001/domain"
	"github.com/kbir-dev/FWC-HRMS-sub001/scoring"
)

// ErrInvalidJobPosting means the posting lacks the data scoring needs.
var ErrInvalidJobPosting = errors.New("job posting is missing data required for screening")

// Store is the persistence surface the pipeline needs. Every step's
// output is written through one of these before the next step runs, so
// a crashed job resumes cheaply on retry.
type Store interface {
	GetApplication(ctx context.Context, id uuid.UUID) (*domain.Application, error)
	GetJobPosting(ctx context.Context, id uuid.UUID) (*domain.JobPosting, error)

	SaveResumeText(ctx context.Context, applicationID uuid.UUID, text string) error
	SaveYearsOfExperience(ctx context.Context, applicationID uuid.UUID, years float64) error
	SaveResumeEmbedding(ctx context.Context, applicationID uuid.UUID, vector []float32) error
	SaveJDEmbedding(ctx context.Context, postingID uuid.UUID, vector []float32) error

	// CosineSimilarity runs the store's vector-distance query between
	// the application's resume embedding and the posting's description
	// embedding, returning 1 - distance.
	CosineSimilarity(ctx context.Context, applicationID, postingID uuid.UUID) (float64, error)

	MarkScreeningStarted(ctx context.Context, applicationID uuid.UUID) error
	SaveScreeningResult(ctx context.Context, applicationID uuid.UUID, score float64, breakdown domain.ScoreBreakdown, status domain.ApplicationStatus) error
	MarkScreeningFailed(ctx context.Context, applicationID uuid.UUID, stage, message string) error
}

// Extractor turns a stored resume file into normalized text.
type Extractor interface {
	Extract(path string) (string, error)
}

// Embedder is the slice of the model gateway the pipeline uses.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProgressFunc receives lifecycle signals as the pipeline advances,
// 0-100 per job.
type ProgressFunc func(applicationID uuid.UUID, percent int)

// Config bounds worker throughput. Both limits apply simultaneously: a
// job must find a free concurrency slot AND a start token in the
// rolling window before its pipeline begins.
type Config struct {
	MaxConcurrent   int
	StartsPerWindow int
	Window          time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 2
	}
	if c.StartsPerWindow <= 0 {
		c.StartsPerWindow = 10
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	return c
}

// Worker drives applications through the screening pipeline.
type Worker struct {
	store     Store
	extractor Extractor
	analyzer  *analysis.Analyzer
	embedder  Embedder

	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	progress ProgressFunc
	logger   *zap.Logger
}

func NewWorker(store Store, extractor Extractor, analyzer *analysis.Analyzer, embedder Embedder, cfg Config, logger *zap.Logger) *Worker {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		store:     store,
		extractor: extractor,
		analyzer:  analyzer,
		embedder:  embedder,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		limiter:   rate.NewLimiter(rate.Every(cfg.Window/time.Duration(cfg.StartsPerWindow)), cfg.StartsPerWindow),
		progress:  nil,
		logger:    logger,
	}
}

// SetProgressFunc registers a lifecycle listener. Progress is always
// logged regardless.
func (w *Worker) SetProgressFunc(fn ProgressFunc) {
	w.progress = fn
}

// Process runs one screening job to completion or failure. It blocks
// until the governor admits the job, then runs the pipeline steps
// sequentially; there is no mid-flight cancellation. The returned
// error, if any, is the pipeline failure the queue may retry on.
func (w *Worker) Process(ctx context.Context, job domain.ScreeningJob) error {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire worker slot: %w", err)
	}
	defer w.sem.Release(1)

	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate window: %w", err)
	}

	log := w.logger.With(
		zap.String("application_id", job.ApplicationID.String()),
		zap.Int("attempt", job.Attempt),
	)
	log.Info("screening started")

	err := w.runPipeline(ctx, job.ApplicationID, log)
	if err == nil {
		log.Info("screening completed")
		return nil
	}

	// Best-effort failure transition; the original error is what the
	// queue sees either way.
	stage, message := failureRecord(err)
	if markErr := w.store.MarkScreeningFailed(ctx, job.ApplicationID, stage, message); markErr != nil {
		log.Error("could not record screening failure", zap.Error(markErr))
	}
	log.Warn("screening failed", zap.String("stage", stage), zap.Error(err))
	return err
}

type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.err) }
func (e *stageError) Unwrap() error { return e.err }

func failAt(stage string, err error) error {
	return &stageError{stage: stage, err: err}
}

func failureRecord(err error) (stage, message string) {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage, se.err.Error()
	}
	return "pipeline", err.Error()
}

func (w *Worker) runPipeline(ctx context.Context, applicationID uuid.UUID, log *zap.Logger) error {
	app, err := w.store.GetApplication(ctx, applicationID)
	if err != nil {
		return failAt("load", err)
	}
	posting, err := w.store.GetJobPosting(ctx, app.JobPostingID)
	if err != nil {
		return failAt("load", err)
	}
	if posting.ScreenableText() == "" {
		return failAt("load", fmt.Errorf("%w: posting %s has no description", ErrInvalidJobPosting, posting.ID))
	}
	// A score may only accompany a finished screening, so a rescreen
	// clears the previous run's result on entry. Best-effort: the
	// pipeline outcome overwrites these fields either way.
	if err := w.store.MarkScreeningStarted(ctx, applicationID); err != nil {
		log.Warn("could not mark application as screening", zap.Error(err))
	}
	w.report(applicationID, log, 10)

	// Step 1: cache resume text if absent.
	if app.ResumeText == nil {
		text, err := w.extractor.Extract(app.ResumeFilePath)
		if err != nil {
			return failAt("extraction", err)
		}
		if err := w.store.SaveResumeText(ctx, applicationID, text); err != nil {
			return failAt("extraction", err)
		}
		app.ResumeText = &text
	}
	w.report(applicationID, log, 25)

	// Step 2: structured info; backfill years only when unknown.
	profile := w.analyzer.Analyze(*app.ResumeText)
	if app.YearsOfExperience == nil && profile.YearsOfExperience != nil {
		if err := w.store.SaveYearsOfExperience(ctx, applicationID, *profile.YearsOfExperience); err != nil {
			return failAt("analysis", err)
		}
		app.YearsOfExperience = profile.YearsOfExperience
	}
	w.report(applicationID, log, 40)

	// Step 3: resume embedding.
	if app.ResumeEmbedding == nil {
		vec, err := w.embedder.Embed(ctx, *app.ResumeText)
		if err != nil {
			return failAt("embedding", err)
		}
		if err := w.store.SaveResumeEmbedding(ctx, applicationID, vec); err != nil {
			return failAt("embedding", err)
		}
	}
	w.report(applicationID, log, 60)

	// Step 4: lazily cache the posting embedding. Two first-screenings
	// of the same posting may both compute it; the write is idempotent
	// so the race is benign.
	if posting.JDEmbedding == nil {
		vec, err := w.embedder.Embed(ctx, posting.ScreenableText())
		if err != nil {
			return failAt("jd_embedding", err)
		}
		if err := w.store.SaveJDEmbedding(ctx, posting.ID, vec); err != nil {
			return failAt("jd_embedding", err)
		}
	}
	w.report(applicationID, log, 75)

	// Step 5: similarity via the store's vector-distance query.
	similarity, err := w.store.CosineSimilarity(ctx, applicationID, posting.ID)
	if err != nil {
		return failAt("similarity", err)
	}
	w.report(applicationID, log, 85)

	// Steps 6-7: sub-scores, final score, status.
	score, breakdown := scoring.Score(scoring.Inputs{
		Similarity:     similarity,
		Keyword:        scoring.Keyword(*app.ResumeText, posting.RequiredSkills),
		CandidateYears: app.YearsOfExperience,
		RequiredYears:  posting.ExperienceLevel.RequiredYears(),
		Extras:         scoring.DefaultExtras,
	})
	status := scoring.StatusForScore(score)

	if err := w.store.SaveScreeningResult(ctx, applicationID, score, breakdown, status); err != nil {
		return failAt("persistence", err)
	}
	w.report(applicationID, log, 100)

	log.Info("application scored",
		zap.Float64("score", score),
		zap.String("status", string(status)),
	)
	return nil
}

func (w *Worker) report(applicationID uuid.UUID, log *zap.Logger, percent int) {
	log.Debug("screening progress", zap.Int("percent", percent))
	if w.progress != nil {
		w.progress(applicationID, percent)
	}
}
