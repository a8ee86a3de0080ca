package screening

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kbir-dev/FWC-HRMS-sub001/analysis"
	"github.com/kbir-dev/FWC-HRMS-sub001/domain"
)

type fakeStore struct {
	mu      sync.Mutex
	app     domain.Application
	posting domain.JobPosting

	similarity float64

	saveTextCalls      int
	saveResumeVecCalls int
	saveJDVecCalls     int
}

func (s *fakeStore) GetApplication(_ context.Context, id uuid.UUID) (*domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app := s.app
	return &app, nil
}

func (s *fakeStore) GetJobPosting(_ context.Context, id uuid.UUID) (*domain.JobPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	posting := s.posting
	return &posting, nil
}

func (s *fakeStore) SaveResumeText(_ context.Context, _ uuid.UUID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveTextCalls++
	s.app.ResumeText = &text
	return nil
}

func (s *fakeStore) SaveYearsOfExperience(_ context.Context, _ uuid.UUID, years float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.app.YearsOfExperience = &years
	return nil
}

func (s *fakeStore) SaveResumeEmbedding(_ context.Context, _ uuid.UUID, _ []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveResumeVecCalls++
	vec := "[stored]"
	s.app.ResumeEmbedding = &vec
	return nil
}

func (s *fakeStore) SaveJDEmbedding(_ context.Context, _ uuid.UUID, _ []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveJDVecCalls++
	vec := "[stored]"
	s.posting.JDEmbedding = &vec
	return nil
}

func (s *fakeStore) CosineSimilarity(_ context.Context, _, _ uuid.UUID) (float64, error) {
	return s.similarity, nil
}

func (s *fakeStore) MarkScreeningStarted(_ context.Context, _ uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.app.Status = domain.StatusScreening
	s.app.ScreeningScore = nil
	s.app.ScreeningDetails = nil
	return nil
}

func (s *fakeStore) SaveScreeningResult(_ context.Context, _ uuid.UUID, score float64, breakdown domain.ScoreBreakdown, status domain.ApplicationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.app.ScreeningScore = &score
	s.app.ScreeningDetails = domain.BreakdownDetails(breakdown)
	s.app.Status = status
	return nil
}

func (s *fakeStore) MarkScreeningFailed(_ context.Context, _ uuid.UUID, stage, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.app.ScreeningScore = nil
	s.app.ScreeningDetails = domain.ErrorDetails(stage, message, time.Now())
	s.app.Status = domain.StatusScreeningFailed
	return nil
}

type stubExtractor struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (e *stubExtractor) Extract(_ string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	return e.text, nil
}

type stubEmbedder struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (e *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func newTestStore() *fakeStore {
	return &fakeStore{
		app: domain.Application{
			ID:             uuid.New(),
			JobPostingID:   uuid.New(),
			ResumeFilePath: "resumes/jane.pdf",
			Status:         domain.StatusReceived,
		},
		posting: domain.JobPosting{
			ID:              uuid.New(),
			Title:           "Backend Engineer",
			Description:     "Build Go services",
			RequiredSkills:  []string{"Go"},
			ExperienceLevel: domain.LevelMid,
		},
		similarity: 0.9,
	}
}

func job(store *fakeStore) domain.ScreeningJob {
	return domain.ScreeningJob{ApplicationID: store.app.ID, Attempt: 1, EnqueuedAt: time.Now()}
}

func newTestWorker(store *fakeStore, ex *stubExtractor, em *stubEmbedder) *Worker {
	return NewWorker(store, ex, analysis.New(), em, Config{}, nil)
}

func TestProcessScoresAndShortlists(t *testing.T) {
	store := newTestStore()
	extractor := &stubExtractor{text: "Go developer, 6 years of experience with PostgreSQL"}
	embedder := &stubEmbedder{}
	worker := newTestWorker(store, extractor, embedder)

	if err := worker.Process(context.Background(), job(store)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// similarity 0.9 (54) + experience 6>=2 (20) + keyword 1/1 (15)
	// + extras 0.5 (2.5) = 91.5
	if store.app.ScreeningScore == nil || *store.app.ScreeningScore != 91.5 {
		t.Fatalf("unexpected score: %v", store.app.ScreeningScore)
	}
	if store.app.Status != domain.StatusShortlisted {
		t.Fatalf("expected shortlisted, got %s", store.app.Status)
	}
	if store.app.ScreeningDetails == nil || store.app.ScreeningDetails.Breakdown == nil {
		t.Fatalf("expected a breakdown in screening details")
	}
	if store.app.ScreeningDetails.Error != nil {
		t.Fatalf("breakdown and error must never coexist")
	}
	if store.app.YearsOfExperience == nil || *store.app.YearsOfExperience != 6 {
		t.Fatalf("expected years backfilled to 6, got %v", store.app.YearsOfExperience)
	}
	// One embedding for the resume, one lazily for the posting.
	if embedder.calls != 2 {
		t.Fatalf("expected 2 embed calls, got %d", embedder.calls)
	}
	if store.saveJDVecCalls != 1 {
		t.Fatalf("expected posting embedding persisted once, got %d", store.saveJDVecCalls)
	}
}

func TestProcessSkipsCachedSteps(t *testing.T) {
	store := newTestStore()
	cached := "Cached resume text, Go, 3 years"
	vec := "[cached]"
	store.app.ResumeText = &cached
	store.app.ResumeEmbedding = &vec
	store.posting.JDEmbedding = &vec

	extractor := &stubExtractor{text: "should not be used"}
	embedder := &stubEmbedder{}
	worker := newTestWorker(store, extractor, embedder)

	if err := worker.Process(context.Background(), job(store)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if extractor.calls != 0 {
		t.Fatalf("extractor must not run when text is cached")
	}
	if embedder.calls != 0 {
		t.Fatalf("embedder must not run when embeddings are cached")
	}
	if store.app.Status.Terminal() == false {
		t.Fatalf("expected a terminal status, got %s", store.app.Status)
	}
}

func TestProcessExtractionFailure(t *testing.T) {
	store := newTestStore()
	extractErr := errors.New("file is corrupt")
	extractor := &stubExtractor{err: extractErr}
	worker := newTestWorker(store, extractor, &stubEmbedder{})

	err := worker.Process(context.Background(), job(store))
	if !errors.Is(err, extractErr) {
		t.Fatalf("expected extraction error to propagate for the retry policy, got %v", err)
	}

	if store.app.Status != domain.StatusScreeningFailed {
		t.Fatalf("expected screening_failed, got %s", store.app.Status)
	}
	if store.app.ScreeningScore != nil {
		t.Fatalf("failed screening must not carry a score")
	}
	details := store.app.ScreeningDetails
	if details == nil || details.Error == nil {
		t.Fatalf("expected an error record in details")
	}
	if details.Error.Stage != "extraction" {
		t.Fatalf("expected extraction stage, got %q", details.Error.Stage)
	}
	if details.Breakdown != nil {
		t.Fatalf("breakdown and error must never coexist")
	}
}

func TestProcessEmbeddingFailureKeepsPartialProgress(t *testing.T) {
	store := newTestStore()
	extractor := &stubExtractor{text: "Go developer, 4 years"}
	embedder := &stubEmbedder{err: errors.New("provider down")}
	worker := newTestWorker(store, extractor, embedder)

	if err := worker.Process(context.Background(), job(store)); err == nil {
		t.Fatalf("expected an error")
	}

	if store.app.Status != domain.StatusScreeningFailed {
		t.Fatalf("expected screening_failed, got %s", store.app.Status)
	}
	// The cached text written before the failure is retained, not
	// rolled back.
	if store.app.ResumeText == nil {
		t.Fatalf("expected resume text to survive the failure")
	}
}

func TestProcessRetrySucceedsCleanly(t *testing.T) {
	store := newTestStore()
	extractor := &stubExtractor{text: "Go developer, 6 years of experience"}
	embedder := &stubEmbedder{err: errors.New("transient outage")}
	worker := newTestWorker(store, extractor, embedder)

	j := job(store)
	for attempt := 1; attempt <= 2; attempt++ {
		j.Attempt = attempt
		if err := worker.Process(context.Background(), j); err == nil {
			t.Fatalf("attempt %d should fail", attempt)
		}
	}

	embedder.mu.Lock()
	embedder.err = nil
	embedder.mu.Unlock()

	j.Attempt = 3
	if err := worker.Process(context.Background(), j); err != nil {
		t.Fatalf("third attempt should succeed: %v", err)
	}

	if store.app.Status != domain.StatusShortlisted {
		t.Fatalf("expected status from the successful attempt, got %s", store.app.Status)
	}
	if store.app.ScreeningScore == nil {
		t.Fatalf("expected a score after the successful attempt")
	}
	if store.app.ScreeningDetails == nil || store.app.ScreeningDetails.Breakdown == nil || store.app.ScreeningDetails.Error != nil {
		t.Fatalf("expected a clean breakdown, no stale error record")
	}
}

func TestProcessInvalidPosting(t *testing.T) {
	store := newTestStore()
	store.posting.Description = ""
	store.posting.Requirements = ""
	worker := newTestWorker(store, &stubExtractor{text: "x"}, &stubEmbedder{})

	err := worker.Process(context.Background(), job(store))
	if !errors.Is(err, ErrInvalidJobPosting) {
		t.Fatalf("expected ErrInvalidJobPosting, got %v", err)
	}
	if store.app.Status != domain.StatusScreeningFailed {
		t.Fatalf("expected screening_failed, got %s", store.app.Status)
	}
}

func TestProcessRescreenClearsPreviousScore(t *testing.T) {
	store := newTestStore()
	stale := 88.0
	store.app.ScreeningScore = &stale
	store.app.ScreeningDetails = domain.BreakdownDetails(domain.ScoreBreakdown{FinalScore: stale})
	store.app.Status = domain.StatusShortlisted

	var scoreDuringRun *float64
	var statusDuringRun domain.ApplicationStatus
	extractor := &blockingExtractor{enter: func() {
		store.mu.Lock()
		scoreDuringRun = store.app.ScreeningScore
		statusDuringRun = store.app.Status
		store.mu.Unlock()
	}}
	worker := NewWorker(store, extractor, analysis.New(), &stubEmbedder{}, Config{}, nil)

	if err := worker.Process(context.Background(), job(store)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if scoreDuringRun != nil {
		t.Fatalf("stale score must be cleared while the rescreen is in flight, saw %v", *scoreDuringRun)
	}
	if statusDuringRun != domain.StatusScreening {
		t.Fatalf("expected in-flight status screening, got %s", statusDuringRun)
	}
	if store.app.ScreeningScore == nil || *store.app.ScreeningScore == stale {
		t.Fatalf("expected a fresh score from the rescreen, got %v", store.app.ScreeningScore)
	}
	if store.app.Status != domain.StatusShortlisted {
		t.Fatalf("expected shortlisted after the rescreen, got %s", store.app.Status)
	}
}

func TestProcessThrottlesJobStarts(t *testing.T) {
	store := newTestStore()
	worker := NewWorker(store, &stubExtractor{text: "Go developer, 6 years"}, analysis.New(), &stubEmbedder{}, Config{
		MaxConcurrent:   4,
		StartsPerWindow: 1,
		Window:          200 * time.Millisecond,
	}, nil)

	begin := time.Now()
	for i := 0; i < 3; i++ {
		if err := worker.Process(context.Background(), job(store)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	elapsed := time.Since(begin)

	// Burst equals starts-per-window, so the first job starts at once
	// and each later one waits a full window for its token.
	if elapsed < 300*time.Millisecond {
		t.Fatalf("three starts took %v, expected the limiter to hold the later ones back", elapsed)
	}
}

func TestProcessBoundsConcurrency(t *testing.T) {
	store := newTestStore()

	var mu sync.Mutex
	inflight, peak := 0, 0
	extractor := &blockingExtractor{
		enter: func() {
			mu.Lock()
			inflight++
			if inflight > peak {
				peak = inflight
			}
			mu.Unlock()
			time.Sleep(30 * time.Millisecond)
			mu.Lock()
			inflight--
			mu.Unlock()
		},
	}

	worker := NewWorker(store, extractor, analysis.New(), &stubEmbedder{}, Config{MaxConcurrent: 1}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = worker.Process(context.Background(), job(store))
		}()
	}
	wg.Wait()

	if peak > 1 {
		t.Fatalf("expected at most 1 in-flight pipeline, saw %d", peak)
	}
}

type blockingExtractor struct {
	enter func()
}

func (e *blockingExtractor) Extract(_ string) (string, error) {
	e.enter()
	return "Go developer, 6 years", nil
}
