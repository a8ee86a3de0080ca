package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kbir-dev/FWC-HRMS-sub001/domain"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the Postgres-backed persistence layer. Embeddings live in
// pgvector columns; similarity is computed inside the database.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewStore(dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("create vector extension: %w", err)
	}

	if err := db.AutoMigrate(&domain.JobPosting{}, &domain.Application{}, &domain.Interview{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	store := &Store{db: db, logger: logger}
	if err := store.seedPostings(); err != nil {
		return nil, err
	}

	logger.Info("connected to postgres and migrated schema")
	return store, nil
}

// seedPostings inserts a sample posting on an empty database so the
// service is usable right after first start.
func (s *Store) seedPostings() error {
	var count int64
	if err := s.db.Model(&domain.JobPosting{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count postings: %w", err)
	}
	if count > 0 {
		return nil
	}

	posting := domain.JobPosting{
		ID:    uuid.New(),
		Title: "Backend Engineer",
		Description: "Design and run Go backend services: RESTful APIs, relational data modeling, " +
			"message queues, and AI-assisted features at production scale.",
		Requirements:    "Strong Go, PostgreSQL, RabbitMQ, Docker. Cloud deployment experience preferred.",
		RequiredSkills:  []string{"Go", "PostgreSQL", "RabbitMQ", "Docker"},
		ExperienceLevel: domain.LevelMid,
	}
	if err := s.db.Create(&posting).Error; err != nil {
		return fmt.Errorf("seed postings: %w", err)
	}
	s.logger.Info("seeded initial job posting", zap.String("id", posting.ID.String()))
	return nil
}

func (s *Store) GetApplication(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	var app domain.Application
	if err := s.db.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound("application", err)
	}
	return &app, nil
}

func (s *Store) GetJobPosting(ctx context.Context, id uuid.UUID) (*domain.JobPosting, error) {
	var posting domain.JobPosting
	if err := s.db.WithContext(ctx).First(&posting, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound("job posting", err)
	}
	return &posting, nil
}

func (s *Store) ListJobPostings(ctx context.Context) ([]domain.JobPosting, error) {
	var postings []domain.JobPosting
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&postings).Error; err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}
	return postings, nil
}

func (s *Store) CreateApplication(ctx context.Context, app *domain.Application) error {
	if err := s.db.WithContext(ctx).Create(app).Error; err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

func (s *Store) CreateJobPosting(ctx context.Context, posting *domain.JobPosting) error {
	if err := s.db.WithContext(ctx).Create(posting).Error; err != nil {
		return fmt.Errorf("create posting: %w", err)
	}
	return nil
}

func (s *Store) CreateInterview(ctx context.Context, iv *domain.Interview) error {
	if err := s.db.WithContext(ctx).Create(iv).Error; err != nil {
		return fmt.Errorf("create interview: %w", err)
	}
	return nil
}

func (s *Store) InterviewsForApplication(ctx context.Context, applicationID uuid.UUID) ([]domain.Interview, error) {
	var interviews []domain.Interview
	err := s.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Find(&interviews).Error
	if err != nil {
		return nil, fmt.Errorf("load interviews: %w", err)
	}
	return interviews, nil
}

func (s *Store) SaveResumeText(ctx context.Context, applicationID uuid.UUID, text string) error {
	return s.updateApplication(ctx, applicationID, map[string]any{"resume_text": text})
}

func (s *Store) SaveYearsOfExperience(ctx context.Context, applicationID uuid.UUID, years float64) error {
	return s.updateApplication(ctx, applicationID, map[string]any{"years_of_experience": years})
}

func (s *Store) SaveResumeEmbedding(ctx context.Context, applicationID uuid.UUID, vector []float32) error {
	return s.updateApplication(ctx, applicationID, map[string]any{"resume_embedding": VectorLiteral(vector)})
}

// SaveJDEmbedding writes the posting's cached description embedding.
// The literal built from the same input vector is byte-identical, so a
// concurrent duplicate write cannot corrupt the stored value.
func (s *Store) SaveJDEmbedding(ctx context.Context, postingID uuid.UUID, vector []float32) error {
	err := s.db.WithContext(ctx).
		Model(&domain.JobPosting{}).
		Where("id = ?", postingID).
		Update("jd_embedding", VectorLiteral(vector)).Error
	if err != nil {
		return fmt.Errorf("save jd embedding: %w", err)
	}
	return nil
}

// CosineSimilarity returns 1 - cosine distance between the resume and
// posting embeddings, computed by pgvector inside the query.
func (s *Store) CosineSimilarity(ctx context.Context, applicationID, postingID uuid.UUID) (float64, error) {
	var similarity *float64
	err := s.db.WithContext(ctx).Raw(
		`SELECT 1 - (a.resume_embedding <=> j.jd_embedding)
		 FROM applications a, job_postings j
		 WHERE a.id = ? AND j.id = ?`,
		applicationID, postingID,
	).Scan(&similarity).Error
	if err != nil {
		return 0, fmt.Errorf("similarity query: %w", err)
	}
	if similarity == nil {
		return 0, errors.New("similarity query: one of the embeddings is missing")
	}
	return *similarity, nil
}

// MarkScreeningStarted moves the application into the in-flight status
// and clears any previous run's score and breakdown; a score may only
// accompany a finished screening.
func (s *Store) MarkScreeningStarted(ctx context.Context, applicationID uuid.UUID) error {
	return s.updateApplication(ctx, applicationID, map[string]any{
		"status":            domain.StatusScreening,
		"screening_score":   nil,
		"screening_details": nil,
	})
}

// SaveScreeningResult writes score, breakdown, and the new status in
// one update, keeping the score/status invariant intact.
func (s *Store) SaveScreeningResult(ctx context.Context, applicationID uuid.UUID, score float64, breakdown domain.ScoreBreakdown, status domain.ApplicationStatus) error {
	return s.updateApplication(ctx, applicationID, map[string]any{
		"screening_score":   score,
		"screening_details": domain.BreakdownDetails(breakdown),
		"status":            status,
	})
}

// MarkScreeningFailed records the failure in place of a breakdown and
// clears any stale score. Partial pipeline output (cached resume text,
// embeddings) is deliberately retained.
func (s *Store) MarkScreeningFailed(ctx context.Context, applicationID uuid.UUID, stage, message string) error {
	return s.updateApplication(ctx, applicationID, map[string]any{
		"screening_score":   nil,
		"screening_details": domain.ErrorDetails(stage, message, time.Now().UTC()),
		"status":            domain.StatusScreeningFailed,
	})
}

func (s *Store) updateApplication(ctx context.Context, applicationID uuid.UUID, fields map[string]any) error {
	res := s.db.WithContext(ctx).
		Model(&domain.Application{}).
		Where("id = ?", applicationID).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update application: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update application %s: %w", applicationID, ErrNotFound)
	}
	return nil
}

func wrapNotFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

// VectorLiteral renders a vector in pgvector's text format. The
// rendering is deterministic for a given input.
func VectorLiteral(vector []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
