// Package interview decides whether a candidate may use interview-time
// features, based purely on scheduling data and the clock.
package interview

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kbir-dev/FWC-HRMS-sub001/domain"
)

// Window is how long after its scheduled time an interview stays open.
const Window = 2 * time.Hour

// Store loads scheduling data. The gate never writes.
type Store interface {
	InterviewsForApplication(ctx context.Context, applicationID uuid.UUID) ([]domain.Interview, error)
}

// Decision is a structured admit/deny. A denial is a normal outcome;
// only store failures surface as errors.
type Decision struct {
	Admitted  bool
	Reason    string
	Interview *domain.Interview
}

// Gate is a stateless per-request check in front of gated endpoints.
type Gate struct {
	store  Store
	logger *zap.Logger
}

func NewGate(store Store, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{store: store, logger: logger}
}

// Check admits the request iff the application has a scheduled
// interview whose window contains now. When several qualify, the most
// recently scheduled one wins.
func (g *Gate) Check(ctx context.Context, applicationID uuid.UUID, now time.Time) (Decision, error) {
	interviews, err := g.store.InterviewsForApplication(ctx, applicationID)
	if err != nil {
		return Decision{}, fmt.Errorf("load interviews: %w", err)
	}

	var active *domain.Interview
	for i := range interviews {
		iv := &interviews[i]
		if iv.Status != domain.InterviewScheduled {
			continue
		}
		if now.Before(iv.ScheduledAt) || now.After(iv.ScheduledAt.Add(Window)) {
			continue
		}
		if active == nil || iv.ScheduledAt.After(active.ScheduledAt) {
			active = iv
		}
	}

	if active == nil {
		g.logger.Debug("interview access denied",
			zap.String("application_id", applicationID.String()),
			zap.Time("now", now),
		)
		return Decision{Reason: "no active interview window"}, nil
	}
	return Decision{Admitted: true, Interview: active}, nil
}
