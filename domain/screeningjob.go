package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScreeningJob is the queue payload asking a worker to screen one
// application. Attempt counts deliveries, starting at 1.
type ScreeningJob struct {
	ApplicationID uuid.UUID `json:"application_id"`
	Attempt       int       `json:"attempt"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}
