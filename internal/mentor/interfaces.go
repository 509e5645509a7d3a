package mentor

import (
	"context"

	"github.com/felixgeelhaar/codementor/internal/domain"
)

// MentorService defines the interface for mentor operations
// used by the wizard, the daemon handlers and the MCP tools
type MentorService interface {
	// Assess classifies an attempt; it always returns an assessment
	Assess(ctx context.Context, req AssessRequest) domain.Assessment

	// GenerateReview produces a review for an assessed attempt
	GenerateReview(ctx context.Context, req ReviewRequest) (string, error)

	// GenerateStarter produces a skeleton for a task
	GenerateStarter(ctx context.Context, req StarterRequest) (string, error)
}

// Ensure Service implements MentorService
var _ MentorService = (*Service)(nil)
