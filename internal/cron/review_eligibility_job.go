package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/logger"
)

const defaultReviewDelay = 24 * time.Hour

type reviewEligibilityRepo interface {
	MarkReviewEligible(ctx context.Context, deliveredBefore time.Time) (int64, error)
}

type ReviewEligibilityJobParams struct {
	Logger     *logger.Logger
	Repository reviewEligibilityRepo
	Delay      time.Duration
}

// NewReviewEligibilityJob flags delivered orders as reviewable once the
// settling window has passed.
func NewReviewEligibilityJob(params ReviewEligibilityJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	delay := params.Delay
	if delay <= 0 {
		delay = defaultReviewDelay
	}
	return &reviewEligibilityJob{
		logg:  params.Logger,
		repo:  params.Repository,
		delay: delay,
		now:   time.Now,
	}, nil
}

type reviewEligibilityJob struct {
	logg  *logger.Logger
	repo  reviewEligibilityRepo
	delay time.Duration
	now   func() time.Time
}

func (j *reviewEligibilityJob) Name() string { return "review-eligibility" }

func (j *reviewEligibilityJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.delay)
	updated, err := j.repo.MarkReviewEligible(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("review eligibility: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_updated": updated,
	})
	j.logg.Info(logCtx, "review eligibility sweep complete")
	return nil
}
