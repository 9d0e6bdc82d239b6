package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/logger"
)

type stubCleanupRepo struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (s *stubCleanupRepo) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	s.cutoff = olderThan
	return s.deleted, s.err
}

type stubReviewRepo struct {
	cutoff  time.Time
	updated int64
	err     error
}

func (s *stubReviewRepo) MarkReviewEligible(ctx context.Context, deliveredBefore time.Time) (int64, error) {
	s.cutoff = deliveredBefore
	return s.updated, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func TestNotificationCleanupUsesRetentionCutoff(t *testing.T) {
	repo := &stubCleanupRepo{deleted: 7}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     testLogger(),
		Repository: repo,
		Retention:  15,
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	if job.Name() != "notification-cleanup" {
		t.Fatalf("unexpected job name %q", job.Name())
	}

	before := time.Now().UTC().Add(-15 * 24 * time.Hour)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	after := time.Now().UTC().Add(-15 * 24 * time.Hour)
	if repo.cutoff.Before(before) || repo.cutoff.After(after) {
		t.Fatalf("cutoff %v outside expected retention window", repo.cutoff)
	}
}

func TestNotificationCleanupDefaultsRetention(t *testing.T) {
	repo := &stubCleanupRepo{}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     testLogger(),
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantCutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	if diff := repo.cutoff.Sub(wantCutoff); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("expected default 30 day retention, cutoff %v", repo.cutoff)
	}
}

func TestNotificationCleanupPropagatesErrors(t *testing.T) {
	repo := &stubCleanupRepo{err: errors.New("deadlock")}
	job, _ := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: testLogger(), Repository: repo})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected repository error to surface")
	}
}

func TestReviewEligibilityUsesDelayCutoff(t *testing.T) {
	repo := &stubReviewRepo{updated: 3}
	job, err := NewReviewEligibilityJob(ReviewEligibilityJobParams{
		Logger:     testLogger(),
		Repository: repo,
		Delay:      48 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewReviewEligibilityJob: %v", err)
	}
	if job.Name() != "review-eligibility" {
		t.Fatalf("unexpected job name %q", job.Name())
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantCutoff := time.Now().UTC().Add(-48 * time.Hour)
	if diff := repo.cutoff.Sub(wantCutoff); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("cutoff %v not derived from delay", repo.cutoff)
	}
}

func TestJobConstructorsRequireDependencies(t *testing.T) {
	if _, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected error without repository")
	}
	if _, err := NewReviewEligibilityJob(ReviewEligibilityJobParams{Repository: &stubReviewRepo{}}); err == nil {
		t.Fatal("expected error without logger")
	}
}
