package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/racemap/internal/core/ports"
	"github.com/samirrijal/racemap/internal/core/usecases"
)

// TrackNotifier announces validated track files.
type TrackNotifier interface {
	PublishTrackUpdated(ctx context.Context, path string) error
}

// TrackActivities holds the activity implementations for track validation.
type TrackActivities struct {
	Source   ports.TrackSource
	Parse    ports.TrackParser
	Notifier TrackNotifier
}

// parseErrorType tags parse failures, which repeat on every attempt.
const parseErrorType = "TrackParseError"

// ValidateTrack fetches, parses and checks one track file. Fetch failures
// are retried by the workflow's policy; parse failures are not.
func (a *TrackActivities) ValidateTrack(ctx context.Context, path string) (usecases.ValidationReport, error) {
	raw, err := a.Source.Fetch(ctx, path)
	if err != nil {
		return usecases.ValidationReport{}, fmt.Errorf("fetch %s: %w", path, err)
	}
	track, err := a.Parse(raw)
	if err != nil {
		return usecases.ValidationReport{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("parse %s", path), parseErrorType, err)
	}

	report := usecases.ValidateTrack(path, track)
	activity.GetLogger(ctx).Info("track validated",
		"path", path, "points", report.Points, "km", report.TotalDistanceKm, "problems", len(report.Problems))
	return report, nil
}

// AnnounceTrack publishes a track update so API caches drop stale content.
func (a *TrackActivities) AnnounceTrack(ctx context.Context, path string) error {
	if a.Notifier == nil {
		activity.GetLogger(ctx).Info("no notifier configured, skipping announce", "path", path)
		return nil
	}
	if err := a.Notifier.PublishTrackUpdated(ctx, path); err != nil {
		return fmt.Errorf("announce %s: %w", path, err)
	}
	return nil
}
