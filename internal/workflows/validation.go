package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/racemap/internal/core/domain"
	"github.com/samirrijal/racemap/internal/core/usecases"
)

// TrackValidationInput is the input for the track validation workflow.
type TrackValidationInput struct {
	// Paths defaults to the track files of the known routes.
	Paths []string
	// Announce publishes a track update for every file that passes.
	Announce bool
}

// TrackValidationResult collects one report per path.
type TrackValidationResult struct {
	Reports []usecases.ValidationReport
	Failed  []string
}

// TrackValidationWorkflow validates track files one by one and announces
// the ones that pass. A file whose activity keeps failing is listed in
// Failed and does not stop the others.
func TrackValidationWorkflow(ctx workflow.Context, input TrackValidationInput) (*TrackValidationResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting track validation workflow", "files", len(input.Paths))

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	if len(input.Paths) == 0 {
		for _, r := range domain.KnownRoutes {
			input.Paths = append(input.Paths, r.TrackFile())
		}
	}

	var a *TrackActivities
	result := &TrackValidationResult{}

	for _, path := range input.Paths {
		var report usecases.ValidationReport
		if err := workflow.ExecuteActivity(ctx, a.ValidateTrack, path).Get(ctx, &report); err != nil {
			logger.Warn("track validation failed", "path", path, "error", err)
			result.Failed = append(result.Failed, path)
			continue
		}
		result.Reports = append(result.Reports, report)

		if !report.OK() {
			logger.Warn("track has problems", "path", path, "problems", report.Problems)
			continue
		}
		if input.Announce {
			if err := workflow.ExecuteActivity(ctx, a.AnnounceTrack, path).Get(ctx, nil); err != nil {
				return result, err
			}
		}
	}

	logger.Info("Track validation finished", "ok", len(result.Reports), "failed", len(result.Failed))
	return result, nil
}
