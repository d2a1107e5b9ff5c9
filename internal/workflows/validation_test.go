package workflows_test

import (
	"context"
	"errors"
	"testing"

	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/racemap/internal/adapters/gpx"
	"github.com/samirrijal/racemap/internal/workflows"
)

const shortGPX = `<?xml version="1.0"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><trkseg>
    <trkpt lat="18.648198" lon="73.757481"></trkpt>
    <trkpt lat="18.648198" lon="73.758481"></trkpt>
  </trkseg></trk>
</gpx>`

type mockSource struct {
	fetchFn func(ctx context.Context, path string) (string, error)
}

func (m *mockSource) Fetch(ctx context.Context, path string) (string, error) {
	return m.fetchFn(ctx, path)
}

type mockNotifier struct {
	paths []string
}

func (m *mockNotifier) PublishTrackUpdated(ctx context.Context, path string) error {
	m.paths = append(m.paths, path)
	return nil
}

func TestTrackValidationWorkflow(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	notifier := &mockNotifier{}
	acts := &workflows.TrackActivities{
		Source: &mockSource{fetchFn: func(ctx context.Context, path string) (string, error) {
			if path == "missing.gpx" {
				return "", errors.New("not found")
			}
			return shortGPX, nil
		}},
		Parse:    gpx.ParseTrack,
		Notifier: notifier,
	}
	env.RegisterActivity(acts)

	env.ExecuteWorkflow(workflows.TrackValidationWorkflow, workflows.TrackValidationInput{
		Paths:    []string{"custom.gpx", "3KM.gpx", "missing.gpx"},
		Announce: true,
	})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}

	var result workflows.TrackValidationResult
	if err := env.GetWorkflowResult(&result); err != nil {
		t.Fatalf("result: %v", err)
	}
	if len(result.Reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(result.Reports))
	}
	if !result.Reports[0].OK() {
		t.Errorf("expected custom.gpx to pass, got %v", result.Reports[0].Problems)
	}
	// 3KM.gpx is ~0.1 km long, far from its nominal distance.
	if result.Reports[1].OK() {
		t.Error("expected 3KM.gpx to fail the distance check")
	}
	if len(result.Failed) != 1 || result.Failed[0] != "missing.gpx" {
		t.Errorf("expected missing.gpx to fail, got %v", result.Failed)
	}
	if len(notifier.paths) != 1 || notifier.paths[0] != "custom.gpx" {
		t.Errorf("expected only custom.gpx announced, got %v", notifier.paths)
	}
}

func TestTrackValidationWorkflow_DefaultsToKnownRoutes(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	var fetched []string
	env.RegisterActivity(&workflows.TrackActivities{
		Source: &mockSource{fetchFn: func(ctx context.Context, path string) (string, error) {
			fetched = append(fetched, path)
			return shortGPX, nil
		}},
		Parse: gpx.ParseTrack,
	})

	env.ExecuteWorkflow(workflows.TrackValidationWorkflow, workflows.TrackValidationInput{})

	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var result workflows.TrackValidationResult
	if err := env.GetWorkflowResult(&result); err != nil {
		t.Fatalf("result: %v", err)
	}
	if len(result.Reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(result.Reports))
	}
	want := []string{"3KM.gpx", "5KM.gpx", "10KM.gpx"}
	for i, r := range result.Reports {
		if r.Path != want[i] {
			t.Errorf("report %d: expected %s, got %s", i, want[i], r.Path)
		}
	}
	if len(fetched) != 3 {
		t.Errorf("expected 3 fetches, got %v", fetched)
	}
}

func TestTrackValidationWorkflow_ParseFailureNotRetried(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	fetches := map[string]int{}
	env.RegisterActivity(&workflows.TrackActivities{
		Source: &mockSource{fetchFn: func(ctx context.Context, path string) (string, error) {
			fetches[path]++
			if path == "offline.gpx" {
				return "", errors.New("connection refused")
			}
			return "<gpx><trk><trkseg><trkpt", nil
		}},
		Parse: gpx.ParseTrack,
	})

	env.ExecuteWorkflow(workflows.TrackValidationWorkflow, workflows.TrackValidationInput{
		Paths: []string{"broken.gpx", "offline.gpx"},
	})

	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var result workflows.TrackValidationResult
	if err := env.GetWorkflowResult(&result); err != nil {
		t.Fatalf("result: %v", err)
	}
	if len(result.Failed) != 2 {
		t.Fatalf("expected both files to fail, got %v", result.Failed)
	}
	if fetches["broken.gpx"] != 1 {
		t.Errorf("expected one attempt for a parse failure, got %d", fetches["broken.gpx"])
	}
	if fetches["offline.gpx"] != 3 {
		t.Errorf("expected three attempts for a fetch failure, got %d", fetches["offline.gpx"])
	}
}
