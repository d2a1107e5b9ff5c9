package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/racemap/internal/adapters/gpx"
	natsadapter "github.com/samirrijal/racemap/internal/adapters/nats"
	"github.com/samirrijal/racemap/internal/adapters/postgres"
	"github.com/samirrijal/racemap/internal/adapters/tracksource"
	"github.com/samirrijal/racemap/internal/pkg/config"
	"github.com/samirrijal/racemap/internal/pkg/logging"
	"github.com/samirrijal/racemap/internal/workflows"
)

// usage: validator worker
//        validator run [--announce] [<track>...]
//
// run with no tracks validates the track files of the known routes.
func main() {
	cfg, err := config.Load("racemap-validator")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	mode := "worker"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	switch mode {
	case "worker":
		runWorker(c, cfg)
	case "run":
		runWorkflow(c, cfg, os.Args[2:])
	default:
		log.Fatalf("unknown command: %s", mode)
	}
}

func runWorker(c client.Client, cfg *config.Config) {
	ctx := context.Background()
	acts := &workflows.TrackActivities{Parse: gpx.ParseTrack}

	switch cfg.Tracks.Source {
	case config.SourceHTTP:
		acts.Source = tracksource.NewHTTPSource(cfg.Tracks.BaseURL, nil, time.Duration(cfg.Tracks.Timeout)*time.Second)
	case config.SourcePostgres:
		db, err := postgres.New(ctx, cfg.Database.DSN(), 4)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer db.Close()
		acts.Source = postgres.NewTrackRepo(db)
	default:
		acts.Source = tracksource.NewFileSource(cfg.Tracks.BaseDir)
	}

	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, tracks will not be announced", "error", err)
		} else {
			defer pub.Close()
			acts.Notifier = pub
		}
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.TrackValidationWorkflow)
	w.RegisterActivity(acts)

	slog.Info("validator worker started", "queue", cfg.Temporal.TaskQueue, "source", cfg.Tracks.Source)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func runWorkflow(c client.Client, cfg *config.Config, args []string) {
	input := workflows.TrackValidationInput{}
	for _, a := range args {
		if a == "--announce" {
			input.Announce = true
			continue
		}
		input.Paths = append(input.Paths, a)
	}
	ctx := context.Background()
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        fmt.Sprintf("track-validation-%d", time.Now().Unix()),
		TaskQueue: cfg.Temporal.TaskQueue,
	}, workflows.TrackValidationWorkflow, input)
	if err != nil {
		log.Fatalf("start workflow: %v", err)
	}

	var result workflows.TrackValidationResult
	if err := run.Get(ctx, &result); err != nil {
		log.Fatalf("workflow %s: %v", run.GetID(), err)
	}

	exit := 0
	for _, r := range result.Reports {
		status := "OK  "
		if !r.OK() {
			status = "FAIL"
			exit = 1
		}
		fmt.Printf("%s %s  %d points  %.2f km  %d markers\n", status, r.Path, r.Points, r.TotalDistanceKm, r.Markers)
		for _, p := range r.Problems {
			fmt.Printf("     - %s\n", p)
		}
	}
	for _, p := range result.Failed {
		fmt.Printf("ERR  %s  could not be read\n", p)
		exit = 1
	}
	os.Exit(exit)
}
