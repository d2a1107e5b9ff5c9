package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samirrijal/racemap/internal/adapters/gpx"
	natsadapter "github.com/samirrijal/racemap/internal/adapters/nats"
	"github.com/samirrijal/racemap/internal/adapters/postgres"
	"github.com/samirrijal/racemap/internal/core/usecases"
	"github.com/samirrijal/racemap/internal/pkg/config"
	"github.com/samirrijal/racemap/internal/pkg/logging"
)

// loaded is one GPX file read from disk.
type loaded struct {
	path    string
	content string
	report  usecases.ValidationReport
}

func main() {
	cfg, err := config.Load("racemap-trackload")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	dir := cfg.Tracks.BaseDir
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	// Optional CLI arg: comma-separated file names to load
	nameFilter := map[string]bool{}
	if len(os.Args) > 2 {
		for _, s := range strings.Split(os.Args[2], ",") {
			nameFilter[strings.TrimSpace(s)] = true
		}
	}

	ctx := context.Background()

	files, err := readTracks(dir, nameFilter)
	if err != nil {
		log.Fatalf("read tracks: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("no loadable .gpx files in %s", dir)
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), 4)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	batch := make(map[string]string, len(files))
	for _, f := range files {
		batch[f.path] = f.content
	}
	if err := postgres.NewTrackRepo(db).UpsertBatch(ctx, batch); err != nil {
		log.Fatalf("store tracks: %v", err)
	}
	slog.Info("tracks stored", "count", len(batch))

	if cfg.NATS.URL == "" {
		return
	}
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, skipping update events", "error", err)
		return
	}
	defer pub.Close()
	for _, f := range files {
		if err := pub.PublishTrackUpdated(ctx, f.path); err != nil {
			slog.Warn("publish track update", "path", f.path, "error", err)
		}
	}
}

// readTracks reads and parses every .gpx file in dir concurrently. Files that
// do not parse are skipped; validation problems are logged but do not stop
// the load.
func readTracks(dir string, filter map[string]bool) ([]loaded, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.gpx"))
	if err != nil {
		return nil, err
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out []loaded
	)
	sem := make(chan struct{}, 4) // max 4 files parsed at once

	for _, p := range paths {
		name := filepath.Base(p)
		if len(filter) > 0 && !filter[name] {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			f, err := loadTrack(p, name)
			if err != nil {
				slog.Error("skipping track", "path", name, "error", err)
				return
			}
			for _, problem := range f.report.Problems {
				slog.Warn("track check", "path", name, "problem", problem)
			}
			mu.Lock()
			out = append(out, f)
			mu.Unlock()
		}()
	}

	wg.Wait()
	return out, nil
}

func loadTrack(file, name string) (loaded, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return loaded{}, err
	}
	track, err := gpx.ParseTrack(string(data))
	if err != nil {
		return loaded{}, fmt.Errorf("parse: %w", err)
	}
	return loaded{
		path:    name,
		content: string(data),
		report:  usecases.ValidateTrack(name, track),
	}, nil
}
