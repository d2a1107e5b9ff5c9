package config_test

import (
	"strings"
	"testing"

	"github.com/samirrijal/racemap/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("racemap-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tracks.Source != config.SourceFile {
		t.Errorf("expected file source, got %q", cfg.Tracks.Source)
	}
	if cfg.Render.PathColor != "#d97706" || cfg.Render.PathWidth != 5 {
		t.Errorf("unexpected render defaults %+v", cfg.Render)
	}
	if cfg.Telemetry.ServiceName != "racemap-test" {
		t.Errorf("expected service name, got %q", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RACEMAP_TILES_API_KEY", "secret")
	t.Setenv("RACEMAP_SERVER_PORT", "9090")

	cfg, err := config.Load("racemap-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tiles.APIKey != "secret" {
		t.Errorf("expected api key from env, got %q", cfg.Tiles.APIKey)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := &config.Config{
		Server:   config.ServerConfig{Port: 0, ReadTimeout: 1, WriteTimeout: 1},
		Database: config.DatabaseConfig{Host: "db", Port: 5432, User: "u", DBName: "d"},
		Tracks:   config.TracksConfig{Source: "ftp"},
		Tiles:    config.TilesConfig{URL: "https://{s}.tiles.example/{z}/{x}.png", Concurrency: 1, CacheSize: 1},
		Render:   config.DefaultRender(),
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "tracks.source", "{z}, {x} and {y}", "tiles.subdomains", "tiles.attribution"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestValidate_HTTPSourceNeedsBaseURL(t *testing.T) {
	cfg := &config.Config{
		Server:   config.ServerConfig{Port: 8080, ReadTimeout: 1, WriteTimeout: 1},
		Database: config.DatabaseConfig{Host: "db", Port: 5432, User: "u", DBName: "d"},
		Tracks:   config.TracksConfig{Source: config.SourceHTTP},
		Tiles:    config.DefaultTiles(),
		Render:   config.DefaultRender(),
	}

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "tracks.base_url") {
		t.Fatalf("expected base_url error, got %v", err)
	}

	cfg.Tracks.BaseURL = "https://example.com/tracks"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_AttributionRequired(t *testing.T) {
	cfg := &config.Config{
		Server:   config.ServerConfig{Port: 8080, ReadTimeout: 1, WriteTimeout: 1},
		Database: config.DatabaseConfig{Host: "db", Port: 5432, User: "u", DBName: "d"},
		Tracks:   config.TracksConfig{Source: config.SourceFile, BaseDir: "tracks"},
		Tiles:    config.DefaultTiles(),
		Render:   config.DefaultRender(),
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Tiles.Attribution = "  "
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "tiles.attribution") {
		t.Fatalf("expected attribution error, got %v", err)
	}
}
