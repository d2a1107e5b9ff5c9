package render

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/samirrijal/racemap/internal/pkg/config"
)

// TileSize is the edge length of a slippy-map tile in pixels.
const TileSize = 256

// HTTPTileSource downloads base map tiles from a templated URL and keeps
// decoded tiles in an LRU cache shared by all map views.
type HTTPTileSource struct {
	cfg    config.TilesConfig
	client *http.Client
	cache  *lru.Cache[string, image.Image]
}

// NewHTTPTileSource creates a tile source for cfg. A nil client gets one
// with cfg.Timeout.
func NewHTTPTileSource(cfg config.TilesConfig, client *http.Client) (*HTTPTileSource, error) {
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = config.DefaultTiles().CacheSize
	}
	cache, err := lru.New[string, image.Image](size)
	if err != nil {
		return nil, fmt.Errorf("create tile cache: %w", err)
	}
	return &HTTPTileSource{cfg: cfg, client: client, cache: cache}, nil
}

// Attribution is the provider credit drawn on every map.
func (s *HTTPTileSource) Attribution() string {
	return s.cfg.Attribution
}

// URL expands the tile URL template for one tile.
func (s *HTTPTileSource) URL(z, x, y int) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
		"{s}", s.subdomain(x, y),
		"{key}", s.cfg.APIKey,
	)
	return r.Replace(s.cfg.URL)
}

func (s *HTTPTileSource) subdomain(x, y int) string {
	if len(s.cfg.Subdomains) == 0 {
		return ""
	}
	return s.cfg.Subdomains[(x+y)%len(s.cfg.Subdomains)]
}

// Tile returns the decoded tile at z/x/y.
func (s *HTTPTileSource) Tile(ctx context.Context, z, x, y int) (image.Image, error) {
	key := fmt.Sprintf("%d/%d/%d", z, x, y)
	if img, ok := s.cache.Get(key); ok {
		return img, nil
	}

	url := s.URL(z, x, y)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build tile request: %w", err)
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download tile %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download tile %s: status %d", key, resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode tile %s: %w", key, err)
	}

	s.cache.Add(key, img)
	return img, nil
}
