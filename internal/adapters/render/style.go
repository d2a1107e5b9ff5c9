package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/samirrijal/racemap/internal/pkg/config"
)

var (
	backgroundColor = color.RGBA{0xe5, 0xe3, 0xdf, 0xff}
	startIconColor  = color.RGBA{0x2e, 0x9e, 0x3f, 0xff}
)

// style is the resolved form of config.RenderConfig.
type style struct {
	pathColor    color.Color
	markerColor  color.Color
	markerFill   color.Color
	pathWidth    float64
	markerRadius float64
	markerStroke float64
}

func resolveStyle(cfg config.RenderConfig) (style, error) {
	path, err := parseHexColor(cfg.PathColor, cfg.PathOpacity)
	if err != nil {
		return style{}, fmt.Errorf("path_color: %w", err)
	}
	marker, err := parseHexColor(cfg.MarkerColor, 1)
	if err != nil {
		return style{}, fmt.Errorf("marker_color: %w", err)
	}
	fill, err := parseHexColor(cfg.MarkerFill, 1)
	if err != nil {
		return style{}, fmt.Errorf("marker_fill: %w", err)
	}
	return style{
		pathColor:    path,
		markerColor:  marker,
		markerFill:   fill,
		pathWidth:    cfg.PathWidth,
		markerRadius: cfg.MarkerRadius,
		markerStroke: cfg.MarkerStroke,
	}, nil
}

// parseHexColor parses #rrggbb and applies opacity as alpha.
func parseHexColor(s string, opacity float64) (color.Color, error) {
	var r, g, b uint8
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return nil, fmt.Errorf("invalid hex color %q", s)
	}
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return nil, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	a := uint8(opacity * 255)
	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}

func loadFace(size float64) (font.Face, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}

// loadStartIcon reads the start marker icon from a PNG path or URL, or
// draws the built-in pin when src is empty.
func loadStartIcon(ctx context.Context, client *http.Client, src string) (image.Image, error) {
	switch {
	case src == "":
		return defaultPin(), nil
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}
		img, _, err := image.Decode(resp.Body)
		return img, err
	default:
		return gg.LoadPNG(src)
	}
}

// StartIconPNG encodes the start marker icon configured by src, so that
// other map surfaces can show the same marker the raster render draws.
func StartIconPNG(ctx context.Context, client *http.Client, src string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	icon, err := loadStartIcon(ctx, client, src)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, icon); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// defaultPin draws a 25x41 map pin, the usual web map marker size.
func defaultPin() image.Image {
	const w, h = 25, 41
	dc := gg.NewContext(w, h)

	r := float64(w)/2 - 1
	cx, cy := float64(w)/2, r+1

	dc.MoveTo(cx-r, cy)
	dc.QuadraticTo(cx-r, cy+r*1.4, cx, h-1)
	dc.QuadraticTo(cx+r, cy+r*1.4, cx+r, cy)
	dc.DrawArc(cx, cy, r, 0, gg.Radians(-180))
	dc.ClosePath()
	dc.SetColor(startIconColor)
	dc.FillPreserve()
	dc.SetRGBA(0, 0, 0, 0.35)
	dc.SetLineWidth(1)
	dc.Stroke()

	dc.DrawCircle(cx, cy, r/2.5)
	dc.SetRGB(1, 1, 1)
	dc.Fill()

	return dc.Image()
}
