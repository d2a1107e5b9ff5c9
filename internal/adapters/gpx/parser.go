package gpx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/samirrijal/racemap/internal/core/domain"
)

// ParseTrack extracts the points of the first track in GPX content, across
// all of that track's segments, in file order. Any further tracks in the
// file are ignored.
//
// It fails with a Malformed ParseError when the content is not GPX or holds
// an out-of-range coordinate or a point of the first track lacks its lat
// or lon attribute, and with an Empty ParseError when there is no
// track or the first track has no points.
func ParseTrack(raw string) (domain.Track, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &domain.ParseError{Kind: domain.Empty}
	}

	gpxData, err := gpx.ParseBytes([]byte(raw))
	if err != nil {
		return nil, &domain.ParseError{Kind: domain.Malformed, Err: err}
	}

	if err := checkPointAttrs(raw); err != nil {
		return nil, &domain.ParseError{Kind: domain.Malformed, Err: err}
	}

	if len(gpxData.Tracks) == 0 {
		return nil, &domain.ParseError{Kind: domain.Empty, Err: fmt.Errorf("no tracks")}
	}

	var track domain.Track
	for _, segment := range gpxData.Tracks[0].Segments {
		for _, p := range segment.Points {
			c := domain.Coordinate{Lat: p.Latitude, Lon: p.Longitude}
			if !c.Valid() {
				return nil, &domain.ParseError{
					Kind: domain.Malformed,
					Err:  fmt.Errorf("point %d out of range: %s", len(track), c),
				}
			}
			track = append(track, c)
		}
	}

	if len(track) == 0 {
		return nil, &domain.ParseError{Kind: domain.Empty, Err: fmt.Errorf("first track has no points")}
	}
	return track, nil
}

// checkPointAttrs walks the first <trk> and reports a <trkpt> missing lat or
// lon. gpxgo reads an absent attribute as 0, which would put the point on
// the equator or the prime meridian.
func checkPointAttrs(raw string) error {
	dec := xml.NewDecoder(strings.NewReader(raw))
	depth, n := 0, 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch {
			case el.Name.Local == "trk" && depth == 0:
				depth = 1
			case depth > 0:
				depth++
				if el.Name.Local == "trkpt" {
					if !hasAttr(el, "lat") || !hasAttr(el, "lon") {
						return fmt.Errorf("point %d lacks lat or lon", n)
					}
					n++
				}
			}
		case xml.EndElement:
			if depth > 0 {
				depth--
				if depth == 0 {
					return nil
				}
			}
		}
	}
}

func hasAttr(el xml.StartElement, name string) bool {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return true
		}
	}
	return false
}
