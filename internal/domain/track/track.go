// Package track provides the Track domain entity.
package track

import (
	"strings"
	"time"
)

// Quality selects one entry from a track's audio set.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// Audio describes one playable rendition of a track.
type Audio struct {
	URL      string // Locator: http(s) URL or local path
	Encoding string // "mp3", "aacplus", "flac", "ogg", "wav"
	Bitrate  string // Catalog-reported bitrate (kbps)
	Protocol string // "http" for most catalogs
}

// AudioSet holds the renditions offered for a track.
type AudioSet struct {
	High   *Audio
	Medium *Audio
	Low    *Audio
}

// Track represents a playable item returned by a catalog.
// Treated as an immutable value once received.
type Track struct {
	ID          string        // Catalog track token
	SongName    string        // Song name
	ArtistName  string        // Artist name
	AlbumName   string        // Album name
	AlbumArtURL string        // Album art URL (optional)
	Duration    time.Duration // Duration hint from the catalog (0 if unknown)
	Rating      *int          // Catalog rating (>0 loved, nil if unrated)
	Audio       *AudioSet     // Renditions (nil if the catalog supplied none)
	AdToken     string        // Set when the item is an advertisement
}

// IsAd reports whether the track is an advertisement.
func (t *Track) IsAd() bool {
	return t.AdToken != ""
}

// IsLoved reports whether the track carries a positive rating.
func (t *Track) IsLoved() bool {
	return t.Rating != nil && *t.Rating > 0
}

// HasAudio reports whether any rendition is available.
func (t *Track) HasAudio() bool {
	_, ok := t.Locator(QualityHigh)
	return ok
}

// Locator returns the rendition for the requested quality.
// When that quality is missing it falls back to the next lower one,
// then to any higher one.
func (t *Track) Locator(q Quality) (Audio, bool) {
	if t.Audio == nil {
		return Audio{}, false
	}

	var order []*Audio
	switch q {
	case QualityLow:
		order = []*Audio{t.Audio.Low, t.Audio.Medium, t.Audio.High}
	case QualityMedium:
		order = []*Audio{t.Audio.Medium, t.Audio.Low, t.Audio.High}
	default:
		order = []*Audio{t.Audio.High, t.Audio.Medium, t.Audio.Low}
	}

	for _, a := range order {
		if a != nil && a.URL != "" {
			return *a, true
		}
	}
	return Audio{}, false
}

// Title returns "Song - Artist" for display.
func (t *Track) Title() string {
	switch {
	case t.SongName == "" && t.ArtistName == "":
		return t.ID
	case t.ArtistName == "":
		return t.SongName
	case t.SongName == "":
		return t.ArtistName
	}
	return t.SongName + " - " + t.ArtistName
}

// ParseQuality parses a quality name, defaulting to high.
func ParseQuality(s string) Quality {
	switch Quality(strings.ToLower(s)) {
	case QualityLow:
		return QualityLow
	case QualityMedium:
		return QualityMedium
	default:
		return QualityHigh
	}
}
