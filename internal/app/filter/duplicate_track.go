package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

// DuplicateTrackConfig represents the configuration for DuplicateTrackFilter.
type DuplicateTrackConfig struct {
	Window int `yaml:"window" mapstructure:"window" default:"20" validate:"gte=1,lte=1000"`
}

// DuplicateTrackFilter drops tracks played recently on the same station.
// Detects:
// - Exact track ID matches
// - Remasters and alternate versions (normalized song name + same artist)
// Excludes:
// - Cover songs (same song name but different artist)
type DuplicateTrackFilter struct {
	history History
	window  int
}

// History provides recently played tracks.
type History interface {
	Recent(ctx context.Context, stationID string, limit int) ([]track.Track, error)
}

// NewDuplicateTrackFilter creates a new duplicate track filter.
func NewDuplicateTrackFilter(history History) *DuplicateTrackFilter {
	return &DuplicateTrackFilter{
		history: history,
		window:  20,
	}
}

// Name returns the filter name.
func (f *DuplicateTrackFilter) Name() string {
	return "duplicate_track_filter"
}

// Description returns the filter description.
func (f *DuplicateTrackFilter) Description() string {
	return "Drops tracks (remasters included) heard recently on the same station. Covers by other artists are kept"
}

// ReturnCodes returns possible return codes.
func (f *DuplicateTrackFilter) ReturnCodes() []string {
	return []string{"duplicate_track"}
}

// ValidateConfig validates the filter configuration.
func (f *DuplicateTrackFilter) ValidateConfig(settings map[string]any) error {
	var config DuplicateTrackConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	f.window = config.Window
	return nil
}

// Check checks if the track is a duplicate.
func (f *DuplicateTrackFilter) Check(
	ctx context.Context,
	s station.Station,
	candidate track.Track,
) Result {
	recent, err := f.history.Recent(ctx, s.ID, f.window)
	if err != nil {
		// History is advisory; never block playback on it.
		zlog.Warn().Err(err).Msg("filter: history lookup failed")
		return Accept()
	}

	for _, played := range recent {
		// 1. Exact track ID match
		if played.ID != "" && played.ID == candidate.ID {
			return Reject("duplicate_track")
		}

		// 2. Remaster detection: normalized name + same artist
		if f.isRemaster(played, candidate) {
			return Reject("duplicate_track")
		}
	}

	return Accept()
}

// isRemaster checks if two tracks are the same song (remaster/different version).
// Returns true if:
// - Normalized track names match
// - Main artist is the same
func (f *DuplicateTrackFilter) isRemaster(track1, track2 track.Track) bool {
	// Normalize track names
	name1 := normalizeTrackName(track1.SongName)
	name2 := normalizeTrackName(track2.SongName)

	// If normalized names don't match, they're different songs
	if name1 != name2 {
		return false
	}

	// Same normalized name - check if same artist
	// If different artists, it's a cover song (allowed)
	return isSameArtist(track1, track2)
}

var (
	remasterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*-?\s*\d{4}\s+remaster(ed)?`),      // "- 2011 Remaster"
		regexp.MustCompile(`\s*\(remaster(ed)?\s*\d{0,4}\)`),     // "(Remastered 2023)"
		regexp.MustCompile(`\s*\[remaster(ed)?\s*\d{0,4}\]`),     // "[Remastered]"
		regexp.MustCompile(`\s*-?\s*remaster(ed)?(\s+version)?`), // "- Remastered"
		regexp.MustCompile(`\s*\(.*?remaster.*?\)`),              // "(Any Remaster text)"
		regexp.MustCompile(`\s*\[.*?remaster.*?\]`),              // "[Any Remaster text]"
	}

	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*\(.*?version\)`),        // "(Single Version)"
		regexp.MustCompile(`\s*\(.*?edit\)`),           // "(Radio Edit)"
		regexp.MustCompile(`\s*-\s*live$`),             // "- Live"
		regexp.MustCompile(`\s*\(live\)`),              // "(Live)"
		regexp.MustCompile(`\s*-?\s*radio\s+edit`),     // "- Radio Edit"
		regexp.MustCompile(`\s*-?\s*single\s+version`), // "- Single Version"
	}

	spacePattern = regexp.MustCompile(`\s+`)
)

// normalizeTrackName removes remaster information and version details.
func normalizeTrackName(name string) string {
	normalized := strings.ToLower(name)

	for _, pattern := range remasterPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}
	for _, pattern := range versionPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}

	normalized = strings.TrimSpace(normalized)
	normalized = spacePattern.ReplaceAllString(normalized, " ")

	// Remove trailing dashes
	return strings.TrimRight(normalized, " -")
}

// isSameArtist checks if two tracks have the same main artist.
// Featured artists after "feat." are ignored.
func isSameArtist(track1, track2 track.Track) bool {
	a1 := mainArtist(track1.ArtistName)
	a2 := mainArtist(track2.ArtistName)
	if a1 == "" || a2 == "" {
		return false
	}

	// Compare main artist, case-insensitive
	return strings.EqualFold(a1, a2)
}

var featuringPattern = regexp.MustCompile(`(?i)\s+(feat\.?|ft\.?|featuring)\s+.*$`)

func mainArtist(name string) string {
	return strings.TrimSpace(featuringPattern.ReplaceAllString(name, ""))
}
