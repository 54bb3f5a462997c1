package catalog

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

// StaticConfig represents the configuration for StaticClient.
type StaticConfig struct {
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
}

// staticFile is the on-disk layout of a static catalog.
type staticFile struct {
	Stations []staticStation `yaml:"stations"`
}

type staticStation struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	ArtURL   string        `yaml:"art_url,omitempty"`
	QuickMix bool          `yaml:"quick_mix,omitempty"`
	Locked   bool          `yaml:"locked,omitempty"`
	Tracks   []staticTrack `yaml:"tracks"`
}

type staticTrack struct {
	ID          string `yaml:"id"`
	Song        string `yaml:"song"`
	Artist      string `yaml:"artist"`
	Album       string `yaml:"album,omitempty"`
	AlbumArtURL string `yaml:"album_art_url,omitempty"`
	DurationSec int    `yaml:"duration_sec,omitempty"`
	URL         string `yaml:"url,omitempty"`
	Encoding    string `yaml:"encoding,omitempty"`
	Rating      int    `yaml:"rating,omitempty"`
	Ad          bool   `yaml:"ad,omitempty"`
}

// StaticClient is a catalog described by a YAML file of stations and
// tracks. Track URLs may be http(s) URLs or paths relative to the file.
// Edits are written back to the file.
type StaticClient struct {
	path string
	dir  string

	mu   sync.Mutex
	data staticFile
}

// NewStaticClient creates a static catalog from settings.
func NewStaticClient(settings map[string]any) (*StaticClient, error) {
	var config StaticConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return OpenStatic(config.Path)
}

// OpenStatic loads the catalog file at path.
func OpenStatic(path string) (*StaticClient, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog %s", path)
	}

	var data staticFile
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrapf(err, "failed to parse catalog %s", path)
	}

	seen := make(map[string]bool)
	for _, s := range data.Stations {
		if s.ID == "" {
			return nil, errors.Newf("catalog %s: station %q has no id", path, s.Name)
		}
		if seen[s.ID] {
			return nil, errors.Newf("catalog %s: duplicate station id %q", path, s.ID)
		}
		seen[s.ID] = true
	}

	zlog.Debug().Msgf("static catalog: %d stations from %s", len(data.Stations), path)
	return &StaticClient{
		path: path,
		dir:  filepath.Dir(path),
		data: data,
	}, nil
}

// Stations returns the stations in file order.
func (c *StaticClient) Stations(_ context.Context) ([]station.Station, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]station.Station, 0, len(c.data.Stations))
	for _, s := range c.data.Stations {
		out = append(out, s.toStation())
	}
	return out, nil
}

// List returns the station's tracks in file order. Tracks rated down are
// left out. A quick mix station plays the tracks of every other station.
func (c *StaticClient) List(_ context.Context, st station.Station) ([]track.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.find(st.ID)
	if s == nil {
		return nil, errors.Wrapf(ErrNotFound, "%q", st.ID)
	}

	sources := []*staticStation{s}
	if s.QuickMix {
		sources = sources[:0]
		for i := range c.data.Stations {
			if !c.data.Stations[i].QuickMix {
				sources = append(sources, &c.data.Stations[i])
			}
		}
	}

	var out []track.Track
	for _, src := range sources {
		for _, t := range src.Tracks {
			if t.Rating < 0 {
				continue
			}
			out = append(out, c.toTrack(t))
		}
	}
	return out, nil
}

// Rate records a rating on every copy of the track and saves the file.
func (c *StaticClient) Rate(_ context.Context, _ station.Station, t track.Track, positive bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rating := -1
	if positive {
		rating = 1
	}

	found := false
	for i := range c.data.Stations {
		for j := range c.data.Stations[i].Tracks {
			if c.data.Stations[i].Tracks[j].ID == t.ID {
				c.data.Stations[i].Tracks[j].Rating = rating
				found = true
			}
		}
	}
	if !found {
		return errors.Newf("track %q not in catalog", t.ID)
	}
	return c.save()
}

// Create builds a station from every track whose song, artist or album
// contains query, ignoring case.
func (c *StaticClient) Create(_ context.Context, query string) (station.Station, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return station.Station{}, errors.New("search query is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var tracks []staticTrack
	seen := make(map[string]bool)
	for _, s := range c.data.Stations {
		for _, t := range s.Tracks {
			if seen[t.ID] || t.Ad {
				continue
			}
			if strings.Contains(strings.ToLower(t.Song), q) ||
				strings.Contains(strings.ToLower(t.Artist), q) ||
				strings.Contains(strings.ToLower(t.Album), q) {
				seen[t.ID] = true
				tracks = append(tracks, t)
			}
		}
	}
	if len(tracks) == 0 {
		return station.Station{}, errors.Newf("no tracks match %q", query)
	}

	s := staticStation{
		ID:     c.uniqueID(slugify(query)),
		Name:   strings.TrimSpace(query) + " Radio",
		Tracks: tracks,
	}
	c.data.Stations = append(c.data.Stations, s)
	if err := c.save(); err != nil {
		c.data.Stations = c.data.Stations[:len(c.data.Stations)-1]
		return station.Station{}, err
	}
	return s.toStation(), nil
}

// Rename renames the station and saves the file.
func (c *StaticClient) Rename(_ context.Context, st station.Station, name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("station name is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.find(st.ID)
	if s == nil {
		return errors.Wrapf(ErrNotFound, "%q", st.ID)
	}
	if s.Locked {
		return errors.Wrapf(ErrNotAllowed, "station %q is locked", s.Name)
	}
	s.Name = name
	return c.save()
}

// Delete removes the station and saves the file.
func (c *StaticClient) Delete(_ context.Context, st station.Station) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, s := range c.data.Stations {
		if s.ID != st.ID {
			continue
		}
		if s.Locked || s.QuickMix {
			return errors.Wrapf(ErrNotAllowed, "station %q cannot be deleted", s.Name)
		}
		c.data.Stations = append(c.data.Stations[:i], c.data.Stations[i+1:]...)
		return c.save()
	}
	return errors.Wrapf(ErrNotFound, "%q", st.ID)
}

func (c *StaticClient) find(id string) *staticStation {
	for i := range c.data.Stations {
		if c.data.Stations[i].ID == id {
			return &c.data.Stations[i]
		}
	}
	return nil
}

func (c *StaticClient) uniqueID(base string) string {
	if base == "" {
		base = "station"
	}
	id := base
	for n := 2; c.find(id) != nil; n++ {
		id = base + "-" + strconv.Itoa(n)
	}
	return id
}

// save writes the catalog through a temporary file so a failed write
// leaves the original intact.
func (c *StaticClient) save() error {
	raw, err := yaml.Marshal(&c.data)
	if err != nil {
		return errors.Wrap(err, "failed to encode catalog")
	}

	tmp, err := os.CreateTemp(c.dir, ".catalog-*.yaml")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write catalog")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to write catalog")
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return errors.Wrap(err, "failed to replace catalog")
	}
	return nil
}

func (s staticStation) toStation() station.Station {
	return station.Station{
		ID:          s.ID,
		Name:        s.Name,
		ArtURL:      s.ArtURL,
		QuickMix:    s.QuickMix,
		AllowRename: !s.Locked,
		AllowDelete: !s.Locked && !s.QuickMix,
	}
}

func (c *StaticClient) toTrack(t staticTrack) track.Track {
	out := track.Track{
		ID:          t.ID,
		SongName:    t.Song,
		ArtistName:  t.Artist,
		AlbumName:   t.Album,
		AlbumArtURL: t.AlbumArtURL,
		Duration:    time.Duration(t.DurationSec) * time.Second,
	}
	if t.Ad {
		out.AdToken = t.ID
	}
	if t.Rating != 0 {
		r := t.Rating
		out.Rating = &r
	}
	if t.URL != "" {
		out.Audio = &track.AudioSet{
			High: &track.Audio{
				URL:      c.resolve(t.URL),
				Encoding: t.Encoding,
				Protocol: "file",
			},
		}
		if isRemote(t.URL) {
			out.Audio.High.Protocol = "http"
		}
	}
	return out
}

func (c *StaticClient) resolve(u string) string {
	if isRemote(u) || strings.HasPrefix(u, "file://") || filepath.IsAbs(u) {
		return u
	}
	return filepath.Join(c.dir, u)
}

func isRemote(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
