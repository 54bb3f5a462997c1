// Package spotify provides a catalog backed by the user's Spotify playlists.
package spotify

import (
	"context"
	cryptoRand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
	"github.com/osa030/radiobox/internal/infra/lastfm"
)

// Scopes are the permissions the catalog needs.
var Scopes = []string{
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopeUserLibraryModify,
}

// Client is a Spotify API client. Playlists are stations and preview clips
// are the playable audio.
type Client struct {
	client     *spotify.Client
	market     string
	batchSize  int
	maxRetries int
	retryDelay time.Duration

	// Optional; expands a new station's seed with similar tracks.
	recommender Recommender

	userMu sync.Mutex
	userID string
}

// Recommender finds tracks similar to a seed track.
type Recommender interface {
	GetSimilarTracks(ctx context.Context, trackName, artistName string, limit int) ([]lastfm.SimilarTrack, error)
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret" validate:"required"`
	RefreshToken string `yaml:"refresh_token" mapstructure:"refresh_token" validate:"required"`
	Market       string `yaml:"market" mapstructure:"market" default:"JP" validate:"len=2"`
	BatchSize    int    `yaml:"batch_size" mapstructure:"batch_size" default:"20" validate:"gte=1,lte=100"`
	LastFMAPIKey string `yaml:"lastfm_api_key" mapstructure:"lastfm_api_key"`
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "spotify credentials are required")
	}

	// Create authenticator with required scopes
	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(Scopes...),
	)

	// Create token from refresh token
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	// Get HTTP client with auto-refresh capability
	httpClient := auth.Client(ctx, token)
	c := newClient(httpClient, cfg)
	if cfg.LastFMAPIKey != "" {
		lfm, err := lastfm.New(lastfm.Config{APIKey: cfg.LastFMAPIKey})
		if err != nil {
			return nil, err
		}
		c.recommender = lfm
	}
	return c, nil
}

func newClient(httpClient *http.Client, cfg Config, opts ...spotify.ClientOption) *Client {
	return &Client{
		client:     spotify.New(httpClient, opts...),
		market:     cfg.Market,
		batchSize:  cfg.BatchSize,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

func (c *Client) currentUser(ctx context.Context) (string, error) {
	c.userMu.Lock()
	defer c.userMu.Unlock()

	if c.userID != "" {
		return c.userID, nil
	}
	var user *spotify.PrivateUser
	err := c.retry(func() error {
		u, err := c.client.CurrentUser(ctx)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to get current user")
	}
	c.userID = user.ID
	return c.userID, nil
}

// Stations returns the playlists the user follows or owns. Only owned
// playlists can be renamed.
func (c *Client) Stations(ctx context.Context) ([]station.Station, error) {
	userID, err := c.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	var stations []station.Station
	offset := 0
	limit := 50

	for {
		var page *spotify.SimplePlaylistPage
		err := c.retry(func() error {
			p, err := c.client.CurrentUsersPlaylists(ctx, spotify.Limit(limit), spotify.Offset(offset))
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get playlists")
		}

		for _, p := range page.Playlists {
			var art string
			if len(p.Images) > 0 {
				art = p.Images[0].URL
			}
			stations = append(stations, station.Station{
				ID:          string(p.ID),
				Name:        p.Name,
				ArtURL:      art,
				AllowRename: p.Owner.ID == userID,
				AllowDelete: true,
			})
		}

		if len(page.Playlists) < limit {
			break
		}
		offset += limit
	}

	return stations, nil
}

// List returns a random batch of tracks from the playlist behind st.
// First gets the total track count, then fetches a random page and returns
// up to the configured batch size.
func (c *Client) List(ctx context.Context, st station.Station) ([]track.Track, error) {
	playlistID := extractPlaylistID(st.ID)
	if playlistID == "" {
		return nil, errors.New("invalid playlist ID")
	}

	// First, get the total track count by fetching the first page
	var firstPage *spotify.PlaylistItemPage
	err := c.retry(func() error {
		p, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
			spotify.Limit(1),
			spotify.Offset(0),
			spotify.Market(c.market),
		)
		if err != nil {
			return err
		}
		firstPage = p
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get playlist info")
	}

	totalTracks := int(firstPage.Total)
	if totalTracks == 0 {
		return []track.Track{}, nil
	}

	limit := 100 // Spotify API max per page
	maxOffset := totalTracks - limit
	if maxOffset < 0 {
		maxOffset = 0
	}

	rng := newRand()
	offset := 0
	if maxOffset > 0 {
		offset = rng.Intn(maxOffset + 1)
	}

	// Fetch a random page
	var page *spotify.PlaylistItemPage
	err = c.retry(func() error {
		p, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
			spotify.Limit(limit),
			spotify.Offset(offset),
			spotify.Market(c.market),
		)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get playlist items")
	}

	var tracks []track.Track
	for _, item := range page.Items {
		// Only process tracks (exclude episodes)
		if item.Track.Track != nil && item.Track.Track.ID != "" {
			tracks = append(tracks, convertTrack(item.Track.Track))
		}
	}

	rng.Shuffle(len(tracks), func(i, j int) {
		tracks[i], tracks[j] = tracks[j], tracks[i]
	})
	if len(tracks) > c.batchSize {
		tracks = tracks[:c.batchSize]
	}

	zlog.Debug().Msgf("spotify: %d tracks from %s (offset %d of %d)", len(tracks), st, offset, totalTracks)
	return tracks, nil
}

// Rate saves t to the library when positive and removes it from the
// station's playlist otherwise.
func (c *Client) Rate(ctx context.Context, st station.Station, t track.Track, positive bool) error {
	id := spotify.ID(extractTrackID(t.ID))
	if id == "" {
		return errors.New("track has no ID")
	}

	if positive {
		err := c.retry(func() error {
			return c.client.AddTracksToLibrary(ctx, id)
		})
		return errors.Wrap(err, "failed to save track")
	}

	err := c.retry(func() error {
		_, err := c.client.RemoveTracksFromPlaylist(ctx, spotify.ID(extractPlaylistID(st.ID)), id)
		return err
	})
	return errors.Wrap(err, "failed to remove track from playlist")
}

// Search searches for tracks on Spotify.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]track.Track, error) {
	if query == "" {
		return nil, errors.New("search query is required")
	}

	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	var result *spotify.SearchResult
	err := c.retry(func() error {
		r, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit), spotify.Market(c.market))
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to search")
	}
	if result.Tracks == nil {
		return []track.Track{}, nil
	}

	tracks := make([]track.Track, 0, len(result.Tracks.Tracks))
	for i := range result.Tracks.Tracks {
		tracks = append(tracks, convertTrack(&result.Tracks.Tracks[i]))
	}
	return tracks, nil
}

// Create creates a private playlist named after query, seeded with the
// search results for it, or with tracks similar to the best result when a
// recommender is configured.
func (c *Client) Create(ctx context.Context, query string) (station.Station, error) {
	seeds, err := c.Search(ctx, query, c.batchSize)
	if err != nil {
		return station.Station{}, err
	}
	if len(seeds) == 0 {
		return station.Station{}, errors.Newf("no tracks match %q", query)
	}
	if c.recommender != nil {
		seeds = c.expandSeed(ctx, seeds)
	}

	userID, err := c.currentUser(ctx)
	if err != nil {
		return station.Station{}, err
	}

	name := query + " Radio"
	var playlist *spotify.FullPlaylist
	err = c.retry(func() error {
		p, err := c.client.CreatePlaylistForUser(ctx, userID, name, "Created by radiobox", false, false)
		if err != nil {
			return err
		}
		playlist = p
		return nil
	})
	if err != nil {
		return station.Station{}, errors.Wrap(err, "failed to create playlist")
	}

	ids := make([]string, len(seeds))
	for i, t := range seeds {
		ids[i] = t.ID
	}
	if err := c.addTracksToPlaylist(ctx, string(playlist.ID), ids); err != nil {
		return station.Station{}, err
	}

	return station.Station{
		ID:          string(playlist.ID),
		Name:        playlist.Name,
		AllowRename: true,
		AllowDelete: true,
	}, nil
}

// expandSeed replaces the search results with the best result followed by
// similar tracks found on Spotify. On any recommender failure the search
// results are kept.
func (c *Client) expandSeed(ctx context.Context, results []track.Track) []track.Track {
	seed := results[0]
	similar, err := c.recommender.GetSimilarTracks(ctx, seed.SongName, seed.ArtistName, c.batchSize)
	if err != nil {
		zlog.Warn().Err(err).Msgf("spotify: no similar tracks for %s", seed.Title())
		return results
	}

	out := []track.Track{seed}
	seen := map[string]bool{seed.ID: true}
	for _, s := range similar {
		if len(out) >= c.batchSize {
			break
		}
		q := fmt.Sprintf("track:%q artist:%q", s.Name, s.Artist)
		found, err := c.Search(ctx, q, 1)
		if err != nil || len(found) == 0 || seen[found[0].ID] {
			continue
		}
		seen[found[0].ID] = true
		out = append(out, found[0])
	}
	if len(out) == 1 {
		return results
	}
	return out
}

// Rename renames the playlist behind st.
func (c *Client) Rename(ctx context.Context, st station.Station, name string) error {
	err := c.retry(func() error {
		return c.client.ChangePlaylistName(ctx, spotify.ID(extractPlaylistID(st.ID)), name)
	})
	return errors.Wrap(err, "failed to rename playlist")
}

// Delete unfollows the playlist behind st.
func (c *Client) Delete(ctx context.Context, st station.Station) error {
	err := c.retry(func() error {
		return c.client.UnfollowPlaylist(ctx, spotify.ID(extractPlaylistID(st.ID)))
	})
	return errors.Wrap(err, "failed to unfollow playlist")
}

// addTracksToPlaylist adds tracks to a playlist.
// trackIDs can be Spotify IDs, URLs, or URIs.
func (c *Client) addTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error {
	ids := make([]spotify.ID, len(trackIDs))
	for i, trackID := range trackIDs {
		ids[i] = spotify.ID(extractTrackID(trackID))
	}

	// Spotify allows max 100 tracks per request
	for i := 0; i < len(ids); i += 100 {
		end := i + 100
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[i:end]

		err := c.retry(func() error {
			_, err := c.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), batch...)
			return err
		})
		if err != nil {
			return errors.Wrap(err, "failed to add tracks to playlist")
		}
	}

	return nil
}

// convertTrack converts a Spotify FullTrack to domain Track. The 30 second
// preview clip is the only audio the Web API exposes.
func convertTrack(t *spotify.FullTrack) track.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	var albumArt string
	if len(t.Album.Images) > 0 {
		albumArt = t.Album.Images[0].URL
	}

	out := track.Track{
		ID:          string(t.ID),
		SongName:    t.Name,
		ArtistName:  strings.Join(artists, ", "),
		AlbumName:   t.Album.Name,
		AlbumArtURL: albumArt,
		Duration:    time.Duration(t.Duration) * time.Millisecond,
	}
	if t.PreviewURL != "" {
		out.Audio = &track.AudioSet{
			High: &track.Audio{
				URL:      t.PreviewURL,
				Encoding: "mp3",
				Bitrate:  "96",
				Protocol: "https",
			},
		}
		out.Duration = 30 * time.Second
	}
	return out
}

// newRand seeds from crypto/rand, falling back to the clock.
func newRand() *rand.Rand {
	var seed int64
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(buf[:]))
	} else {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// retry retries an operation with linear backoff.
func (c *Client) retry(fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelay * time.Duration(i+1))
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// extractPlaylistID extracts the playlist ID from a Spotify playlist URL or URI.
func extractPlaylistID(input string) string {
	input = strings.TrimSpace(input)
	// Handle Spotify URI format: spotify:playlist:PLAYLIST_ID
	if strings.HasPrefix(input, "spotify:playlist:") {
		return strings.TrimPrefix(input, "spotify:playlist:")
	}

	// Handle URL format: https://open.spotify.com/playlist/PLAYLIST_ID or https://open.spotify.com/intl-XX/playlist/PLAYLIST_ID
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/playlist/") {
		parts := strings.Split(input, "/playlist/")
		if len(parts) >= 2 {
			// Remove query parameters and trailing slashes
			id := strings.Split(parts[len(parts)-1], "?")[0]
			id = strings.TrimRight(id, "/")
			return id
		}
	}

	// Assume it's already a playlist ID
	return input
}

// extractTrackID extracts the track ID from a Spotify track URL or URI.
func extractTrackID(input string) string {
	input = strings.TrimSpace(input)
	// Handle Spotify URI format: spotify:track:TRACK_ID
	if strings.HasPrefix(input, "spotify:track:") {
		return strings.TrimPrefix(input, "spotify:track:")
	}

	// Handle URL format: https://open.spotify.com/track/TRACK_ID or https://open.spotify.com/intl-XX/track/TRACK_ID
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/") {
		parts := strings.Split(input, "/track/")
		if len(parts) >= 2 {
			// Remove query parameters and trailing slashes
			id := strings.Split(parts[len(parts)-1], "?")[0]
			id = strings.TrimRight(id, "/")
			return id
		}
	}

	// Assume it's already a track ID
	return input
}
