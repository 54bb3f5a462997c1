package pandora

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

// ErrNoMatch is returned by Create when the search finds nothing.
var ErrNoMatch = errors.New("pandora: no matching music")

// Stations returns the user's stations.
func (c *Client) Stations(ctx context.Context) ([]station.Station, error) {
	var res stationListResult
	if err := c.call(ctx, "user.getStationList", nil, &res); err != nil {
		return nil, errors.Wrap(err, "failed to get station list")
	}

	out := make([]station.Station, 0, len(res.Stations))
	for _, s := range res.Stations {
		out = append(out, s.toStation())
	}
	return out, nil
}

// List fetches the next batch of tracks for st. Advertisements are
// returned as tracks carrying an ad token.
func (c *Client) List(ctx context.Context, st station.Station) ([]track.Track, error) {
	var res playlistResult
	err := c.call(ctx, "station.getPlaylist", map[string]any{
		"stationToken": st.ID,
	}, &res)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get playlist for %s", st)
	}

	out := make([]track.Track, 0, len(res.Items))
	for _, item := range res.Items {
		out = append(out, item.toTrack())
	}
	return out, nil
}

// Rate sends thumbs up or down feedback for t on st.
func (c *Client) Rate(ctx context.Context, st station.Station, t track.Track, positive bool) error {
	if t.ID == "" {
		return errors.New("track has no token")
	}
	err := c.call(ctx, "station.addFeedback", map[string]any{
		"stationToken": st.ID,
		"trackToken":   t.ID,
		"isPositive":   positive,
	}, nil)
	return errors.Wrap(err, "failed to rate track")
}

// Search looks up songs and artists. Matches are ordered by score.
func (c *Client) Search(ctx context.Context, query string) ([]Match, error) {
	if query == "" {
		return nil, errors.New("search query is required")
	}

	var res searchResult
	err := c.call(ctx, "music.search", map[string]any{
		"searchText":         query,
		"includeNearMatches": true,
	}, &res)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search")
	}

	matches := make([]Match, 0, len(res.Songs)+len(res.Artists))
	for _, a := range res.Artists {
		matches = append(matches, Match{Name: a.ArtistName, MusicToken: a.MusicToken, Score: a.Score})
	}
	for _, s := range res.Songs {
		matches = append(matches, Match{Name: s.SongName + " - " + s.ArtistName, MusicToken: s.MusicToken, Score: s.Score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches, nil
}

// Create creates a station seeded from the best search match for query.
func (c *Client) Create(ctx context.Context, query string) (station.Station, error) {
	matches, err := c.Search(ctx, query)
	if err != nil {
		return station.Station{}, err
	}
	if len(matches) == 0 {
		return station.Station{}, errors.Wrapf(ErrNoMatch, "query %q", query)
	}

	var res stationJSON
	err = c.call(ctx, "station.createStation", map[string]any{
		"musicToken": matches[0].MusicToken,
	}, &res)
	if err != nil {
		return station.Station{}, errors.Wrap(err, "failed to create station")
	}
	return res.toStation(), nil
}

// Rename renames st.
func (c *Client) Rename(ctx context.Context, st station.Station, name string) error {
	err := c.call(ctx, "station.renameStation", map[string]any{
		"stationToken": st.ID,
		"stationName":  name,
	}, nil)
	return errors.Wrap(err, "failed to rename station")
}

// Delete deletes st.
func (c *Client) Delete(ctx context.Context, st station.Station) error {
	err := c.call(ctx, "station.deleteStation", map[string]any{
		"stationToken": st.ID,
	}, nil)
	return errors.Wrap(err, "failed to delete station")
}
