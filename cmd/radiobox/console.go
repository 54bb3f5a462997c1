package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/radiobox/internal/app/notification"
	"github.com/osa030/radiobox/internal/app/playback"
	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/infra/catalog"
	"github.com/osa030/radiobox/internal/infra/config"
	"github.com/osa030/radiobox/internal/infra/lastfm"
	"github.com/osa030/radiobox/internal/infra/logger"
)

// errNothingPlaying is returned by commands acting on the current track or
// station when there is none.
var errNothingPlaying = errors.New("nothing is playing")

const helpText = `Keys:
  n  next track          p  pause / resume
  s  select station      x  stop
  +  love track          -  ban track (and skip)
  c  create station      r  rename station
  d  delete station      i  track info
  ?  this help           q  quit`

// player is the part of playback.Player the console drives.
type player interface {
	Play(s station.Station) error
	Stop() error
	Skip() error
	TogglePause() error
	Report() error
	State() playback.Snapshot
}

// console is the interactive front end: one key command per line.
type console struct {
	rl      *readline.Instance
	out     io.Writer
	player  player
	catalog catalog.Client

	mu       sync.Mutex
	stations []station.Station
}

// runConsole wires the player, its subscribers and the prompt, and runs
// until the user quits or ctx is done.
func runConsole(ctx context.Context, cfg *config.Config, cat catalog.Client, initial string) error {
	store, err := openHistory(ctx, cfg.History)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	chain, err := buildFilterChain(cfg, store)
	if err != nil {
		return errors.Wrap(err, "invalid filter config")
	}

	c := &console{catalog: cat}
	rl, err := readline.NewEx(&readline.Config{
		Prompt: "radiobox> ",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItemDynamic(func(string) []string {
				return c.stationNames()
			}),
		),
	})
	if err != nil {
		return errors.Wrap(err, "failed to open terminal")
	}
	defer rl.Close()
	c.rl = rl
	c.out = rl.Stdout()

	mgr := notification.NewManager(notification.DefaultSendTimeout)
	defer mgr.Close()
	mgr.Subscribe(newRenderer(c.out))
	if len(cfg.Hooks.OnTrack) > 0 {
		mgr.Subscribe(newTrackHooks(cfg.Hooks.OnTrack, c.out))
	}
	if store != nil {
		mgr.Subscribe(notification.NewRecorder(store))
	}
	if cfg.LastFM.Scrobble {
		scrobbler := lastfm.NewScrobbler(cfg.LastFM.APIKey, cfg.LastFM.APISecret, cfg.LastFM.SessionKey)
		mgr.Subscribe(notification.NewScrobbleStream(scrobbler))
	}
	if cfg.Log.Journal != "" {
		journal, err := logger.NewJournal(cfg.Log.Journal)
		if err != nil {
			return errors.Wrap(err, "failed to open journal")
		}
		defer journal.Close()
		mgr.Subscribe(notification.NewJournalStream(journal.Logger))
	}

	executeHooks(cfg.Hooks.OnStarted, "on_started", nil, c.out)
	defer executeHooks(cfg.Hooks.OnStopped, "on_stopped", nil, c.out)

	p := newPlayer(cat, cfg, chain)
	c.player = p

	// The pump drains statuses until the player closes them, so the final
	// Finished and Shutdown still reach the recorder and journal.
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		mgr.Pump(context.WithoutCancel(ctx), p.Statuses())
	}()
	defer func() {
		if err := p.Close(); err != nil {
			zlog.Error().Err(err).Msg("Failed to close player")
		}
		<-pumpDone
	}()

	// Unblock Readline on signal or when the engine dies.
	go func() {
		select {
		case <-ctx.Done():
		case <-p.Done():
		}
		rl.Close()
	}()

	if initial == "" {
		initial = cfg.Player.Station
	}
	if initial != "" {
		if err := c.tune(ctx, initial); err != nil {
			c.warn(err)
		}
	}

	return c.loop(ctx)
}

// loop reads key commands until quit, EOF or interrupt.
func (c *console) loop(ctx context.Context) error {
	for {
		line, err := c.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if err != nil {
			// io.EOF on Ctrl-D or when the terminal was closed under us
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		cmd := strings.TrimSpace(line)
		if cmd == "" {
			continue
		}
		quit, err := c.handle(ctx, cmd)
		if err != nil {
			c.warn(err)
		}
		if quit {
			return nil
		}
	}
}

// handle runs one key command and reports whether the console should quit.
func (c *console) handle(ctx context.Context, cmd string) (bool, error) {
	switch cmd {
	case "n":
		return false, c.player.Skip()
	case "p":
		return false, c.player.TogglePause()
	case "x":
		return false, c.player.Stop()
	case "s":
		return false, c.selectStation(ctx)
	case "+":
		return false, c.rate(ctx, true)
	case "-":
		return false, c.rate(ctx, false)
	case "c":
		return false, c.create(ctx)
	case "r":
		return false, c.rename(ctx)
	case "d":
		return false, c.remove(ctx)
	case "i":
		c.info()
		return false, nil
	case "?", "h":
		fmt.Fprintln(c.out, helpText)
		return false, c.player.Report()
	case "q":
		return true, nil
	}
	return false, errors.Newf("unknown command %q, press ? for help", cmd)
}

func (c *console) warn(err error) {
	fmt.Fprintf(c.out, "❗ %v\n", err)
}

// ask prompts for one line. An empty answer returns def.
func (c *console) ask(label, def string) string {
	defer c.rl.SetPrompt("radiobox> ")
	if def != "" {
		c.rl.SetPrompt(fmt.Sprintf("%s [%s]: ", label, def))
	} else {
		c.rl.SetPrompt(label + ": ")
	}
	line, _ := c.rl.Readline()
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

// refresh reloads the station list from the catalog.
func (c *console) refresh(ctx context.Context) ([]station.Station, error) {
	stations, err := c.catalog.Stations(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.stations = stations
	c.mu.Unlock()
	return stations, nil
}

func (c *console) stationNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.stations))
	for _, st := range c.stations {
		names = append(names, st.Name)
	}
	return names
}

// pick resolves a 1-based list number, a station ID or a name.
func pick(stations []station.Station, key string) (station.Station, bool) {
	if n, err := strconv.Atoi(key); err == nil {
		if n >= 1 && n <= len(stations) {
			return stations[n-1], true
		}
		return station.Station{}, false
	}
	return station.Find(stations, key)
}

// tune starts playing the station matching key.
func (c *console) tune(ctx context.Context, key string) error {
	stations, err := c.refresh(ctx)
	if err != nil {
		return err
	}
	st, ok := pick(stations, key)
	if !ok {
		return errors.Wrapf(catalog.ErrNotFound, "station %q", key)
	}
	return c.player.Play(st)
}

func (c *console) selectStation(ctx context.Context) error {
	stations, err := c.refresh(ctx)
	if err != nil {
		return err
	}
	if len(stations) == 0 {
		return errors.New("no stations, press c to create one")
	}
	for i, st := range stations {
		fmt.Fprintf(c.out, "  %2d) %s\n", i+1, st.Name)
	}
	key := c.ask("Station", "")
	if key == "" {
		return nil
	}
	st, ok := pick(stations, key)
	if !ok {
		return errors.Wrapf(catalog.ErrNotFound, "station %q", key)
	}
	return c.player.Play(st)
}

// rate loves or bans the current track. A banned track is skipped.
func (c *console) rate(ctx context.Context, positive bool) error {
	snap := c.player.State()
	if snap.Station == nil || snap.Track == nil {
		return errNothingPlaying
	}
	if err := c.catalog.Rate(ctx, *snap.Station, *snap.Track, positive); err != nil {
		return err
	}
	if positive {
		fmt.Fprintf(c.out, "❤️  Loved %q\n", snap.Track.Title())
		return nil
	}
	fmt.Fprintf(c.out, "🚫 Banned %q\n", snap.Track.Title())
	return c.player.Skip()
}

func (c *console) create(ctx context.Context) error {
	query := c.ask("Search", "")
	if query == "" {
		return nil
	}
	st, err := c.catalog.Create(ctx, query)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "✨ Created station %q\n", st.Name)
	if _, err := c.refresh(ctx); err != nil {
		zlog.Warn().Err(err).Msg("Failed to refresh stations")
	}
	return c.player.Play(st)
}

func (c *console) rename(ctx context.Context) error {
	snap := c.player.State()
	if snap.Station == nil {
		return errNothingPlaying
	}
	st := *snap.Station
	if !st.AllowRename {
		return errors.Wrapf(catalog.ErrNotAllowed, "station %q cannot be renamed", st.Name)
	}
	name := c.ask("New name", st.Name)
	if name == st.Name {
		return nil
	}
	if err := c.catalog.Rename(ctx, st, name); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "✏️  Renamed %q to %q\n", st.Name, name)
	_, err := c.refresh(ctx)
	return err
}

// remove deletes the current station after confirmation and stops.
func (c *console) remove(ctx context.Context) error {
	snap := c.player.State()
	if snap.Station == nil {
		return errNothingPlaying
	}
	st := *snap.Station
	if !st.AllowDelete {
		return errors.Wrapf(catalog.ErrNotAllowed, "station %q cannot be deleted", st.Name)
	}
	answer := c.ask(fmt.Sprintf("Delete %q? (y/N)", st.Name), "")
	if !strings.EqualFold(answer, "y") {
		return nil
	}
	if err := c.player.Stop(); err != nil {
		return err
	}
	if err := c.catalog.Delete(ctx, st); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "🗑  Deleted %q\n", st.Name)
	_, err := c.refresh(ctx)
	return err
}

func (c *console) info() {
	snap := c.player.State()
	fmt.Fprintf(c.out, "  Status:   %s\n", snap.Status.Kind)
	if snap.Station != nil {
		fmt.Fprintf(c.out, "  Station:  %s\n", snap.Station.String())
	}
	if snap.Track != nil {
		fmt.Fprintf(c.out, "  Track:    %s\n", formatTrack(*snap.Track))
		fmt.Fprintf(c.out, "  Progress: %s\n", formatProgress(snap.Progress))
		if snap.Track.AlbumArtURL != "" {
			fmt.Fprintf(c.out, "  Art:      %s\n", snap.Track.AlbumArtURL)
		}
	}
}
