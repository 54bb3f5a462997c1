// Package main provides the radiobox console player.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/radiobox/internal/app/filter"
	"github.com/osa030/radiobox/internal/infra/catalog"
	"github.com/osa030/radiobox/internal/infra/config"
	"github.com/osa030/radiobox/internal/infra/logger"
)

var (
	app        = kingpin.New("radiobox", "Console internet radio player")
	configPath = app.Flag("config", "Path to config file").Default(config.DefaultPath()).String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: XDG state dir for start, stderr otherwise)").String()

	// start command (default)
	startCmd     = app.Command("start", "Start the interactive player (default)").Default()
	startStation = startCmd.Arg("station", "Station to tune in to, by ID or name").String()

	stationsCmd = app.Command("stations", "List stations and exit")

	createCmd   = app.Command("create", "Create a station from a search")
	createQuery = createCmd.Arg("query", "Song or artist to seed the station with").Required().String()

	renameCmd     = app.Command("rename", "Rename a station")
	renameStation = renameCmd.Arg("station", "Station ID or name").Required().String()
	renameName    = renameCmd.Arg("name", "New name").Required().String()

	deleteCmd     = app.Command("delete", "Delete a station")
	deleteStation = deleteCmd.Arg("station", "Station ID or name").Required().String()

	historyCmd   = app.Command("history", "Show recently played tracks")
	historyLimit = historyCmd.Flag("limit", "Number of entries").Short('n').Default("20").Int()

	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Handle list-filters command
	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{Output: "stderr", Level: "info"}
	if command == startCmd.FullCommand() {
		// Keep log lines off the prompt
		if path, err := logger.DefaultFile(); err == nil {
			loggerConfig.Output = path
		}
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, command, cfg); err != nil {
		zlog.Error().Msgf("%s: %v", command, err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// run executes the selected command. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(ctx context.Context, command string, cfg *config.Config) error {
	if command == historyCmd.FullCommand() {
		return printHistory(ctx, cfg, *historyLimit)
	}

	cat, err := catalog.NewFromConfig(ctx, cfg.Catalog)
	if err != nil {
		return err
	}

	switch command {
	case startCmd.FullCommand():
		return runConsole(ctx, cfg, cat, *startStation)

	case stationsCmd.FullCommand():
		stations, err := cat.Stations(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tFLAGS")
		for _, st := range stations {
			fmt.Fprintf(w, "%s\t%s\t%s\n", st.ID, st.Name, stationFlags(st))
		}
		return w.Flush()

	case createCmd.FullCommand():
		st, err := cat.Create(ctx, *createQuery)
		if err != nil {
			return err
		}
		fmt.Printf("Created station %q (%s)\n", st.Name, st.ID)
		return nil

	case renameCmd.FullCommand():
		st, err := catalog.Lookup(ctx, cat, *renameStation)
		if err != nil {
			return err
		}
		if !st.AllowRename {
			return errors.Wrapf(catalog.ErrNotAllowed, "station %q cannot be renamed", st.Name)
		}
		if err := cat.Rename(ctx, st, *renameName); err != nil {
			return err
		}
		fmt.Printf("Renamed %q to %q\n", st.Name, *renameName)
		return nil

	case deleteCmd.FullCommand():
		st, err := catalog.Lookup(ctx, cat, *deleteStation)
		if err != nil {
			return err
		}
		if !st.AllowDelete {
			return errors.Wrapf(catalog.ErrNotAllowed, "station %q cannot be deleted", st.Name)
		}
		if err := cat.Delete(ctx, st); err != nil {
			return err
		}
		fmt.Printf("Deleted %q\n", st.Name)
		return nil
	}

	return errors.Newf("unknown command: %s", command)
}

// printHistory prints the latest played tracks.
func printHistory(ctx context.Context, cfg *config.Config, limit int) error {
	store, err := openHistory(ctx, cfg.History)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("history is disabled in the config")
	}
	defer store.Close()

	entries, err := store.Latest(ctx, limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PLAYED\tSTATION\tTRACK")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.PlayedAt.Format("2006-01-02 15:04"), e.StationName, e.Track.Title())
	}
	return w.Flush()
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	for _, f := range availableFilters() {
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// availableFilters returns one instance of every filter, including those
// created with dependencies.
func availableFilters() []filter.Filter {
	var filters []filter.Filter
	for _, name := range filter.Names() {
		filters = append(filters, filter.GetRegistered()[name]())
	}
	return append(filters, filter.NewDuplicateTrackFilter(nil))
}
