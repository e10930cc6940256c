package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/jward/langtree"
	"github.com/jward/langtree/internal/store"
	"github.com/jward/langtree/internal/telemetry"
)

var (
	flagDB          string
	flagFormat      string
	flagLocale      string
	flagLogLevel    string
	flagMetricsFile string
	flagSelfCheck   bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// Set up by PersistentPreRunE.
var (
	locale   language.Tag
	logger   *slog.Logger
	recorder *telemetry.Recorder
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "langtree",
	Short:         "Browse a linguistic-resource catalog as language trees",
	Long:          "Langtree imports catalog snapshots into SQLite and derives language trees, dictionary counts, grant partitions and alphabetical indexes from them.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		tag, err := language.Parse(flagLocale)
		if err != nil {
			return fmt.Errorf("invalid locale %q: %w", flagLocale, err)
		}
		locale = tag
		var level slog.Level
		if err := level.UnmarshalText([]byte(flagLogLevel)); err != nil {
			return fmt.Errorf("invalid log level %q: must be debug, info, warn or error", flagLogLevel)
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		recorder = telemetry.NewRecorder()
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if flagMetricsFile == "" {
			return nil
		}
		return recorder.WriteTextfile(flagMetricsFile)
	},
	// No Run; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .langtree/catalog.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagLocale, "locale", "und", "BCP 47 locale for ordering and letter casing")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&flagMetricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	rootCmd.PersistentFlags().BoolVar(&flagSelfCheck, "self-check", false, "verify count and partition invariants after each pass")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(grantsCmd)
	rootCmd.AddCommand(lettersCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(infoCmd)
}

// newEngine builds an Engine from the global flags.
func newEngine() *langtree.Engine {
	return langtree.New(
		langtree.WithLocale(locale),
		langtree.WithLogger(logger),
		langtree.WithObserver(recorder),
		langtree.WithSelfCheck(flagSelfCheck),
	)
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, ".langtree", "catalog.db")
}

func dbPath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}
	return resolveDBPath(findRepoRoot(cwd)), nil
}

// openStore opens an existing database.
func openStore() (*store.Store, error) {
	path, err := dbPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'langtree import' first)", path)
	}
	s, err := store.NewStore(path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// createStore opens the database, creating it and its directory if needed.
func createStore() (*store.Store, string, error) {
	path, err := dbPath()
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, "", fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	s, err := store.NewStore(path)
	if err != nil {
		return nil, "", err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, "", err
	}
	return s, path, nil
}

// loadSnapshot reads the stored catalog.
func loadSnapshot() (*langtree.Snapshot, error) {
	s, err := openStore()
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Snapshot()
}

// parseKeys parses a comma-separated list of "object/owner" ids.
func parseKeys(list string) ([]langtree.ID, error) {
	var ids []langtree.ID
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := langtree.ParseID(part)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
