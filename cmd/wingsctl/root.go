package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/redbco/wings/internal/config"
	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/logger"

	// Register the backends reachable by URL scheme
	_ "github.com/redbco/wings/internal/database/memory"
	_ "github.com/redbco/wings/internal/database/mongodb"
	_ "github.com/redbco/wings/internal/database/mysql"
	_ "github.com/redbco/wings/internal/database/postgres"
	_ "github.com/redbco/wings/internal/database/sqlite"
)

// app holds the state shared by every command.
type app struct {
	configFile string
	profile    string
	legacy     bool

	cfg *config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "wingsctl",
		Short: "Query and serve database tables through the wings adapter",
		Long: "wingsctl runs find, get, create, patch and remove against a configured table " +
			"on memory, SQLite, PostgreSQL, MySQL or MongoDB, and can serve it over gRPC.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				printVersionInfo(cmd.OutOrStdout())
				return nil
			}
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", config.DefaultPath(), "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&a.profile, "profile", "p", "", "Profile to use (default from config)")
	rootCmd.PersistentFlags().BoolVar(&a.legacy, "legacy", false, "Use the legacy calling convention")
	rootCmd.Flags().Bool("version", false, "Show version information and exit")

	rootCmd.AddCommand(
		newFindCmd(a),
		newGetCmd(a),
		newCreateCmd(a),
		newPatchCmd(a),
		newRemoveCmd(a),
		newRemoveAllCmd(a),
		newServeCmd(a),
		newProfilesCmd(a),
	)
	return rootCmd
}

// load reads the configuration and sets up logging.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return fmt.Errorf("error initializing config: %w", err)
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logger.New("wingsctl", Version)
	a.log.SetLevel(level)
	a.log.SetOutput(cmd.ErrOrStderr())
	return nil
}

// open connects to the selected profile's backend.
func (a *app) open(ctx context.Context) (*adapter.Service, func(), error) {
	p, err := a.cfg.Profile(a.profile)
	if err != nil {
		return nil, nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}

	conn, err := adapter.Open(ctx, p.URL, p.BackendConfig(a.log))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", p.Table, err)
	}
	svc, err := adapter.New(conn, p.Options(a.log))
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := conn.Close(); err != nil {
			a.log.Warn("Failed to close backend: %v", err)
		}
	}
	return svc, closeFn, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readArg returns arg, or standard input when arg is "-".
func readArg(cmd *cobra.Command, arg string) ([]byte, error) {
	if arg != "-" {
		return []byte(arg), nil
	}
	return io.ReadAll(cmd.InOrStdin())
}
