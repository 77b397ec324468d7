package cmd

import (
	"context"
	"os"

	"github.com/habedi/pldl/db"
	"github.com/habedi/pldl/pkg/clierr"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// rootOptions carries the persistent flags and the lazily built app between commands.
type rootOptions struct {
	cfgFile string
	backend string
	store   string

	cfg *Config
	app *app
}

// Execute runs the root command and exits with a status matching the error type.
func Execute() { ExecuteContext(context.Background()) }

// ExecuteContext is Execute with a context that cancels in-flight work, such as on interrupt.
func ExecuteContext(ctx context.Context) {
	_ = godotenv.Load()

	rootCmd, opts := newRootCmd()
	rootCmd.PersistentFlags().BoolP("help", "h", false, "Show help for a command")

	err := rootCmd.ExecuteContext(ctx)
	opts.close()
	if err != nil {
		cliErr := clierr.FromError(err)
		log.Error().Err(err).Str("type", string(cliErr.Type)).Msg("Command execution failed.")
		rootCmd.PrintErrln("Error:", cliErr.Message)
		os.Exit(cliErr.Type.ExitCode())
	}
}

func createRootCmd() *cobra.Command {
	rootCmd, _ := newRootCmd()
	return rootCmd
}

func newRootCmd() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "pldl",
		Short:         "Download Spotify playlists as audio archives",
		Long:          "pldl logs in to a playlist backend, lists and analyzes Spotify playlists, and downloads their tracks as a zip archive.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "Path to a config file (YAML, TOML or JSON)")
	rootCmd.PersistentFlags().StringVarP(&opts.backend, "backend", "b", "", "Backend base URL (default http://localhost:5000)")
	rootCmd.PersistentFlags().StringVar(&opts.store, "store", "", "Credential store [sqlite, keyring, memory] (default sqlite)")

	rootCmd.AddCommand(
		loginCmd(opts),
		logoutCmd(opts),
		statusCmd(opts),
		playlistsCmd(opts),
		analyzeCmd(opts),
		downloadCmd(opts),
		versionCmd(),
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	return rootCmd, opts
}

// load builds the app on first use. Commands that do not talk to the backend never call it.
func (o *rootOptions) load(cmd *cobra.Command) (*app, error) {
	if o.app != nil {
		return o.app, nil
	}
	cfg, err := loadConfig(o.cfgFile, cmd.Flags())
	if err != nil {
		return nil, clierr.New(clierr.Validation, err.Error(), err)
	}
	a, err := newApp(cfg)
	if err != nil {
		return nil, clierr.New(clierr.Internal, err.Error(), err)
	}
	o.cfg, o.app = cfg, a
	return a, nil
}

func (o *rootOptions) close() {
	if o.app != nil {
		o.app.close()
		o.app = nil
	}
	closeDatabase()
}

func closeDatabase() {
	if err := db.CloseDB(); err != nil {
		log.Error().Err(err).Msg("Failed to close the database.")
	}
}
