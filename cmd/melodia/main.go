// Package main is the entry point of the Melodia desktop player.
//
// Build:
//
//	go build -o build/melodia ./cmd/melodia
//
// Run against a local content service, or offline with the demo catalog:
//
//	./build/melodia --catalog-url http://127.0.0.1:8080/api
//	./build/melodia --demo --mock-audio
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/melodia/internal/app"
	"github.com/tejashwikalptaru/melodia/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	v := config.New()

	root := &cobra.Command{
		Use:   "melodia",
		Short: "Melodia - desktop player for the music marketplace",
		Long: `Melodia browses the marketplace catalog and plays songs, albums and
playlists with shuffle, repeat and play history.

Every flag can also be set as MELODIA_<FLAG> (dashes become underscores)
or in a config file passed with --config.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	config.RegisterFlags(root.Flags())
	if err := v.BindPFlags(root.Flags()); err != nil {
		panic(fmt.Sprintf("failed to bind flags: %v", err))
	}

	root.AddCommand(newVersionCmd())
	return root
}

func run(cmd *cobra.Command, cfg config.Config) error {
	application, err := app.NewApplication(cfg, app.Options{})
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			application.Quit()
		case <-done:
		}
	}()

	// Run blocks until the window is closed
	runErr := application.Run()
	if err := application.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
	}
	return runErr
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintln(w, app.GetVersionInfo().FullString())
}
