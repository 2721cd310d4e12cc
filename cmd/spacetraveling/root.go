package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/spacetraveling"
)

var (
	flagConfig   string
	flagSnapshot string
)

var rootCmd = &cobra.Command{
	Use:          "spacetraveling",
	Short:        "Server-rendered blog backed by a headless CMS",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	buildCmd.Flags().StringVar(&flagSnapshot, "snapshot", "", "snapshot database path (overrides config)")
	listCmd.Flags().StringVar(&flagSnapshot, "snapshot", "", "snapshot database path (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	RunE:  runServe,
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Fetch every post into the snapshot database",
	RunE:  runBuild,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the posts in the snapshot database",
	RunE:  runList,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("spacetraveling %s\n", version)
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := spacetraveling.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	app := spacetraveling.New(cfg, spacetraveling.DefaultViews())
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Echo.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := spacetraveling.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	if flagSnapshot != "" {
		cfg.SnapshotPath = flagSnapshot
	}
	res, err := spacetraveling.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	fmt.Printf("built %d posts, removed %d\n", res.Posts, res.Removed)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := spacetraveling.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	if flagSnapshot != "" {
		cfg.SnapshotPath = flagSnapshot
	}
	posts, err := spacetraveling.ListSnapshot(cfg)
	if err != nil {
		return err
	}
	for _, p := range posts {
		date := "-"
		if p.FirstPublicationDate != nil {
			date = p.FirstPublicationDate.Format("2006-01-02")
		}
		fmt.Printf("%s  %-40s %s\n", date, p.UID, p.Title)
	}
	return nil
}
