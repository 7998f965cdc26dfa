package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vjranagit/memtrend/pkg/api"
	"github.com/vjranagit/memtrend/pkg/archive"
)

var (
	serveListen  string
	serveArchive string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve archived runs and comparisons over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "",
		"listen address (default from config)")
	serveCmd.Flags().StringVar(&serveArchive, "archive", "",
		"archive directory (default from config)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	acfg := cfg.ToArchiveConfig()
	if serveArchive != "" {
		acfg.Path = serveArchive
	}

	arc, err := archive.Open(acfg)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer arc.Close()

	cached := archive.NewCachedArchive(arc, cfg.Archive.CacheSize, time.Duration(cfg.Archive.CacheTTL))

	addr := cfg.Server.ListenAddr
	if serveListen != "" {
		addr = serveListen
	}

	server := api.NewServer(addr, cached, log.StandardLogger())

	ctx, cancel := signalContext()
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("report server listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.Timeout))
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("server stopped")
	return nil
}
