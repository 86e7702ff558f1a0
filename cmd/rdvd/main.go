// Command rdvd is the orchestration platform's daemon: it opens the
// database, wires the monitoring and memory collaborators, and serves the
// Unix-socket API until an OS signal asks it to stop.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/remotedev/rdv/internal/app"
	"github.com/remotedev/rdv/internal/memory"
	"github.com/remotedev/rdv/internal/server"
	"github.com/remotedev/rdv/internal/store"
	"github.com/remotedev/rdv/internal/terminal"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if err := run(); err != nil {
		slog.Error("rdvd exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	dbPath, err := app.RDVDBPath()
	if err != nil {
		return err
	}
	db, err := store.InitDBWithPath(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	socketPath, err := app.SocketPath()
	if err != nil {
		return err
	}
	pidPath, err := app.PIDPath()
	if err != nil {
		return err
	}
	tokenPath, err := app.ServiceTokenPath()
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		SocketPath:       socketPath,
		PIDPath:          pidPath,
		ServiceTokenPath: tokenPath,
	}, db, memory.LevenshteinEmbedder{}, terminal.NewTmuxAdapter())

	if err := srv.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
