// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Command doctimeline-watch runs a project.Watcher against a directory
// of structured-data documents, logging every tick until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ibetz1/json-flow/project"
)

func main() {
	metadataPath := flag.String("project", "", "path to the project metadata file (created if missing)")
	originatingPath := flag.String("origin", "", "directory to watch for structured-data documents")
	pollInterval := flag.Duration("poll", project.DefaultPollInterval, "fallback polling interval when fsnotify can't watch the origin")
	flag.Parse()

	if *metadataPath == "" {
		fmt.Fprintln(os.Stderr, "usage: doctimeline-watch -project <path> [-origin <dir>] [-poll 2s]")
		os.Exit(2)
	}

	logger := slog.Default()
	w, err := project.NewWatcher(*metadataPath, project.WithLogger(logger), project.WithPollInterval(*pollInterval))
	if err != nil {
		fmt.Fprintf(os.Stderr, "new watcher: %v\n", err)
		os.Exit(1)
	}

	if *originatingPath != "" {
		w.SetOriginatingPath(*originatingPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := w.Watch(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		os.Exit(1)
	}

	logger.Info("[doctimeline] watch loop started", "metadata_path", *metadataPath, "instance", w.InstanceID())
	for result := range results {
		if !result.Dirty {
			continue
		}
		logger.Info("[doctimeline] tick",
			"new_files", len(result.NewFiles),
			"changed_files", len(result.ChangedFiles),
			"skipped", len(result.Skipped),
		)
	}
	logger.Info("[doctimeline] watch loop stopped")
}
