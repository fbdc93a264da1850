// Command actiongraph serves graph definitions from a directory as MCP
// tools over stdio and runs any configured cron schedules.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/actiongraph/actiongraph/internal/logging"
	"github.com/actiongraph/actiongraph/pkg/actions"
	"github.com/actiongraph/actiongraph/pkg/definition"
	"github.com/actiongraph/actiongraph/pkg/graph"
	"github.com/actiongraph/actiongraph/pkg/mcp"
	"github.com/actiongraph/actiongraph/pkg/schedule"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "actiongraph: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := loadConfig()
	logger := newLogger(cfg.LogLevel)

	compiler, err := definition.NewCompiler(actions.DefaultRegistry())
	if err != nil {
		return err
	}

	graphs := mcp.NewGraphSet()
	loaded, err := loadDefinitions(cfg.DefinitionsDir, compiler, graphs, logger)
	if err != nil {
		return err
	}
	logger.Info("definitions loaded", "count", loaded, "dir", cfg.DefinitionsDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(cfg.Schedules) > 0 {
		sched := schedule.New(graphs, schedule.WithLogger(logger))
		for _, entry := range cfg.Schedules {
			if _, err := sched.Add(entry.ID, entry.Graph, entry.Cron); err != nil {
				return fmt.Errorf("schedule %q: %w", entry.ID, err)
			}
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	srv := mcp.NewServer(mcp.ServerDeps{Graphs: graphs, Logger: logger})
	return srv.Serve(ctx)
}

// loadDefinitions compiles every definition file in dir and registers it
// under its graph name (falling back to the file name). Graphs compile
// without a session: runs that need a live browser driver are expected to
// come from embedding code, not this binary.
func loadDefinitions(dir string, compiler *definition.Compiler, graphs *mcp.GraphSet, logger *slog.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		def, err := definition.LoadFile(path)
		if err != nil {
			return loaded, fmt.Errorf("load %s: %w", path, err)
		}

		name := def.Name
		if name == "" {
			name = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
			def.Name = name
		}

		description, _ := def.Metadata["description"].(string)
		builder := func() (*graph.Graph, error) {
			return compiler.Compile(def, nil, graph.WithLogger(logger))
		}
		if err := graphs.Register(name, description, builder); err != nil {
			return loaded, fmt.Errorf("register %s: %w", path, err)
		}

		logger.Info("graph registered", "graph", name, "file", entry.Name())
		loaded++
	}
	return loaded, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	// Stdout carries the MCP stdio transport; logs go to stderr.
	inner := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(inner))
}
