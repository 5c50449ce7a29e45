package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/csvlog/internal/config"
	"github.com/therealutkarshpriyadarshi/csvlog/internal/logging"
	"github.com/therealutkarshpriyadarshi/csvlog/internal/metrics"
	"github.com/therealutkarshpriyadarshi/csvlog/internal/shutdown"
	"github.com/therealutkarshpriyadarshi/csvlog/internal/sink"
	"github.com/therealutkarshpriyadarshi/csvlog/internal/writer"
	"github.com/therealutkarshpriyadarshi/csvlog/pkg/types"
)

var (
	configFile = flag.String("config", "config.yaml", "Path to configuration file")
	version    = "0.1.0"
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// inputEvent is the JSON shape accepted on stdin.
type inputEvent struct {
	Timestamp time.Time `json:"timestamp"`
	ThreadID  int64     `json:"thread_id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

func run() error {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logging.SetGlobal(logger)

	logger.Info().Str("version", version).Msg("Starting csvlog daemon")

	collector := metrics.NewCollector()

	w, err := writer.Open(cfg.WriterConfig(), collector)
	if err != nil {
		return fmt.Errorf("failed to open writer: %w", err)
	}

	logger.Info().
		Str("path", cfg.Sink.Path).
		Int("columns", len(w.Renderer().FileSchema())).
		Int("suppressed", len(w.Renderer().SuppressedSchema())).
		Msg("Writer initialized")

	shutdownMgr := shutdown.New(shutdown.Config{Logger: logger})

	// The active writer is swapped on config reload; the guard keeps
	// line writes and swaps from interleaving.
	var mu sync.Mutex
	active := w

	shutdownMgr.RegisterFunc("writer", func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		return active.Close()
	})

	if cfg.Metrics.Enabled {
		srv := startMetricsServer(cfg.Metrics, collector, logger)
		shutdownMgr.RegisterFunc("metrics-server", srv.Shutdown)
	}

	watcher, err := config.NewWatcher(*configFile, logger)
	if err != nil {
		return fmt.Errorf("failed to watch config: %w", err)
	}
	shutdownMgr.RegisterFunc("config-watcher", func(context.Context) error {
		return watcher.Close()
	})

	// Reload loop: rebuild the writer when the config file changes.
	go func() {
		for newCfg := range watcher.Changes() {
			newWriter, err := writer.Open(newCfg.WriterConfig(), collector)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to rebuild writer, keeping current")
				continue
			}

			mu.Lock()
			old := active
			active = newWriter
			mu.Unlock()

			if err := old.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to close replaced writer")
			}
			logger.Info().Msg("Writer rebuilt from updated configuration")
		}
	}()

	// Stats polling keeps the sink gauges current.
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				mu.Lock()
				fileSink, ok := active.Sink().(*sink.File)
				mu.Unlock()
				if ok {
					stats := fileSink.Stats()
					collector.SinkActiveSize.Set(float64(stats.ActiveSize))
					collector.SinkRotations.Set(float64(stats.Rotations))
				}
			case <-shutdownMgr.ShutdownChannel():
				return
			}
		}
	}()

	// Stdin loop: one event per line, JSON or bare text.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			ev := parseLine(scanner.Text())

			mu.Lock()
			err := active.Write(ev)
			mu.Unlock()

			if err != nil {
				logger.Error().Err(err).Msg("Failed to write event")
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Error().Err(err).Msg("Stdin read failed")
		}
		logger.Info().Msg("Input stream closed")
		shutdownMgr.Shutdown()
	}()

	shutdownMgr.WaitForSignal()
	<-shutdownMgr.Done()
	return nil
}

// parseLine decodes a JSON event; bare lines become Info events stamped
// now.
func parseLine(line string) types.LogEvent {
	if strings.HasPrefix(strings.TrimSpace(line), "{") {
		var in inputEvent
		if err := json.Unmarshal([]byte(line), &in); err == nil {
			level, _ := types.ParseLevel(in.Level)
			ts := in.Timestamp
			if ts.IsZero() {
				ts = time.Now()
			}
			return types.LogEvent{
				Timestamp: ts,
				ThreadID:  in.ThreadID,
				Level:     level,
				Message:   in.Message,
			}
		}
	}

	return types.LogEvent{
		Timestamp: time.Now(),
		Level:     types.LevelInfo,
		Message:   line,
	}
}

func startMetricsServer(cfg config.MetricsConfig, collector *metrics.Collector, logger *logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, collector.Handler())

	srv := &http.Server{
		Addr:    cfg.Address,
		Handler: mux,
	}

	go func() {
		logger.Info().Str("address", cfg.Address).Str("path", cfg.Path).Msg("Metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return srv
}
