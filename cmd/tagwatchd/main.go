// tagwatchd runs the tagwatch monitoring core as a standalone process.
//
// It reads NDJSON sample and connection-status lines from stdin (one per
// poll result, produced by the acquisition front end) and writes triggered
// alert events as NDJSON to stdout. The historical store and alert history
// survive restarts through the configured data directory.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tagwatch/internal/config"
	"tagwatch/internal/logging"
	"tagwatch/internal/monitor"
	"tagwatch/internal/notify"
	"tagwatch/internal/types"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfgPath := flag.String("config", "config.yaml", "config file path")
	dataDir := flag.String("data", "", "data directory (overrides config)")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = config.DefaultConfig()
		} else {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	logging.Init(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.JSON)
	log := logging.Component("tagwatchd")
	log.Info("starting", "version", Version, "data_dir", cfg.DataDir)

	core, err := monitor.Open(cfg)
	if err != nil {
		log.Error("open core", "error", err)
		os.Exit(1)
	}

	// Triggered and acknowledged alerts go to stdout as NDJSON.
	var outMu sync.Mutex
	out := json.NewEncoder(os.Stdout)
	emit := func(kind string, payload any) {
		outMu.Lock()
		defer outMu.Unlock()
		if err := out.Encode(map[string]any{"event": kind, "data": payload}); err != nil {
			log.Error("write event", "error", err)
		}
	}
	core.Events().Subscribe(notify.Callbacks{
		OnAlertTriggered:    func(ev types.AlertEvent) { emit("alert-triggered", ev) },
		OnAlertAcknowledged: func(id int64) { emit("alert-acknowledged", id) },
		OnRuleChanged:       func(rule types.AlertRule) { emit("rule-changed", rule) },
		OnRuleDeleted:       func(id string) { emit("rule-deleted", id) },
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return feed(ctx, core, log)
	})
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("feed stopped", "error", err)
	}

	if err := core.Close(); err != nil {
		log.Error("close core", "error", err)
	}
	log.Info("stopped")
}

// feed reads NDJSON lines from stdin and forwards them to the core until
// EOF or shutdown. A malformed line is logged and skipped; it never stops
// the feed.
func feed(ctx context.Context, core *monitor.Core, log *slog.Logger) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}

		line, err := decodeLine(data)
		if err != nil {
			log.Warn("skip line", "error", err)
			continue
		}

		if line.isConnection() {
			core.ProcessConnectionStatus(line.Connection, types.ConnStatus(line.Status))
			continue
		}

		sample := line.sample(time.Now().UnixMilli())
		core.RecordValue(sample)
		if sample.IsNumeric() {
			core.ProcessTagValue(sample.TagID, sample.Value)
		}
	}

	return scanner.Err()
}
