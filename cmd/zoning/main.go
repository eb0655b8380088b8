package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disintegration/imaging"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/config"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/frameio"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/store"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/webmonitor"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/zoning"
)

var (
	// Command-line flags
	configPath  = flag.String("config", "", "Configuration file (YAML or JSON)")
	httpAddr    = flag.String("http", "", "Monitor server address (overrides server.http)")
	metricsAddr = flag.String("metrics", "", "Metrics server address (overrides server.metrics)")
	dbPath      = flag.String("db", "", "Count history sqlite file (overrides server.db)")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error, silent; overrides log.level)")
	logColor    = flag.Bool("log-color", true, "Enable colored log output (overrides log.color)")
	maskIn      = flag.String("mask-in", "", "Blur the remove areas of this image and exit")
	maskOut     = flag.String("mask-out", "masked.png", "Output PNG for -mask-in")
)

func main() {
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	applyFlags(&cfg, explicitFlags())

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, cfg.Log.Color)

	engineCfg, err := cfg.Engine()
	if err != nil {
		log.Fatalf("Invalid zoning config: %v", err)
	}
	engine, err := zoning.New(engineCfg)
	if err != nil {
		log.Fatalf("Failed to build zoning engine: %v", err)
	}

	if *maskIn != "" {
		if err := maskImage(engine, *maskIn, *maskOut); err != nil {
			log.Fatalf("Mask failed: %v", err)
		}
		logger.Info("Main", "Wrote %s", *maskOut)
		return
	}

	logger.Info("Main", "Zoning stage starting...")
	logger.Info("Main", "Log level: %s", level)
	logger.Info("Main", "Zones: %v, classes: %v, rest mode: %s",
		engine.ZoneIDs(), engine.Catalog().Names(), engine.RestMode())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, engine); err != nil {
		log.Fatalf("Zoning stage failed: %v", err)
	}
	logger.Info("Main", "Zoning stage stopped")
}

// explicitFlags returns the names of the flags given on the command line.
func explicitFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// applyFlags overrides file settings with the flags that were given.
func applyFlags(cfg *config.Config, set map[string]bool) {
	if set["http"] {
		cfg.Server.HTTP = *httpAddr
	}
	if set["metrics"] {
		cfg.Server.Metrics = *metricsAddr
	}
	if set["db"] {
		cfg.Server.DB = *dbPath
	}
	if set["log-level"] {
		cfg.Log.Level = *logLevel
	}
	if set["log-color"] {
		cfg.Log.Color = *logColor
	}
}

// maskImage applies the remove-area blur to a single image file.
func maskImage(engine *zoning.Engine, in, out string) error {
	src, err := imaging.Open(in)
	if err != nil {
		return fmt.Errorf("open %s: %w", in, err)
	}
	frame := engine.PreProcess(imaging.Clone(src))
	if err := imaging.Save(frame, out); err != nil {
		return fmt.Errorf("save %s: %w", out, err)
	}
	return nil
}

// run processes stdin until it is exhausted or ctx is cancelled, serving the
// optional metrics and monitor endpoints meanwhile.
func run(ctx context.Context, cfg config.Config, engine *zoning.Engine) error {
	m := metrics.New()
	st := &stage{engine: engine, metrics: m, log: logger.For("Stage")}

	if cfg.Server.DB != "" {
		db, err := store.Open(cfg.Server.DB)
		if err != nil {
			return err
		}
		defer db.Close()
		st.store = db
		logger.Info("Main", "Recording counts to %s (session %s)", cfg.Server.DB, db.Session())
	}

	var servers []*http.Server
	if cfg.Server.Metrics != "" {
		servers = append(servers, m.NewServer(cfg.Server.Metrics))
	}
	if cfg.Server.HTTP != "" {
		monitor := webmonitor.NewMonitor(engine.ZoneIDs(), engine.Catalog().Names(), engine.RestMode().String(), 0)
		opts := []webmonitor.Option{
			webmonitor.WithMetrics(m.Handler()),
			webmonitor.WithClientObserver(func(n int) { m.ActiveClients.Store(uint64(n)) }),
		}
		if st.store != nil {
			opts = append(opts, webmonitor.WithHistory(st.store))
		}
		wcfg := webmonitor.DefaultConfig()
		wcfg.Addr = cfg.Server.HTTP
		wcfg.StatusInterval = cfg.Server.StatusInterval
		wcfg.HistoryLimit = cfg.Server.HistoryLimit

		st.monitor = webmonitor.NewServer(wcfg, monitor, opts...)
		servers = append(servers, &http.Server{
			Addr:              wcfg.Addr,
			Handler:           st.monitor.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Info("Main", "Listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Main", "Server %s error: %v", srv.Addr, err)
			}
		}(srv)
	}
	defer func() {
		if st.monitor != nil {
			// Streams only end once their broadcasters close.
			st.monitor.Close()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Main", "Shutdown %s: %v", srv.Addr, err)
			}
		}
	}()

	// A blocked stdin read only returns once the file is closed.
	go func() {
		<-ctx.Done()
		os.Stdin.Close()
	}()

	err := frameio.Run(ctx, os.Stdin, os.Stdout, st.handle, st.reportError)
	logger.Info("Main", "Frames read: %d, processed: %d, failed: %d, malformed: %d",
		m.FramesRead.Load(), m.FramesProcessed.Load(), m.FramesFailed.Load(), m.FramesMalformed.Load())
	if ctx.Err() != nil {
		return nil
	}
	return err
}
