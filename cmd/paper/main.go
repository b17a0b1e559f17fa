package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"PaperTicker/internal/collector"
	"PaperTicker/internal/config"
	"PaperTicker/internal/display"
	"PaperTicker/internal/logging"
	"PaperTicker/internal/notifier"
	"PaperTicker/internal/recorder"
	"PaperTicker/internal/render"
	"PaperTicker/internal/scheduler"
	"PaperTicker/internal/ticker"
)

func main() {
	os.Exit(run())
}

func run() int {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] load .env: %v", err)
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("[FATAL] load config: %v", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("[FATAL] config validation: %v", err)
		return 1
	}
	if dir, err := config.ProgramDir(); err == nil {
		cfg.ResolvePaths(dir)
	} else {
		log.Printf("[WARN] locate program dir, paths stay relative: %v", err)
	}

	closer := logging.Setup(logging.Options{
		Path:      cfg.Log.Path,
		MaxFiles:  cfg.Log.MaxFiles,
		MaxSizeMB: cfg.Log.MaxSizeMB,
	})
	defer closer.Close()

	log.Println("[INFO] PaperTicker starting...")
	log.Printf("[INFO] debug=%v before_this_hour=%d every_x_mins=%d refresh=%q",
		cfg.Debug, cfg.BeforeThisHour, cfg.EveryXMins, cfg.Display.RefreshInterval)

	// Init display
	var disp display.Display
	if cfg.Debug || runtime.GOOS == "windows" {
		var opener display.Opener
		if *cfg.Output.Open {
			opener = display.OpenWithDefaultApp
		}
		disp = display.NewSimulated(cfg.Display.Width, cfg.Display.Height, cfg.Output.PNGPath, opener)
	} else {
		w, err := display.OpenWaveshare(cfg.Display.SPIPort, *cfg.Display.Rotate180)
		if err != nil {
			log.Printf("[FATAL] open display: %v", err)
			return 1
		}
		disp = w
	}
	log.Printf("[INFO] display: %s", disp.Name())

	// Init fetcher
	fetcher := collector.NewCoinbaseFetcher(cfg.Ticker.BaseURL, cfg.Proxy, cfg.Ticker.Timeout)
	col := collector.NewCollector(fetcher, cfg.Ticker.Product)
	log.Printf("[INFO] data source: %s (%s)", fetcher.Name(), cfg.Ticker.Product)

	// Init renderer
	b := disp.Bounds()
	rdr, err := render.New(render.Options{
		Width:    b.Dx(),
		Height:   b.Dy(),
		FontPath: cfg.Font.Path,
		Label:    cfg.Ticker.Label,
		Currency: cfg.Ticker.Currency,
		Location: cfg.Location(),
	})
	if err != nil {
		log.Printf("[FATAL] init renderer: %v", err)
		return 1
	}

	sched, err := scheduler.NewScheduler(cfg.Display.RefreshInterval)
	if err != nil {
		log.Printf("[FATAL] parse refresh interval: %v", err)
		return 1
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}

	loop, err := ticker.New(*cfg, ticker.Deps{
		Display:   disp,
		Collector: col,
		Renderer:  rdr,
		Waiter:    sched,
		Recorder:  rec,
		Notifier:  tn,
		Gate:      logging.NewGate(nil, cfg.LogInfo, cfg.LogError),
		SessionID: uuid.NewString(),
	})
	if err != nil {
		log.Printf("[FATAL] init loop: %v", err)
		return 1
	}

	// The first signal stops the loop, the second cuts teardown short.
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	teardownCtx, cancelTeardown := context.WithCancel(context.Background())
	defer cancelTeardown()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig := <-sigCh
		log.Printf("[INFO] %v received, stopping...", sig)
		cancelRun()
		sig = <-sigCh
		log.Printf("[WARN] %v received during teardown, skipping ghost fix", sig)
		cancelTeardown()
	}()

	runErr := loop.Run(runCtx)
	switch {
	case runErr == nil:
		log.Println("[INFO] single frame written, exiting")
		return 0
	case errors.Is(runErr, ticker.ErrCancelled):
		if err := loop.Teardown(teardownCtx, "signal"); err != nil {
			log.Printf("[ERROR] teardown: %v", err)
			return 1
		}
		log.Println("[INFO] PaperTicker stopped")
		return 0
	default:
		log.Printf("[ERROR] %v", runErr)
		if err := loop.Teardown(teardownCtx, "fatal: "+runErr.Error()); err != nil {
			log.Printf("[ERROR] teardown: %v", err)
		}
		return 1
	}
}
