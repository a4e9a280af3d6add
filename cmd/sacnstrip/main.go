package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/physic"

	"github.com/example/sacnstrip/internal/config"
	"github.com/example/sacnstrip/internal/led"
	"github.com/example/sacnstrip/internal/render"
	"github.com/example/sacnstrip/internal/sacn"
	"github.com/example/sacnstrip/internal/status"
	"github.com/example/sacnstrip/internal/strip"
	"github.com/example/sacnstrip/internal/waveform"
	"github.com/example/sacnstrip/internal/ws"
)

var (
	configPath = pflag.StringP("config", "c", "config.yaml", "path to config.yaml")
	driver     = pflag.String("driver", "", "override driver: stream | spi | nrz | sim")
	simOnly    = pflag.Bool("sim-only", false, "force simulation (no hardware output)")
	verbose    = pflag.BoolP("verbose", "v", false, "debug logging")
)

func main() {
	pflag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; using defaults")
		cfg = config.Default()
	}
	if *driver != "" {
		cfg.Driver = *driver
	}
	if *simOnly {
		cfg.Driver = "sim"
	}

	if err := run(cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("exiting")
	}
	log.Info().Msg("shutdown complete")
}

func run(cfg *config.Config) error {
	profile, err := waveform.ProfileByName(cfg.Chip)
	if err != nil {
		return err
	}
	order := waveform.ChannelOrder(cfg.ColorOrder)

	buf := strip.New(cfg.LEDs, strip.RGB(cfg.IdleColor))

	drv := openStripDriver(cfg, order, profile)
	defer drv.Close()

	ind := status.NewIndicator(openStatusDriver(cfg))

	var hub *ws.Hub
	var observer func([]byte)

	rcv := sacn.NewReceiver(cfg.Listen, buf, func() {
		ind.Transition(status.ServerReady)
	})

	loop := render.NewLoop(buf, drv, cfg.FPS, func(f []byte) {
		if observer != nil {
			observer(f)
		}
	})

	if cfg.HTTP != "" {
		hub = ws.NewHub(cfg.LEDs, func() map[string]any {
			received, applied, dropped := rcv.Counters()
			frames, faults := loop.Counters()
			return map[string]any{
				"packets_received": received,
				"packets_applied":  applied,
				"packets_dropped":  dropped,
				"frames":           frames,
				"transmit_faults":  faults,
				"phase":            ind.Phase().String(),
			}
		})
		observer = hub.BroadcastFrame
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rcv.Run(ctx) })
	g.Go(func() error { return loop.Run(ctx) })
	g.Go(func() error { return ind.Watch(ctx, 5*time.Second) })

	if hub != nil {
		mux := http.NewServeMux()
		hub.Routes(mux)
		srv := &http.Server{
			Addr:         cfg.HTTP,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		g.Go(func() error {
			log.Info().Str("addr", cfg.HTTP).Msg("preview server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			_ = srv.Shutdown(shutCtx)
			return ctx.Err()
		})
	}

	return g.Wait()
}

// openStripDriver builds the configured output path, falling back to the
// simulator when hardware init fails so the daemon still comes up.
func openStripDriver(cfg *config.Config, order waveform.ChannelOrder, profile waveform.TimingProfile) led.Driver {
	spiClock := physic.Frequency(cfg.SPI.SpeedHz) * physic.Hertz

	var (
		drv led.Driver
		err error
	)
	switch cfg.Driver {
	case "stream":
		var tx *led.StreamTx
		if tx, err = led.NewStream(cfg.GPIO, 0); err == nil {
			drv, err = waveform.NewPipeline(tx, order, profile)
		}
	case "spi":
		var tx *led.SPITx
		if tx, err = led.NewSPITx(cfg.SPI.Dev, spiClock); err == nil {
			drv, err = waveform.NewPipeline(tx, order, profile)
		}
	case "nrz":
		drv, err = led.NewNRZ(cfg.SPI.Dev, cfg.LEDs, spiClock)
	default:
		return led.NewSim()
	}
	if err != nil {
		log.Warn().Err(err).Str("driver", cfg.Driver).Msg("driver init failed; falling back to sim")
		return led.NewSim()
	}
	log.Info().Str("driver", cfg.Driver).Int("leds", cfg.LEDs).Msg("strip driver ready")
	return drv
}

// openStatusDriver opens the auxiliary status LED, a 1-element strip on
// its own pin, through the same pipeline path.
func openStatusDriver(cfg *config.Config) led.Driver {
	if !cfg.Status.Enabled {
		return nil
	}
	profile, err := waveform.ProfileByName(cfg.Status.Chip)
	if err != nil {
		log.Warn().Err(err).Msg("status LED chip unknown; status LED disabled")
		return nil
	}
	tx, err := led.NewStream(cfg.Status.GPIO, 0)
	if err != nil {
		log.Warn().Err(err).Msg("status LED init failed; using sim")
		return led.NewSim()
	}
	pl, err := waveform.NewPipeline(tx, waveform.DefaultOrder, profile)
	if err != nil {
		log.Warn().Err(err).Msg("status LED pipeline failed; using sim")
		return led.NewSim()
	}
	return pl
}
