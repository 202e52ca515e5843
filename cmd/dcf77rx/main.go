package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/dcf77rx/internal/cliconfig"
	"github.com/bft-labs/dcf77rx/internal/metrics"
	"github.com/bft-labs/dcf77rx/pkg/log"
	"github.com/bft-labs/dcf77rx/pkg/receiver"
	"github.com/bft-labs/dcf77rx/plugins/capturecleanup"
	"github.com/bft-labs/dcf77rx/plugins/configwatcher"
)

const helpDescription = `
Decode the DCF77 time signal from a receiver module wired to a serial port
modem status line, from a recorded capture, or from a built-in simulation.

Every valid minute frame can be logged, written to last_frame.json, posted
to a webhook and published over MQTT. Decoder and delivery counters are
exported for Prometheus.
`

var exampleUsage = strings.TrimSpace(`
  dcf77rx --port /dev/ttyUSB0 --line dcd --state-dir /var/lib/dcf77rx
  dcf77rx --source capture --capture capture-20250223T150000Z.txt
  dcf77rx --source sim --sim-minutes 3 --sim-noise 0.05
  dcf77rx convert 1740324600
  dcf77rx frame decode 0x945e3aa6140000
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dcf77rx:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string
	var simStart string

	root := &cobra.Command{
		Use:           "dcf77rx",
		Short:         "Decode the DCF77 time signal",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if simStart != "" {
				t, err := time.Parse(time.RFC3339, simStart)
				if err != nil {
					return fmt.Errorf("parse sim-start: %w", err)
				}
				cfg.SimStart = t
			}

			haveFile := cfgFile != "" && cliconfig.FileExists(cfgFile)
			if haveFile {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// DCF77RX_* override the file but not flags
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			zl, closer := cliconfig.NewLogger(cfg.LogLevel, cfg.LogFile)
			defer closer.Close()
			zl.Info().Interface("config", cfg.Masked()).Msg("configuration")

			watchPath := ""
			if haveFile && !changed["log-level"] {
				watchPath = cfgFile
			}
			return run(cmd.Context(), cfg, watchPath, zl)
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.dcf77rx/config.toml)")
	f.StringVar(&cfg.Source, "source", cfg.Source, "edge source: serial, capture or sim")

	f.StringVar(&cfg.Port, "port", cfg.Port, "serial port the receiver module is wired to")
	f.IntVar(&cfg.Baud, "baud", cfg.Baud, "serial baud rate")
	f.StringVar(&cfg.Line, "line", cfg.Line, "modem status line carrying the signal: dcd, cts, dsr or ri")
	f.BoolVar(&cfg.Invert, "invert", cfg.Invert, "invert the line level")
	f.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "line sampling interval")
	f.BoolVar(&cfg.PowerDTR, "power-dtr", cfg.PowerDTR, "raise DTR to power the receiver module")
	f.BoolVar(&cfg.PowerRTS, "power-rts", cfg.PowerRTS, "raise RTS to power the receiver module")

	f.StringVar(&cfg.Capture, "capture", cfg.Capture, "capture file to replay")
	f.BoolVar(&cfg.Follow, "follow", cfg.Follow, "keep reading the capture file as it grows")

	f.StringVar(&simStart, "sim-start", "", "RFC 3339 time of the first simulated minute marker (default: now)")
	f.IntVar(&cfg.SimMinutes, "sim-minutes", cfg.SimMinutes, "number of simulated minutes, 0 for endless")
	f.BoolVar(&cfg.SimRealtime, "sim-realtime", cfg.SimRealtime, "pace the simulation on the wall clock")
	f.Float64Var(&cfg.SimNoise, "sim-noise", cfg.SimNoise, "probability per second of a glitch sample")
	f.Float64Var(&cfg.SimDropout, "sim-dropout", cfg.SimDropout, "probability per second of a missing pulse")

	f.StringVar(&cfg.RecordDir, "record-dir", cfg.RecordDir, "directory for capture files of every sample")
	f.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for last_frame.json")
	f.BoolVar(&cfg.LogFrames, "log-frames", cfg.LogFrames, "log every decoded frame")

	f.StringVar(&cfg.MQTTBroker, "mqtt-broker", cfg.MQTTBroker, "MQTT broker, host:port or URL")
	f.StringVar(&cfg.MQTTTopic, "mqtt-topic", cfg.MQTTTopic, "MQTT topic for frames")
	f.StringVar(&cfg.MQTTClientID, "mqtt-client-id", cfg.MQTTClientID, "MQTT client id (default: random)")
	f.StringVar(&cfg.MQTTUsername, "mqtt-username", cfg.MQTTUsername, "MQTT user name")
	f.StringVar(&cfg.MQTTPassword, "mqtt-password", cfg.MQTTPassword, "MQTT password")
	f.IntVar(&cfg.MQTTQoS, "mqtt-qos", cfg.MQTTQoS, "MQTT quality of service")
	f.BoolVar(&cfg.MQTTRetain, "mqtt-retain", cfg.MQTTRetain, "retain the last frame on the broker")

	f.StringVar(&cfg.WebhookURL, "webhook-url", cfg.WebhookURL, "URL to POST every frame to")
	f.StringVar(&cfg.WebhookToken, "webhook-token", cfg.WebhookToken, "bearer token for the webhook")
	f.DurationVar(&cfg.HTTPTimeout, "http-timeout", cfg.HTTPTimeout, "webhook HTTP timeout")

	f.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address for /metrics, empty to disable")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	f.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "also write JSON logs to this rotating file")

	f.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "frames waiting for delivery before new ones are dropped")
	f.IntVar(&cfg.PublishRetries, "retries", cfg.PublishRetries, "extra delivery attempts per sink")
	f.DurationVar(&cfg.PublishTimeout, "publish-timeout", cfg.PublishTimeout, "timeout of one delivery attempt")

	root.AddCommand(newConvertCmd(), newFrameCmd())
	return root
}

func run(ctx context.Context, cfg cliconfig.Config, watchPath string, zl zerolog.Logger) error {
	logger := log.NewZerologAdapterWithLogger(zl)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []receiver.Option{
		receiver.WithLogger(logger),
		receiver.WithRegistry(reg),
		receiver.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		capturecleanup.WithDefaultCaptureCleanup(),
	}
	if watchPath != "" {
		opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.DefaultConfig(watchPath)))
	}

	r, err := receiver.New(receiverConfig(cfg), opts...)
	if err != nil {
		return fmt.Errorf("create receiver: %w", err)
	}

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, reg, logger)
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := r.Start(context.Background()); err != nil {
		return fmt.Errorf("start receiver: %w", err)
	}

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		zl.Info().Msg("received signal, stopping...")
		if err := r.Stop(); err != nil && !errors.Is(err, receiver.ErrNotRunning) {
			return fmt.Errorf("stop receiver: %w", err)
		}
	case <-done:
	}

	s := r.Stats()
	zl.Info().
		Uint64("frames", s.Decoder.Frames).
		Uint64("rejected", s.Decoder.Rejected()).
		Uint64("dropped", s.Dropped).
		Msg("receiver stopped")

	if r.Status() == receiver.StateCrashed {
		return errors.New("receiver crashed")
	}
	return nil
}

func receiverConfig(cfg cliconfig.Config) receiver.Config {
	return receiver.Config{
		Source: cfg.Source,
		Serial: receiver.SerialConfig{
			Port:         cfg.Port,
			BaudRate:     cfg.Baud,
			Line:         receiver.Line(cfg.Line),
			Invert:       cfg.Invert,
			PollInterval: cfg.PollInterval,
			PowerDTR:     cfg.PowerDTR,
			PowerRTS:     cfg.PowerRTS,
		},
		Capture: receiver.CaptureConfig{Path: cfg.Capture, Follow: cfg.Follow},
		Sim: receiver.SimConfig{
			Start:    cfg.SimStart,
			Minutes:  cfg.SimMinutes,
			Realtime: cfg.SimRealtime,
			Noise:    cfg.SimNoise,
			Dropout:  cfg.SimDropout,
			Seed:     uint64(cfg.SimStart.Unix()),
		},
		RecordDir: cfg.RecordDir,
		StateDir:  cfg.StateDir,
		LogFrames: cfg.LogFrames,
		MQTT: receiver.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			Topic:    cfg.MQTTTopic,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			QoS:      byte(cfg.MQTTQoS),
			Retain:   cfg.MQTTRetain,
			Timeout:  cfg.PublishTimeout,
		},
		Webhook: receiver.WebhookConfig{
			URL:       cfg.WebhookURL,
			AuthToken: cfg.WebhookToken,
		},
		QueueSize:      cfg.QueueSize,
		PublishTimeout: cfg.PublishTimeout,
		PublishRetries: cfg.PublishRetries,
	}
}
