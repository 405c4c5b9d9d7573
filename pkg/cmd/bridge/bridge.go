package bridge

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pitwall-live/telemetry-bridge-go/log"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/config"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/loop"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/processing"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/publish"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/state"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/telemetry"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/utils"
)

func NewBridgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "polls the simulator and publishes live strategy snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startBridge()
		},
	}
	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"json",
		"controls the log output format")
	cmd.Flags().StringVar(&config.LogFilter,
		"log-filter",
		"",
		"zapfilter rules applied to the logger")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger builds the logger from the resolved CLI values and installs it
// as the package default. Shared with the replay command.
func SetupLogger() *log.Logger {
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
	if config.LogFilter != "" {
		logger = logger.WithFilters(config.LogFilter)
	}
	log.ResetDefault(logger)
	return logger
}

// ParseDuration is a lenient duration parser for CLI values.
func ParseDuration(arg string, defaultVal time.Duration) time.Duration {
	ret, err := time.ParseDuration(arg)
	if err != nil {
		return defaultVal
	}
	return ret
}

func startBridge() error {
	logger := SetupLogger()
	defer logger.Sync() //nolint:errcheck // best effort on shutdown

	log.Info("starting bridge",
		log.String("source", config.SourceURL),
		log.String("ingest", config.IngestURL),
		log.String("stateFile", config.StateFile))

	if wait := ParseDuration(config.WaitForIngest, 0); wait > 0 {
		if err := utils.WaitForHTTPResponse(config.IngestURL, wait); err != nil {
			log.Warn("ingest endpoint not reachable yet", log.ErrorField(err))
		}
	}

	tuning := config.NewTuningProvider(config.TuningFile, logger.Named("tuning"))
	if err := tuning.Watch(); err != nil {
		log.Warn("could not watch tuning profile", log.ErrorField(err))
	}
	defer tuning.Close()

	interval := ParseDuration(config.Interval, 500*time.Millisecond)
	processor := processing.NewProcessor(
		processing.WithStore(state.NewStore(config.StateFile,
			state.WithStoreLogger(logger.Named("state")))),
		processing.WithTuning(tuning),
		processing.WithTickPeriod(interval),
		processing.WithLogger(logger.Named("processing")))

	fanout, err := BuildFanout(logger)
	if err != nil {
		return err
	}
	defer fanout.Close()

	source := telemetry.NewHTTPSource(config.SourceURL,
		telemetry.WithSourceLogger(logger.Named("source")))

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return loop.New(source, processor, fanout,
		loop.WithInterval(interval),
		loop.WithPublishTimeout(ParseDuration(config.PublishTimeout, time.Second)),
		loop.WithLogger(logger.Named("loop"))).
		Run(ctx)
}

// BuildFanout assembles the configured snapshot publishers. Shared with the
// replay command.
func BuildFanout(logger *log.Logger) (*publish.Fanout, error) {
	sinks := []publish.Publisher{
		publish.NewHTTPPublisher(config.IngestURL,
			publish.WithTimeout(ParseDuration(config.PublishTimeout, time.Second))),
	}
	if config.NatsURL != "" {
		natsPub, err := publish.NewNatsPublisher(
			config.NatsURL, config.NatsSubject,
			publish.WithNatsLogger(logger.Named("nats")))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, natsPub)
	}
	return publish.NewFanout(sinks,
		publish.WithFanoutLogger(logger.Named("publish"))), nil
}
