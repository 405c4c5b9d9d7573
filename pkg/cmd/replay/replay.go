package replay

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pitwall-live/telemetry-bridge-go/log"
	bridgeCmd "github.com/pitwall-live/telemetry-bridge-go/pkg/cmd/bridge"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/config"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/loop"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/processing"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/state"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/telemetry"
)

// NewReplayCmd feeds a recorded JSONL frame file through the identical
// pipeline, publishing to the same sinks. Useful to replay a session against
// a development backend or to regression-test tuning changes.
func NewReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <recording>",
		Short: "replays a recorded frame file through the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config.ReplayFile = args[0]
			return startReplay()
		},
	}
	cmd.Flags().Float64Var(&config.ReplaySpeed,
		"speed",
		1.0,
		"replay speed factor (2 = twice the recorded pace)")
	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"text",
		"controls the log output format")
	cmd.Flags().StringVar(&config.LogFilter,
		"log-filter",
		"",
		"zapfilter rules applied to the logger")
	return cmd
}

func startReplay() error {
	logger := bridgeCmd.SetupLogger()
	defer logger.Sync() //nolint:errcheck // best effort on shutdown

	source, err := telemetry.NewReplaySource(config.ReplayFile)
	if err != nil {
		return err
	}
	defer source.Close()

	interval := bridgeCmd.ParseDuration(config.Interval, 500*time.Millisecond)
	if config.ReplaySpeed > 0 {
		interval = time.Duration(float64(interval) / config.ReplaySpeed)
	}
	log.Info("starting replay",
		log.String("recording", config.ReplayFile),
		log.Duration("interval", interval))

	tuning := config.NewTuningProvider(config.TuningFile, logger.Named("tuning"))
	processor := processing.NewProcessor(
		processing.WithStore(state.NewStore(config.StateFile,
			state.WithStoreLogger(logger.Named("state")))),
		processing.WithTuning(tuning),
		processing.WithTickPeriod(interval),
		processing.WithLogger(logger.Named("processing")))

	fanout, err := bridgeCmd.BuildFanout(logger)
	if err != nil {
		return err
	}
	defer fanout.Close()

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return loop.New(source, processor, fanout,
		loop.WithInterval(interval),
		loop.WithPublishTimeout(bridgeCmd.ParseDuration(
			config.PublishTimeout, time.Second)),
		loop.WithLogger(logger.Named("loop"))).
		Run(ctx)
}
