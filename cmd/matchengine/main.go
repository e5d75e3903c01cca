// Command matchengine runs the matching engine process: the symbol
// router, one or two shard processors, and the output router, wired
// together per §5's thread topology. The concrete TCP/UDP transport and
// wire codec sit behind the abstracted Encoder/registry boundary (§6) and
// are supplied by whatever listener integrates this pipeline.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tembolo1284/matchengine/domain"
	"github.com/tembolo1284/matchengine/internal/logging"
	"github.com/tembolo1284/matchengine/matching"
	"github.com/tembolo1284/matchengine/pipeline"
	"github.com/tembolo1284/matchengine/ring"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type runConfig struct {
	tcpPort     int
	udpPort     int
	useUDP      bool
	binary      bool
	numShards   int
	dev         bool
	rejectOnCap bool
}

func newRootCmd() *cobra.Command {
	cfg := runConfig{tcpPort: 1234, numShards: 2}

	cmd := &cobra.Command{
		Use:   "matchengine",
		Short: "Multi-symbol limit order matching engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("single-processor") {
				cfg.numShards = 1
			}
			if cmd.Flags().Changed("udp") {
				cfg.useUDP = true
			}
			return run(cfg)
		},
	}

	cmd.Flags().IntVar(&cfg.tcpPort, "tcp", 1234, "listen on this TCP port (mutually exclusive with --udp)")
	cmd.Flags().IntVar(&cfg.udpPort, "udp", 1234, "listen on this UDP port instead of TCP")
	cmd.Flags().BoolVar(&cfg.binary, "binary", false, "use the binary wire codec instead of CSV")
	cmd.Flags().Bool("single-processor", false, "run one shard instead of the default two")
	cmd.Flags().Bool("dual-processor", true, "run the default two shards (implied unless --single-processor is set)")
	cmd.Flags().BoolVar(&cfg.dev, "dev", false, "use a human-readable development logger instead of JSON")
	cmd.Flags().BoolVar(&cfg.rejectOnCap, "reject-on-capacity", false, "emit an explicit Reject instead of silently dropping on capacity exhaustion")
	cmd.MarkFlagsMutuallyExclusive("tcp", "udp")
	cmd.MarkFlagsMutuallyExclusive("single-processor", "dual-processor")

	return cmd
}

// run wires the pipeline, starts the processors and the output router,
// and then blocks indefinitely; it neither triggers nor waits on the
// shutdown flag. Exit
// code is non-zero only if wiring itself fails (§6: "non-zero on startup
// failure"); this command has no bind/allocation step of its own since
// the transport is supplied externally, so it only returns an error if
// asked to run zero shards.
func run(cfg runConfig) error {
	if cfg.numShards < 1 {
		return fmt.Errorf("matchengine: numShards must be >= 1, got %d", cfg.numShards)
	}

	logger := logging.Must(cfg.dev)
	defer logger.Sync()

	metrics := pipeline.NewMetrics()
	metrics.Register(prometheus.DefaultRegisterer)

	registry := pipeline.NewRegistry()
	shutdown := pipeline.NewShutdown()
	clock := func() int64 { return time.Now().UnixNano() }

	processors := make([]*pipeline.Processor, cfg.numShards)
	for i := 0; i < cfg.numShards; i++ {
		engine := matching.New(clock)
		engine.EmitRejectOnCapacityExhaustion = cfg.rejectOnCap
		processors[i] = pipeline.NewProcessor(i, engine, 1<<16, 1<<16, shutdown, metrics, logger)
	}

	shardFn := pipeline.ShardFunc(pipeline.TwoShardBucket)
	if cfg.numShards != 2 {
		n := cfg.numShards
		shardFn = func(symbol string) int { return pipeline.HashShard(symbol, n) }
	}

	inputs := make([]*ring.SPSC[domain.InputEnvelope], cfg.numShards)
	outputs := make([]*ring.SPSC[domain.OutputEnvelope], cfg.numShards)
	for i, p := range processors {
		inputs[i] = p.Input
		outputs[i] = p.Output
	}
	router := pipeline.NewRouter(shardFn, inputs, metrics)
	outputRouter := pipeline.NewOutputRouter(outputs, registry, nil, pipeline.NopMulticastSender{}, shutdown, metrics, logger)

	for _, p := range processors {
		go p.Run()
	}
	go outputRouter.Run()
	_ = router // handed to the receiver, which is wired in by the transport integration

	logger.Info("matchengine started",
		zap.Int("shards", cfg.numShards),
		zap.Bool("udp", cfg.useUDP),
		zap.Int("tcp_port", cfg.tcpPort),
		zap.Int("udp_port", cfg.udpPort),
		zap.Bool("binary_codec", cfg.binary),
	)

	select {}
}
