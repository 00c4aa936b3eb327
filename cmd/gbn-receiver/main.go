// Command gbn-receiver accepts one Go-Back-N file transfer on a UDP port and
// writes the in-order payload to an output file.
//
// Usage:
//
//	gbn-receiver [flags] <port> <window> <output>
//
// The positional form overrides the -port, -window and -output flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/peiranqiu/File-Transfer/arq"
	"github.com/peiranqiu/File-Transfer/file"
	"github.com/peiranqiu/File-Transfer/internal/cli"
	"github.com/peiranqiu/File-Transfer/limits"
	"github.com/peiranqiu/File-Transfer/transport"
	"github.com/sirupsen/logrus"
	"github.com/vharitonsky/iniflags"
)

const program = "gbn-receiver"

// CLI configuration
type CLIConfig struct {
	port     uint
	window   int
	output   string
	delay    time.Duration
	logLevel string
	logFile  string
}

func registerFlags(fs *flag.FlagSet) *CLIConfig {
	config := &CLIConfig{}

	fs.UintVar(&config.port, "port", 0, "UDP port to listen on")
	fs.IntVar(&config.window, "window", arq.DefaultWindow, "Window size (1-7), echoed in acknowledgements")
	fs.StringVar(&config.output, "output", "", "Output file path")
	fs.DurationVar(&config.delay, "delay", 100*time.Millisecond, "Average simulated delay per received segment (0 disables)")

	fs.StringVar(&config.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&config.logFile, "log-file", "", "Log file path (default: stderr)")

	return config
}

// applyPositional copies <port> <window> <output> over the flag values.
func applyPositional(config *CLIConfig, args []string) error {
	switch len(args) {
	case 0:
		return nil
	case 3:
	default:
		return cli.Usage("expected <port> <window> <output>, got %d arguments", len(args))
	}

	port, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		return cli.Usage("invalid port %q", args[0])
	}
	window, err := strconv.Atoi(args[1])
	if err != nil {
		return cli.Usage("invalid window %q", args[1])
	}

	config.port = uint(port)
	config.window = window
	config.output = args[2]
	return nil
}

// validateCLIConfig validates the CLI configuration.
func validateCLIConfig(config *CLIConfig) error {
	if config.port == 0 || config.port > 65535 {
		return cli.Usage("invalid port %d: must be between 1 and 65535", config.port)
	}

	if err := limits.ValidateWindow(config.window); err != nil {
		return err
	}

	if config.output == "" {
		return cli.Usage("output file cannot be empty")
	}
	if _, err := file.ValidatePath(config.output); err != nil {
		return cli.AsUsage(err)
	}

	if config.delay < 0 {
		return cli.Usage("delay cannot be negative")
	}

	return nil
}

// run binds the port and receives a single transfer into the output file.
func run(ctx context.Context, config *CLIConfig) error {
	udp, err := transport.NewUDPPort(fmt.Sprintf(":%d", config.port))
	if err != nil {
		return err
	}
	defer udp.Close()

	var port transport.Port = udp
	if config.delay > 0 {
		port = transport.NewDelayPort(udp, config.delay, nil)
	}

	return receive(ctx, port, config)
}

// receive writes one transfer arriving on port into config.output.
func receive(ctx context.Context, port transport.Port, config *CLIConfig) error {
	sink, err := file.CreateSink(config.output)
	if err != nil {
		return cli.AsUsage(err)
	}
	defer sink.Close()

	receiver, err := arq.NewReceiver(port, sink, arq.ReceiverConfig{Window: uint8(config.window)})
	if err != nil {
		return err
	}

	ctx, stop := cli.WatchSignals(ctx, port)
	defer stop()

	start := time.Now()
	if err := receiver.Run(ctx); err != nil {
		return err
	}

	stats := receiver.Stats()
	logrus.WithFields(logrus.Fields{
		"function":  "receive",
		"output":    config.output,
		"written":   sink.Written(),
		"digest":    sink.Digest(),
		"accepted":  stats.Accepted,
		"discarded": stats.Discarded,
		"ignored":   stats.Ignored,
		"elapsed":   time.Since(start),
	}).Info("File received")
	return nil
}

func main() {
	config := registerFlags(flag.CommandLine)
	iniflags.Parse()

	err := applyPositional(config, flag.Args())
	if err == nil {
		err = validateCLIConfig(config)
	}
	if err != nil {
		os.Exit(cli.Report(os.Stderr, program, err))
	}

	closer, err := cli.ConfigureLogging(config.logLevel, config.logFile)
	if err != nil {
		os.Exit(cli.Report(os.Stderr, program, err))
	}

	err = run(context.Background(), config)
	closer.Close()
	if err == nil {
		fmt.Println("File received")
	}
	os.Exit(cli.Report(os.Stderr, program, err))
}
