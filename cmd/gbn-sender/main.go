// Command gbn-sender transmits one file to a gbn-receiver using Go-Back-N
// over UDP, simulating datagram loss on every send.
//
// Usage:
//
//	gbn-sender [flags] <host> <port> <window> <file>
//
// The positional form overrides the -host, -port, -window and -file flags.
// Every flag may also be set from an ini file with -config.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
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

const program = "gbn-sender"

// CLI configuration
type CLIConfig struct {
	host       string
	port       uint
	window     int
	file       string
	timeout    time.Duration
	loss       float64
	maxRetries int
	seed       int64
	logLevel   string
	logFile    string
}

// registerFlags defines the sender flags on fs.
func registerFlags(fs *flag.FlagSet) *CLIConfig {
	config := &CLIConfig{}

	// Peer and input
	fs.StringVar(&config.host, "host", "", "Receiver host name or address")
	fs.UintVar(&config.port, "port", 0, "Receiver UDP port")
	fs.IntVar(&config.window, "window", arq.DefaultWindow, "Window size (1-7)")
	fs.StringVar(&config.file, "file", "", "File to send")

	// Retransmission and loss simulation
	fs.DurationVar(&config.timeout, "timeout", arq.DefaultTimeout, "Retransmission timeout")
	fs.Float64Var(&config.loss, "loss", 0.1, "Probability of dropping each outgoing segment")
	fs.IntVar(&config.maxRetries, "max-retries", 0, "Consecutive timeouts before giving up (0 = never)")
	fs.Int64Var(&config.seed, "seed", 0, "Loss simulation seed (0 = time based)")

	// Logging
	fs.StringVar(&config.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&config.logFile, "log-file", "", "Log file path (default: stderr)")

	return config
}

// applyPositional copies <host> <port> <window> <file> over the flag values.
func applyPositional(config *CLIConfig, args []string) error {
	switch len(args) {
	case 0:
		return nil
	case 4:
	default:
		return cli.Usage("expected <host> <port> <window> <file>, got %d arguments", len(args))
	}

	port, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return cli.Usage("invalid port %q", args[1])
	}
	window, err := strconv.Atoi(args[2])
	if err != nil {
		return cli.Usage("invalid window %q", args[2])
	}

	config.host = args[0]
	config.port = uint(port)
	config.window = window
	config.file = args[3]
	return nil
}

// validateCLIConfig validates the CLI configuration.
func validateCLIConfig(config *CLIConfig) error {
	if config.host == "" {
		return cli.Usage("receiver host cannot be empty")
	}

	if config.port == 0 || config.port > 65535 {
		return cli.Usage("invalid port %d: must be between 1 and 65535", config.port)
	}

	if err := limits.ValidateWindow(config.window); err != nil {
		return err
	}

	if config.file == "" {
		return cli.Usage("input file cannot be empty")
	}

	if config.timeout <= 0 {
		return cli.Usage("timeout must be positive")
	}

	if config.loss < 0 || config.loss > 1 {
		return cli.Usage("loss probability %v must be between 0 and 1", config.loss)
	}

	if config.maxRetries < 0 {
		return cli.Usage("max retries cannot be negative")
	}

	return nil
}

// createSenderConfig converts CLI configuration to the engine configuration.
func createSenderConfig(config *CLIConfig) arq.SenderConfig {
	return arq.SenderConfig{
		Window:     uint8(config.window),
		Timeout:    config.timeout,
		MaxRetries: config.maxRetries,
	}
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewSource(seed))
}

// run loads the input, then streams it to the receiver until it is fully
// acknowledged.
func run(ctx context.Context, config *CLIConfig) error {
	data, err := file.ReadSource(config.file)
	if err != nil {
		return cli.AsUsage(err)
	}

	peer, err := transport.ResolvePeer(config.host, uint16(config.port))
	if err != nil {
		return err
	}

	udp, err := transport.NewUDPPort(":0")
	if err != nil {
		return err
	}
	defer udp.Close()

	lossy, err := transport.NewLossyPort(udp, config.loss, newRand(config.seed))
	if err != nil {
		return cli.AsUsage(err)
	}

	segments := arq.BuildSegments(data, uint8(config.window))
	sender, err := arq.NewSender(lossy, peer, segments, createSenderConfig(config))
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function":   "run",
		"file":       config.file,
		"size":       len(data),
		"segments":   len(segments),
		"digest":     file.Digest(data),
		"peer":       peer.String(),
		"local_addr": udp.LocalAddr().String(),
	}).Info("Sending file")

	ctx, stop := cli.WatchSignals(ctx, udp)
	defer stop()

	start := time.Now()
	if err := sender.Run(ctx); err != nil {
		return err
	}

	stats := sender.Stats()
	logrus.WithFields(logrus.Fields{
		"function":        "run",
		"elapsed":         time.Since(start),
		"transmissions":   stats.Transmissions,
		"retransmissions": stats.Retransmissions,
		"timeouts":        stats.Timeouts,
		"dropped":         lossy.Dropped(),
	}).Info("Transfer complete")
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
		fmt.Println("File sent")
	}
	os.Exit(cli.Report(os.Stderr, program, err))
}
