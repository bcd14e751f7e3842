// Package main implements the keystream command line client: a small
// publish/subscribe/query tool speaking the keystream protocol over NATS.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/c360/keystream/config"
	"github.com/c360/keystream/engine/natsengine"
	"github.com/c360/keystream/message"
	"github.com/c360/keystream/metric"
	"github.com/c360/keystream/session"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "keystream"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()

	if cliCfg.ShowVersion {
		fmt.Printf("%s %s\n", appName, Version)
		return nil
	}
	if cliCfg.Command == "" {
		usage()
		return fmt.Errorf("no command given")
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadSessionConfig(cliCfg)
	if err != nil {
		return err
	}

	registry := metric.NewMetricsRegistry()
	if cliCfg.MetricsPort > 0 {
		server := metric.NewServer(cliCfg.MetricsPort, "/metrics", registry)
		go func() {
			if err := server.Start(); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		defer func() { _ = server.Stop() }()
		logger.Info("serving metrics", "address", server.Address())
	}

	eng, err := natsengine.New(
		natsengine.WithLogger(logger),
		natsengine.WithMetrics(registry),
		natsengine.WithPrefix(cliCfg.Prefix),
		natsengine.WithQueryTimeout(cliCfg.QueryTimeout),
	)
	if err != nil {
		return err
	}

	sess, err := session.Open(eng, cfg,
		session.WithLogger(logger),
		session.WithMetrics(registry),
	)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	switch cliCfg.Command {
	case "pub":
		return runPub(sess, cliCfg.Args)
	case "delete":
		return runDelete(sess, cliCfg.Args)
	case "sub":
		return runSub(sess, logger, cliCfg.Args)
	case "get":
		return runGet(sess, cliCfg.Args)
	case "info":
		return runInfo(sess)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cliCfg.Command)
	}
}

func loadSessionConfig(cliCfg *CLIConfig) (*config.Config, error) {
	cfg := config.Default()
	if cliCfg.ConfigPath != "" {
		loaded, err := config.FromFile(cliCfg.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cliCfg.URL != "" {
		cfg.Connect = []string{cliCfg.URL}
	}
	return cfg, nil
}

func runPub(sess *session.Session, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("pub needs a key and a value")
	}
	return sess.Put(args[0], args[1])
}

func runDelete(sess *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("delete needs a key")
	}
	return sess.Delete(args[0])
}

func runSub(sess *session.Session, logger *slog.Logger, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("sub needs a key expression")
	}

	sub, err := sess.Subscribe(args[0], func(sample message.Sample) {
		fmt.Printf("[%s] %s = %q\n",
			sample.Kind, sample.KeyExpr.String(), string(sample.Value.Payload))
	})
	if err != nil {
		return err
	}
	defer func() { _ = sub.Close() }()

	logger.Info("subscribed", "keyexpr", args[0])
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	return nil
}

func runGet(sess *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("get needs a selector")
	}

	replies, err := sess.Get(args[0])
	if err != nil {
		return err
	}
	for _, reply := range replies {
		if reply.OK() {
			fmt.Printf("%s = %q (from %s)\n",
				reply.Sample.KeyExpr.String(), string(reply.Sample.Value.Payload), reply.ReplierID)
			continue
		}
		fmt.Printf("error from %s: %q\n", reply.ReplierID, string(reply.Err.Payload))
	}
	return nil
}

func runInfo(sess *session.Session) error {
	info, err := sess.Info()
	if err != nil {
		return err
	}
	for k, v := range info {
		fmt.Printf("%s: %s\n", k, v)
	}
	return nil
}
