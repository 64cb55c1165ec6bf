// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Command mbframe builds, inspects and exchanges Modbus RTU frames.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/ffutop/modbus-adu/internal/config"
	"github.com/spf13/pflag"
)

type env struct {
	cfg   *config.Config
	flags *pflag.FlagSet
	out   io.Writer
}

type command struct {
	usage string
	flags func(fs *pflag.FlagSet)
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"encode": {"encode <message> [flags]    print the frame for a message", messageFlags, runEncode},
	"decode": {"decode <hex...> [flags]     decode a frame and check its CRC", decodeFlags, runDecode},
	"replay": {"replay <capture-file>       decode every frame of a capture file", nil, runReplay},
	"send":   {"send <message> [flags]      exchange a request over the serial line", messageFlags, runSend},
	"field":  {"field <value> [flags]       show the bytes of a typed value", fieldFlags, runField},
}

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "mbframe: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		usage(out)
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage(out)
		return fmt.Errorf("unknown command %q", args[0])
	}

	fs := pflag.NewFlagSet("mbframe "+args[0], pflag.ContinueOnError)
	fs.SetOutput(out)
	configFile := fs.StringP("config", "c", "", "Configuration file path.")
	commonFlags(fs)
	if cmd.flags != nil {
		cmd.flags(fs)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	// Load Configuration
	cfg, err := config.LoadConfig(*configFile, fs)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogger(cfg.Log)

	return cmd.run(ctx, &env{cfg: cfg, flags: fs, out: out}, fs.Args())
}

func commonFlags(fs *pflag.FlagSet) {
	fs.StringP("log-level", "v", "info", "Log verbosity level (debug, info, warn, error).")
	fs.StringP("log-file", "L", "", "Log file name ('-' for logging to STDERR only).")
	fs.StringP("device", "p", "/dev/ttyUSB0", "Serial port device name.")
	fs.Int("baud-rate", 19200, "Serial port speed.")
	fs.Int("data-bits", 8, "Serial data bits.")
	fs.String("parity", "E", "Serial parity (N, E, O).")
	fs.Int("stop-bits", 1, "Serial stop bits.")
	fs.DurationP("timeout", "W", 0, "Response wait time.")
	fs.Uint8P("station", "s", 1, "Station number.")
	fs.String("byte-order", "big", "Byte order of typed fields (big, little).")
	fs.String("capture-file", "", "Append exchanged frames to this file.")
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mbframe <command> [arguments]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Messages: %s\n", messageNames())
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	// Frames and decoded fields go to stdout; logs stay out of the way.
	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file, falling back to stderr: %v\n", err)
			handler = slog.NewTextHandler(os.Stderr, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
