// Command vmcctl drives a motion-capture host through its control socket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	vmcctl "github.com/wagiedev/vmcctl"
)

const version = "0.1.0"

const usage = `usage: vmcctl [flags] <command> [args]

commands:
  watch                          print host events until interrupted
  resolutions                    list supported output resolutions
  set-resolution WxH@RATE        switch the output resolution
  hands LEFT RIGHT               set hand rotation offsets in degrees
  trackers                       list trackers and their liveness
  webcam                         show the virtual webcam settings
  camera-export CONTROLLER [FILE] write externalcamera.cfg for a controller
  camera-import CONTROLLER FILE  apply externalcamera.cfg to a controller
  mcp                            serve the control tools over MCP stdio

flags:
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "vmcctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("vmcctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "TOML configuration file")

	var envFiles stringList
	fs.Var(&envFiles, "env", ".env file to load (repeatable, default .env)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() == 0 {
		fs.Usage()

		return errors.New("missing command")
	}

	name, cmdArgs := fs.Arg(0), fs.Args()[1:]

	cmd, ok := commands[name]
	if !ok {
		fs.Usage()

		return fmt.Errorf("unknown command %q", name)
	}

	if len(cmdArgs) < cmd.minArgs {
		return fmt.Errorf("%s: expected at least %d argument(s)", name, cmd.minArgs)
	}

	cfg, err := loadConfig(*configPath, envFiles)
	if err != nil {
		return err
	}

	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	// stdout carries MCP traffic and command output; logs go to stderr.
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, onStatus, release := connectionContext(sigCtx)
	defer release()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []vmcctl.Option{
		vmcctl.WithOptions(cfg.Options()),
		vmcctl.WithLogger(log),
		vmcctl.WithMetrics(reg),
		vmcctl.WithStatusHandler(func(status vmcctl.Status, err error) {
			onStatus(status, err)

			if err != nil {
				log.Warn("connection status changed", "status", status, "error", err)

				return
			}

			log.Info("connection status changed", "status", status)
		}),
	}

	if cmd.long {
		opts = append(opts, vmcctl.WithTrackerCallbacks(
			func(serial string) { log.Info("tracker active", "serial", serial) },
			func(serial string) { log.Info("tracker inactive", "serial", serial) },
		))
	}

	return vmcctl.WithClient(ctx, func(client vmcctl.Client) error {
		if !cmd.long || cfg.MetricsAddress == "" {
			return cmd.run(ctx, client, cmdArgs, stdout)
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			return serveMetrics(gctx, log, cfg.MetricsAddress, newRouter(client, reg))
		})

		g.Go(func() error {
			defer stop()

			return cmd.run(gctx, client, cmdArgs, stdout)
		})

		return g.Wait()
	}, opts...)
}

// connectionContext derives a context that is cancelled, with the
// connection error as its cause, once onStatus sees the host connection
// lost. release cancels it unconditionally.
func connectionContext(parent context.Context) (ctx context.Context, onStatus func(vmcctl.Status, error), release context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)

	onStatus = func(status vmcctl.Status, err error) {
		if status != vmcctl.StatusConnectionLost {
			return
		}

		if err == nil {
			err = vmcctl.ErrConnectionLost
		}

		cancel(err)
	}

	return ctx, onStatus, func() { cancel(nil) }
}
