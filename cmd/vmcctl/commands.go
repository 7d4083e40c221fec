package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	vmcctl "github.com/wagiedev/vmcctl"
)

type command struct {
	minArgs int
	// long commands run until interrupted and get liveness logging and the
	// metrics endpoint.
	long bool
	run  func(ctx context.Context, client vmcctl.Client, args []string, out io.Writer) error
}

var commands = map[string]command{
	"watch":          {long: true, run: runWatch},
	"resolutions":    {run: runResolutions},
	"set-resolution": {minArgs: 1, run: runSetResolution},
	"hands":          {minArgs: 2, run: runHands},
	"trackers":       {run: runTrackers},
	"webcam":         {run: runWebcam},
	"camera-export":  {minArgs: 1, run: runCameraExport},
	"camera-import":  {minArgs: 2, run: runCameraImport},
	"mcp":            {long: true, run: runMCP},
}

func runWatch(ctx context.Context, client vmcctl.Client, _ []string, out io.Writer) error {
	enc := json.NewEncoder(out)

	sub, err := client.Subscribe(vmcctl.AllKinds, func(e vmcctl.Event) {
		_ = enc.Encode(map[string]any{"kind": e.EventType(), "payload": e})
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	<-ctx.Done()

	if client.Status() == vmcctl.StatusConnectionLost {
		return client.Err()
	}

	return nil
}

func runResolutions(ctx context.Context, client vmcctl.Client, _ []string, out io.Writer) error {
	resolutions, err := client.GetResolutions(ctx)
	if err != nil {
		return err
	}

	for _, r := range resolutions {
		fmt.Fprintln(out, r.String())
	}

	return nil
}

func runSetResolution(ctx context.Context, client vmcctl.Client, args []string, _ io.Writer) error {
	res, err := parseResolution(args[0])
	if err != nil {
		return err
	}

	return client.SetResolution(ctx, res)
}

// parseResolution reads WIDTHxHEIGHT@RATE, e.g. 1920x1080@60. A trailing
// "Hz" is accepted so the output of the resolutions command can be pasted.
func parseResolution(s string) (vmcctl.Resolution, error) {
	size, rate, ok := strings.Cut(strings.TrimSuffix(s, "Hz"), "@")
	if !ok {
		return vmcctl.Resolution{}, fmt.Errorf("resolution %q: expected WIDTHxHEIGHT@RATE", s)
	}

	w, h, ok := strings.Cut(size, "x")
	if !ok {
		return vmcctl.Resolution{}, fmt.Errorf("resolution %q: expected WIDTHxHEIGHT@RATE", s)
	}

	var res vmcctl.Resolution

	for _, f := range []struct {
		raw string
		dst *int
	}{{w, &res.Width}, {h, &res.Height}, {rate, &res.RefreshRate}} {
		v, err := strconv.Atoi(strings.TrimSpace(f.raw))
		if err != nil || v <= 0 {
			return vmcctl.Resolution{}, fmt.Errorf("resolution %q: invalid number %q", s, f.raw)
		}

		*f.dst = v
	}

	return res, nil
}

func runHands(ctx context.Context, client vmcctl.Client, args []string, _ io.Writer) error {
	var deg [2]float32

	for i, raw := range args[:2] {
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return fmt.Errorf("rotation %q: %w", raw, err)
		}

		deg[i] = float32(v)
	}

	return client.SetHandRotations(ctx, deg[0], deg[1])
}

func runTrackers(ctx context.Context, client vmcctl.Client, _ []string, out io.Writer) error {
	list, err := client.GetTrackerSerialNumbers(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tSERIAL\tROLE")

	roles := make(map[string]string)
	if list.CurrentSetting != nil {
		for role, info := range list.CurrentSetting.Roles {
			roles[info.SerialNumber] = role
		}
	}

	for _, info := range list.List {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", info.TypeName, info.SerialNumber, roles[info.SerialNumber])
	}

	return tw.Flush()
}

func runWebcam(ctx context.Context, client vmcctl.Client, _ []string, out io.Writer) error {
	cfg, err := client.GetVirtualWebCamConfig(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	return enc.Encode(cfg)
}

func runCameraExport(ctx context.Context, client vmcctl.Client, args []string, out io.Writer) error {
	if len(args) < 2 {
		return client.ExportExternalCameraConfig(ctx, args[0], out)
	}

	f, err := os.Create(args[1])
	if err != nil {
		return err
	}

	if err := client.ExportExternalCameraConfig(ctx, args[0], f); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}

func runCameraImport(ctx context.Context, client vmcctl.Client, args []string, _ io.Writer) error {
	f, err := os.Open(args[1])
	if err != nil {
		return err
	}
	defer f.Close()

	return client.ImportExternalCameraConfig(ctx, args[0], f)
}

func runMCP(ctx context.Context, client vmcctl.Client, _ []string, _ io.Writer) error {
	return vmcctl.ServeMCPStdio(ctx, client, version)
}
