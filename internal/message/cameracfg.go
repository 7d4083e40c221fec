package message

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseExternalCameraConfig reads an externalcamera.cfg stream.
//
// Lines are "key=value"; lines without '=' are ignored. Missing or
// unparseable numeric keys read as 0. The result is bound to controllerName.
func ParseExternalCameraConfig(r io.Reader, controllerName string) (*SetExternalCameraConfig, error) {
	values := make(map[string]string, 16)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		values[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read external camera config: %w", err)
	}

	getFloat := func(key string) float32 {
		v, err := strconv.ParseFloat(strings.TrimSpace(values[key]), 32)
		if err != nil {
			return 0
		}

		return float32(v)
	}

	return &SetExternalCameraConfig{
		X:              getFloat("x"),
		Y:              getFloat("y"),
		Z:              getFloat("z"),
		RX:             getFloat("rx"),
		RY:             getFloat("ry"),
		RZ:             getFloat("rz"),
		FOV:            getFloat("fov"),
		ControllerName: controllerName,
	}, nil
}

// FormatExternalCameraConfig writes cfg in externalcamera.cfg form, followed
// by the fixed clip, asset and frame-skip settings the host expects.
func FormatExternalCameraConfig(w io.Writer, cfg *SetExternalCameraConfig) error {
	lines := []string{
		"x=" + formatFloat(cfg.X),
		"y=" + formatFloat(cfg.Y),
		"z=" + formatFloat(cfg.Z),
		"rx=" + formatFloat(cfg.RX),
		"ry=" + formatFloat(cfg.RY),
		"rz=" + formatFloat(cfg.RZ),
		"fov=" + formatFloat(cfg.FOV),
		"near=0.01",
		"far=1000",
		"disableStandardAssets=False",
		"frameSkip=0",
	}

	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("write external camera config: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write external camera config: %w", err)
	}

	return nil
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}
