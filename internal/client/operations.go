package client

import (
	"context"
	"fmt"
	"io"

	"github.com/wagiedev/vmcctl/internal/errors"
	"github.com/wagiedev/vmcctl/internal/message"
)

// SetHandRotations sets the hand rotation offsets, in degrees.
func (c *Client) SetHandRotations(ctx context.Context, left, right float32) error {
	return c.Send(ctx, &message.SetHandRotations{LeftHandRotation: left, RightHandRotation: right})
}

// SetVirtualWebCamConfig applies the virtual webcam settings.
func (c *Client) SetVirtualWebCamConfig(ctx context.Context, cfg message.SetVirtualWebCamConfig) error {
	return c.Send(ctx, &cfg)
}

// SetResolution switches the host output resolution.
func (c *Client) SetResolution(ctx context.Context, res message.Resolution) error {
	return c.Send(ctx, &message.SetResolution{
		Width:       res.Width,
		Height:      res.Height,
		RefreshRate: res.RefreshRate,
	})
}

// SetExternalCameraConfig places the external camera relative to a controller.
func (c *Client) SetExternalCameraConfig(ctx context.Context, cfg message.SetExternalCameraConfig) error {
	return c.Send(ctx, &cfg)
}

// GetResolutions returns the output resolutions the host supports.
func (c *Client) GetResolutions(ctx context.Context) ([]message.Resolution, error) {
	reply, err := await[*message.ReturnResolutions](ctx, c, &message.GetResolutions{}, message.KindReturnResolutions)
	if err != nil {
		return nil, err
	}

	return reply.List, nil
}

// GetTrackerSerialNumbers returns the connected trackers, sorted by type
// then serial number, together with the current role assignment.
func (c *Client) GetTrackerSerialNumbers(ctx context.Context) (*message.ReturnTrackerSerialNumbers, error) {
	reply, err := await[*message.ReturnTrackerSerialNumbers](
		ctx, c, &message.GetTrackerSerialNumbers{}, message.KindReturnTrackerSerials)
	if err != nil {
		return nil, err
	}

	reply.List = reply.Sorted()

	return reply, nil
}

// GetVirtualWebCamConfig returns the current virtual webcam settings.
func (c *Client) GetVirtualWebCamConfig(ctx context.Context) (*message.SetVirtualWebCamConfig, error) {
	return await[*message.SetVirtualWebCamConfig](
		ctx, c, &message.GetVirtualWebCamConfig{}, message.KindSetVirtualWebCamConfig)
}

// GetExternalCameraConfig returns the external camera placement for controllerName.
func (c *Client) GetExternalCameraConfig(ctx context.Context, controllerName string) (*message.SetExternalCameraConfig, error) {
	return await[*message.SetExternalCameraConfig](
		ctx, c, &message.GetExternalCameraConfig{ControllerName: controllerName}, message.KindSetExternalCameraConfig)
}

// ExportExternalCameraConfig writes the external camera placement for
// controllerName to w in externalcamera.cfg format.
func (c *Client) ExportExternalCameraConfig(ctx context.Context, controllerName string, w io.Writer) error {
	cfg, err := c.GetExternalCameraConfig(ctx, controllerName)
	if err != nil {
		return err
	}

	return message.FormatExternalCameraConfig(w, cfg)
}

// ImportExternalCameraConfig reads an externalcamera.cfg file from r and
// applies it to controllerName.
func (c *Client) ImportExternalCameraConfig(ctx context.Context, controllerName string, r io.Reader) error {
	cfg, err := message.ParseExternalCameraConfig(r, controllerName)
	if err != nil {
		return fmt.Errorf("import external camera config: %w", err)
	}

	return c.SetExternalCameraConfig(ctx, *cfg)
}

// await sends cmd and converts the reply to T.
func await[T message.Event](ctx context.Context, c *Client, cmd message.Command, replyKind string) (T, error) {
	var zero T

	ev, err := c.SendAwait(ctx, cmd, replyKind)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", cmd.CommandType(), err)
	}

	reply, ok := ev.(T)
	if !ok {
		return zero, &errors.UnexpectedReplyError{
			RequestID: cmd.CommandType(),
			Expected:  replyKind,
			Got:       ev.EventType(),
		}
	}

	return reply, nil
}
