package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/vmcctl/internal/message"
)

// Controller is the part of the client the tools drive.
type Controller interface {
	SetHandRotations(ctx context.Context, left, right float32) error
	SetResolution(ctx context.Context, res message.Resolution) error
	SetVirtualWebCamConfig(ctx context.Context, cfg message.SetVirtualWebCamConfig) error
	SetExternalCameraConfig(ctx context.Context, cfg message.SetExternalCameraConfig) error
	GetResolutions(ctx context.Context) ([]message.Resolution, error)
	GetTrackerSerialNumbers(ctx context.Context) (*message.ReturnTrackerSerialNumbers, error)
	GetVirtualWebCamConfig(ctx context.Context) (*message.SetVirtualWebCamConfig, error)
	GetExternalCameraConfig(ctx context.Context, controllerName string) (*message.SetExternalCameraConfig, error)
	IsTrackerActive(serial string) bool
}

// Tool names.
const (
	ToolSetHandRotations  = "set_hand_rotations"
	ToolSetResolution     = "set_resolution"
	ToolSetVirtualWebCam  = "set_virtual_webcam"
	ToolSetExternalCamera = "set_external_camera"
	ToolGetResolutions    = "get_resolutions"
	ToolGetTrackers       = "get_trackers"
	ToolGetVirtualWebCam  = "get_virtual_webcam"
	ToolGetExternalCamera = "get_external_camera"
)

type handRotationArgs struct {
	Left  float32 `json:"left"`
	Right float32 `json:"right"`
}

type resolutionArgs struct {
	Width       int `json:"width"`
	Height      int `json:"height"`
	RefreshRate int `json:"refresh_rate"`
}

type webCamArgs struct {
	Enabled   bool `json:"enabled"`
	Resize    bool `json:"resize"`
	Mirroring bool `json:"mirroring"`
	Buffering int  `json:"buffering"`
}

type externalCameraArgs struct {
	X          float32 `json:"x"`
	Y          float32 `json:"y"`
	Z          float32 `json:"z"`
	RX         float32 `json:"rx"`
	RY         float32 `json:"ry"`
	RZ         float32 `json:"rz"`
	FOV        float32 `json:"fov"`
	Controller string  `json:"controller"`
}

type controllerArgs struct {
	Controller string `json:"controller"`
}

// trackerStatus is one entry of the get_trackers result.
type trackerStatus struct {
	Type   string `json:"type"`
	Serial string `json:"serial"`
	Active bool   `json:"active"`
}

// RegisterControlTools adds one tool per host command to s.
func RegisterControlTools(s *Server, ctl Controller) {
	s.AddTool(
		NewTool(ToolSetHandRotations, "Set the left and right hand rotation offsets in degrees.",
			SimpleSchema(map[string]string{"left": "float32", "right": "float32"})),
		handle(func(ctx context.Context, a handRotationArgs) (*mcp.CallToolResult, error) {
			return ok(ctl.SetHandRotations(ctx, a.Left, a.Right))
		}),
	)

	s.AddTool(
		NewTool(ToolSetResolution, "Switch the host output resolution.",
			SimpleSchema(map[string]string{"width": "int", "height": "int", "refresh_rate": "int"})),
		handle(func(ctx context.Context, a resolutionArgs) (*mcp.CallToolResult, error) {
			return ok(ctl.SetResolution(ctx, message.Resolution{
				Width:       a.Width,
				Height:      a.Height,
				RefreshRate: a.RefreshRate,
			}))
		}),
	)

	s.AddTool(
		NewTool(ToolSetVirtualWebCam, "Apply the virtual webcam settings.",
			SimpleSchema(map[string]string{
				"enabled": "bool", "resize": "bool", "mirroring": "bool", "buffering": "int",
			})),
		handle(func(ctx context.Context, a webCamArgs) (*mcp.CallToolResult, error) {
			return ok(ctl.SetVirtualWebCamConfig(ctx, message.SetVirtualWebCamConfig{
				Enabled:   a.Enabled,
				Resize:    a.Resize,
				Mirroring: a.Mirroring,
				Buffering: a.Buffering,
			}))
		}),
	)

	s.AddTool(
		NewTool(ToolSetExternalCamera, "Place the external camera relative to a controller.",
			SimpleSchema(map[string]string{
				"x": "float32", "y": "float32", "z": "float32",
				"rx": "float32", "ry": "float32", "rz": "float32",
				"fov": "float32", "controller": "string",
			})),
		handle(func(ctx context.Context, a externalCameraArgs) (*mcp.CallToolResult, error) {
			return ok(ctl.SetExternalCameraConfig(ctx, message.SetExternalCameraConfig{
				X: a.X, Y: a.Y, Z: a.Z,
				RX: a.RX, RY: a.RY, RZ: a.RZ,
				FOV:            a.FOV,
				ControllerName: a.Controller,
			}))
		}),
	)

	s.AddTool(
		NewTool(ToolGetResolutions, "List the output resolutions the host supports.",
			SimpleSchema(map[string]string{})),
		handle(func(ctx context.Context, _ struct{}) (*mcp.CallToolResult, error) {
			list, err := ctl.GetResolutions(ctx)
			if err != nil {
				return nil, err
			}

			modes := make([]string, 0, len(list))
			for _, res := range list {
				modes = append(modes, res.String())
			}

			return JSONResult(modes), nil
		}),
	)

	s.AddTool(
		NewTool(ToolGetTrackers, "List connected trackers and whether each is currently moving.",
			SimpleSchema(map[string]string{})),
		handle(func(ctx context.Context, _ struct{}) (*mcp.CallToolResult, error) {
			reply, err := ctl.GetTrackerSerialNumbers(ctx)
			if err != nil {
				return nil, err
			}

			trackers := make([]trackerStatus, 0, len(reply.List))
			for _, t := range reply.Sorted() {
				trackers = append(trackers, trackerStatus{
					Type:   t.TypeName,
					Serial: t.SerialNumber,
					Active: ctl.IsTrackerActive(t.SerialNumber),
				})
			}

			return JSONResult(trackers), nil
		}),
	)

	s.AddTool(
		NewTool(ToolGetVirtualWebCam, "Read the current virtual webcam settings.",
			SimpleSchema(map[string]string{})),
		handle(func(ctx context.Context, _ struct{}) (*mcp.CallToolResult, error) {
			cfg, err := ctl.GetVirtualWebCamConfig(ctx)
			if err != nil {
				return nil, err
			}

			return JSONResult(cfg), nil
		}),
	)

	s.AddTool(
		NewTool(ToolGetExternalCamera, "Read the external camera placement for a controller.",
			SimpleSchema(map[string]string{"controller": "string"})),
		handle(func(ctx context.Context, a controllerArgs) (*mcp.CallToolResult, error) {
			cfg, err := ctl.GetExternalCameraConfig(ctx, a.Controller)
			if err != nil {
				return nil, err
			}

			return JSONResult(cfg), nil
		}),
	)
}

// handle adapts a typed tool function to an mcp.ToolHandler. Argument and
// host errors become error results so the MCP client can show them.
func handle[T any](fn func(context.Context, T) (*mcp.CallToolResult, error)) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args T

		if req != nil && req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return ErrorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
			}
		}

		result, err := fn(ctx, args)
		if err != nil {
			return ErrorResult(err.Error()), nil
		}

		return result, nil
	}
}

func ok(err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return nil, err
	}

	return TextResult("ok"), nil
}
