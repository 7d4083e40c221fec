package message

// SetHandRotations sets the hand bone rotation offsets, in degrees.
type SetHandRotations struct {
	LeftHandRotation  float32 `json:"LeftHandRotation"`
	RightHandRotation float32 `json:"RightHandRotation"`
}

// CommandType implements Command.
func (*SetHandRotations) CommandType() string { return KindSetHandRotations }

// SetVirtualWebCamConfig configures the virtual webcam output.
// The host also sends it back as the reply to GetVirtualWebCamConfig.
type SetVirtualWebCamConfig struct {
	Enabled   bool `json:"Enabled"`
	Resize    bool `json:"Resize"`
	Mirroring bool `json:"Mirroring"`
	Buffering int  `json:"Buffering"`
}

// CommandType implements Command.
func (*SetVirtualWebCamConfig) CommandType() string { return KindSetVirtualWebCamConfig }

// EventType implements Event.
func (*SetVirtualWebCamConfig) EventType() string { return KindSetVirtualWebCamConfig }

// SetResolution switches the host window to one of the reported resolutions.
type SetResolution struct {
	Width       int `json:"Width"`
	Height      int `json:"Height"`
	RefreshRate int `json:"RefreshRate"`
}

// CommandType implements Command.
func (*SetResolution) CommandType() string { return KindSetResolution }

// SetExternalCameraConfig places the external (mixed reality) camera relative
// to a tracked controller. The host also sends it back as the reply to
// GetExternalCameraConfig.
type SetExternalCameraConfig struct {
	X              float32 `json:"x"`
	Y              float32 `json:"y"`
	Z              float32 `json:"z"`
	RX             float32 `json:"rx"`
	RY             float32 `json:"ry"`
	RZ             float32 `json:"rz"`
	FOV            float32 `json:"fov"`
	ControllerName string  `json:"ControllerName"`
}

// CommandType implements Command.
func (*SetExternalCameraConfig) CommandType() string { return KindSetExternalCameraConfig }

// EventType implements Event.
func (*SetExternalCameraConfig) EventType() string { return KindSetExternalCameraConfig }

// GetResolutions asks for the display modes the host supports.
// Reply: ReturnResolutions.
type GetResolutions struct{}

// CommandType implements Command.
func (*GetResolutions) CommandType() string { return KindGetResolutions }

// GetTrackerSerialNumbers asks for the connected trackers.
// Reply: ReturnTrackerSerialNumbers.
type GetTrackerSerialNumbers struct{}

// CommandType implements Command.
func (*GetTrackerSerialNumbers) CommandType() string { return KindGetTrackerSerialNumbers }

// GetVirtualWebCamConfig asks for the current webcam settings.
// Reply: SetVirtualWebCamConfig.
type GetVirtualWebCamConfig struct{}

// CommandType implements Command.
func (*GetVirtualWebCamConfig) CommandType() string { return KindGetVirtualWebCamConfig }

// GetExternalCameraConfig asks for the camera placement bound to a controller.
// Reply: SetExternalCameraConfig.
type GetExternalCameraConfig struct {
	ControllerName string `json:"ControllerName"`
}

// CommandType implements Command.
func (*GetExternalCameraConfig) CommandType() string { return KindGetExternalCameraConfig }

// HandRotationPresets are the rotation steps the control surface offers.
var HandRotationPresets = []float32{-180, -135, -90, -45, 0, 45, 90, 135, 180}

// IsHandRotationPreset reports whether deg is one of HandRotationPresets.
func IsHandRotationPreset(deg float32) bool {
	for _, p := range HandRotationPresets {
		if p == deg {
			return true
		}
	}

	return false
}
