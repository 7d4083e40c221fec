// Package message defines the commands and events exchanged with the host.
//
// Commands flow from the control surface to the host; events flow back,
// either as replies to a request or as unsolicited pushes. Every message
// carries a kind tag that identifies its payload on the wire.
package message

// Command is an operation sent to the host. Commands are immutable once built.
type Command interface {
	CommandType() string
}

// Event is a notification received from the host, either a reply payload
// or an unsolicited push.
type Event interface {
	EventType() string
}

// Wire kinds. Set*Config kinds appear in both directions: as fire-and-forget
// commands and as replies to the matching Get* request.
const (
	KindSetHandRotations        = "SetHandRotations"
	KindSetVirtualWebCamConfig  = "SetVirtualWebCamConfig"
	KindSetResolution           = "SetResolution"
	KindSetExternalCameraConfig = "SetExternalCameraConfig"
	KindGetResolutions          = "GetResolutions"
	KindReturnResolutions       = "ReturnResolutions"
	KindGetTrackerSerialNumbers = "GetTrackerSerialNumbers"
	KindReturnTrackerSerials    = "ReturnTrackerSerialNumbers"
	KindSetTrackerSerialNumbers = "SetTrackerSerialNumbers"
	KindGetVirtualWebCamConfig  = "GetVirtualWebCamConfig"
	KindGetExternalCameraConfig = "GetExternalCameraConfig"
	KindTrackerMoved            = "TrackerMoved"
)

// Compile-time verification of the command/event sets.
var (
	_ Command = (*SetHandRotations)(nil)
	_ Command = (*SetVirtualWebCamConfig)(nil)
	_ Command = (*SetResolution)(nil)
	_ Command = (*SetExternalCameraConfig)(nil)
	_ Command = (*GetResolutions)(nil)
	_ Command = (*GetTrackerSerialNumbers)(nil)
	_ Command = (*GetVirtualWebCamConfig)(nil)
	_ Command = (*GetExternalCameraConfig)(nil)

	_ Event = (*TrackerMoved)(nil)
	_ Event = (*ReturnResolutions)(nil)
	_ Event = (*ReturnTrackerSerialNumbers)(nil)
	_ Event = (*SetVirtualWebCamConfig)(nil)
	_ Event = (*SetExternalCameraConfig)(nil)
	_ Event = (*RawEvent)(nil)
)
