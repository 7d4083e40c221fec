package vmcctl

import (
	"github.com/wagiedev/vmcctl/internal/eventbus"
	"github.com/wagiedev/vmcctl/internal/liveness"
	"github.com/wagiedev/vmcctl/internal/message"
	"github.com/wagiedev/vmcctl/internal/protocol"
)

// Re-export types from internal packages

// ===== Messages =====

// Command is an operation sent to the host.
type Command = message.Command

// Event is a notification from the host, either a reply or a push.
type Event = message.Event

// SetHandRotations sets the hand rotation offsets.
type SetHandRotations = message.SetHandRotations

// SetResolution switches the output resolution.
type SetResolution = message.SetResolution

// GetResolutions requests the supported resolutions.
type GetResolutions = message.GetResolutions

// GetTrackerSerialNumbers requests the connected trackers.
type GetTrackerSerialNumbers = message.GetTrackerSerialNumbers

// GetVirtualWebCamConfig requests the virtual webcam settings.
type GetVirtualWebCamConfig = message.GetVirtualWebCamConfig

// GetExternalCameraConfig requests a controller's external camera placement.
type GetExternalCameraConfig = message.GetExternalCameraConfig

// VirtualWebCamConfig holds the virtual webcam settings. It is both the
// SetVirtualWebCamConfig command and the reply to GetVirtualWebCamConfig.
type VirtualWebCamConfig = message.SetVirtualWebCamConfig

// ExternalCameraConfig holds an external camera placement. It is both the
// SetExternalCameraConfig command and the reply to GetExternalCameraConfig.
type ExternalCameraConfig = message.SetExternalCameraConfig

// Resolution is one output mode.
type Resolution = message.Resolution

// TrackerInfo identifies one tracked device.
type TrackerInfo = message.TrackerInfo

// TrackerList answers GetTrackerSerialNumbers.
type TrackerList = message.ReturnTrackerSerialNumbers

// TrackerAssignment is the host's current tracker role assignment.
type TrackerAssignment = message.SetTrackerSerialNumbers

// ResolutionList answers GetResolutions.
type ResolutionList = message.ReturnResolutions

// TrackerMoved is pushed whenever a tracker moves.
type TrackerMoved = message.TrackerMoved

// RawEvent carries an event of a kind this package does not decode.
type RawEvent = message.RawEvent

// Message kinds.
const (
	KindSetHandRotations        = message.KindSetHandRotations
	KindSetVirtualWebCamConfig  = message.KindSetVirtualWebCamConfig
	KindSetResolution           = message.KindSetResolution
	KindSetExternalCameraConfig = message.KindSetExternalCameraConfig
	KindGetResolutions          = message.KindGetResolutions
	KindReturnResolutions       = message.KindReturnResolutions
	KindGetTrackerSerialNumbers = message.KindGetTrackerSerialNumbers
	KindReturnTrackerSerials    = message.KindReturnTrackerSerials
	KindGetVirtualWebCamConfig  = message.KindGetVirtualWebCamConfig
	KindGetExternalCameraConfig = message.KindGetExternalCameraConfig
	KindTrackerMoved            = message.KindTrackerMoved
)

// HandRotationPresets are the rotation steps offered for hand offsets.
var HandRotationPresets = message.HandRotationPresets

// SortTrackers returns a copy of list ordered by type name, then serial number.
func SortTrackers(list []TrackerInfo) []TrackerInfo {
	return message.SortTrackers(list)
}

// ===== Events =====

// EventHandler receives unsolicited events.
type EventHandler = eventbus.Handler

// Subscription is returned by Subscribe; call Unsubscribe to stop delivery.
type Subscription = eventbus.Subscription

// AllKinds subscribes to every event kind.
const AllKinds = eventbus.AllKinds

// ===== Connection status =====

// Status is the connection state.
type Status = protocol.Status

const (
	// StatusIdle means the client has not connected yet.
	StatusIdle = protocol.StatusIdle
	// StatusConnected means the connection is up.
	StatusConnected = protocol.StatusConnected
	// StatusConnectionLost means the connection dropped.
	StatusConnectionLost = protocol.StatusConnectionLost
	// StatusStopped means the client was closed.
	StatusStopped = protocol.StatusStopped
)

// DefaultLivenessWindow is how long a tracker stays active after it last moved.
const DefaultLivenessWindow = liveness.DefaultWindow
