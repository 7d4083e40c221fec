package message

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// TrackerMoved is pushed by the host whenever a tracked device reports motion.
// The serial number is the liveness key.
type TrackerMoved struct {
	SerialNumber string `json:"SerialNumber"`
}

// EventType implements Event.
func (*TrackerMoved) EventType() string { return KindTrackerMoved }

// Resolution is one display mode supported by the host.
type Resolution struct {
	Width       int `json:"Width"`
	Height      int `json:"Height"`
	RefreshRate int `json:"RefreshRate"`
}

// UnmarshalJSON accepts the object form, a [w, h, rate] array, or the
// {"Item1","Item2","Item3"} tuple form older hosts emit.
func (r *Resolution) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var triple []int
	if err := json.Unmarshal(data, &triple); err == nil {
		if len(triple) != 3 {
			return fmt.Errorf("resolution: expected 3 values, got %d", len(triple))
		}

		*r = Resolution{Width: triple[0], Height: triple[1], RefreshRate: triple[2]}

		return nil
	}

	var obj struct {
		Width       *int
		Height      *int
		RefreshRate *int
		Item1       *int
		Item2       *int
		Item3       *int
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("resolution: %w", err)
	}

	*r = Resolution{
		Width:       derefFirst(obj.Width, obj.Item1),
		Height:      derefFirst(obj.Height, obj.Item2),
		RefreshRate: derefFirst(obj.RefreshRate, obj.Item3),
	}

	return nil
}

// String formats the mode the way the control surface lists it.
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d@%dHz", r.Width, r.Height, r.RefreshRate)
}

// ReturnResolutions answers GetResolutions.
type ReturnResolutions struct {
	List []Resolution `json:"List"`
}

// EventType implements Event.
func (*ReturnResolutions) EventType() string { return KindReturnResolutions }

// Find returns the listed mode matching the given dimensions and rate.
func (r *ReturnResolutions) Find(width, height, rate int) (Resolution, bool) {
	return lo.Find(r.List, func(res Resolution) bool {
		return res.Width == width && res.Height == height && res.RefreshRate == rate
	})
}

// TrackerInfo identifies one tracked device.
type TrackerInfo struct {
	TypeName     string `json:"TypeName"`
	SerialNumber string `json:"SerialNumber"`
}

// UnmarshalJSON accepts the object form, a [type, serial] array, or the
// {"Item1","Item2"} tuple form.
func (t *TrackerInfo) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var pair []string
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("tracker info: expected 2 values, got %d", len(pair))
		}

		*t = TrackerInfo{TypeName: pair[0], SerialNumber: pair[1]}

		return nil
	}

	var obj struct {
		TypeName     *string
		SerialNumber *string
		Item1        *string
		Item2        *string
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("tracker info: %w", err)
	}

	*t = TrackerInfo{
		TypeName:     derefFirst(obj.TypeName, obj.Item1),
		SerialNumber: derefFirst(obj.SerialNumber, obj.Item2),
	}

	return nil
}

// SetTrackerSerialNumbers is the host's current tracker role assignment.
// Roles map a body part (e.g. "Head", "LeftHand") to a tracker serial.
type SetTrackerSerialNumbers struct {
	Roles map[string]TrackerInfo `json:"Roles,omitempty"`
}

// ReturnTrackerSerialNumbers answers GetTrackerSerialNumbers.
type ReturnTrackerSerialNumbers struct {
	List           []TrackerInfo            `json:"List"`
	CurrentSetting *SetTrackerSerialNumbers `json:"CurrentSetting,omitempty"`
}

// EventType implements Event.
func (*ReturnTrackerSerialNumbers) EventType() string { return KindReturnTrackerSerials }

// Sorted returns the trackers ordered by type name, then serial number.
func (r *ReturnTrackerSerialNumbers) Sorted() []TrackerInfo {
	return SortTrackers(r.List)
}

// SerialNumbers returns the serial of every listed tracker.
func (r *ReturnTrackerSerialNumbers) SerialNumbers() []string {
	return lo.Map(r.List, func(t TrackerInfo, _ int) string {
		return t.SerialNumber
	})
}

// SortTrackers returns a copy of list ordered by type name, then serial number.
func SortTrackers(list []TrackerInfo) []TrackerInfo {
	out := slices.Clone(list)
	slices.SortStableFunc(out, func(a, b TrackerInfo) int {
		return cmp.Or(
			cmp.Compare(a.TypeName, b.TypeName),
			cmp.Compare(a.SerialNumber, b.SerialNumber),
		)
	})

	return out
}

func derefFirst[T any](vals ...*T) T {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}

	var zero T

	return zero
}

// RawEvent carries a message whose kind this package does not model.
// The payload is left as decoded JSON.
type RawEvent struct {
	Kind    string
	Payload map[string]any
}

// EventType implements Event.
func (e *RawEvent) EventType() string { return e.Kind }
