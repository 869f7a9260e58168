package models

import "sort"

// Known alarm tags reported under <alarmStatusInfo>.
const (
	AlarmMotion        = "motionAlarm"
	AlarmPerimeter     = "perimeterAlarm"
	AlarmTripwire      = "tripwireAlarm"
	AlarmHumanMotion   = "humanMotionAlarm"
	AlarmVehicleMotion = "vehicleMotionAlarm"
)

// AlarmReport maps an alarm tag to its active state. Keys are whatever tags
// the camera sent, not only the known ones.
type AlarmReport map[string]bool

// Active reports whether at least one alarm is set.
func (r AlarmReport) Active() bool {
	for _, on := range r {
		if on {
			return true
		}
	}
	return false
}

// ActiveNames returns the tags of all active alarms, sorted.
func (r AlarmReport) ActiveNames() []string {
	var names []string
	for name, on := range r {
		if on {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// AlarmEvent is everything extracted from one camera payload.
type AlarmEvent struct {
	Alarms AlarmReport    `json:"alarms"`
	Device DeviceInfo     `json:"device"`
	Time   EventTimestamp `json:"time"`
}
