package alarm

import (
	"strings"

	"ipc-alarm-relay/pkg/models"
)

type alarmLine struct {
	tag  string
	text string
}

// detailOrder is the order alarm lines appear in a message, most specific
// detection first. Map order never matters.
var detailOrder = []alarmLine{
	{models.AlarmHumanMotion, "\n- Human detected"},
	{models.AlarmVehicleMotion, "\n- Vehicle detected"},
	{models.AlarmMotion, "\n- General motion detected"},
	{models.AlarmPerimeter, "\n- Perimeter breach"},
	{models.AlarmTripwire, "\n- Tripwire crossed"},
}

// Compose builds the push message for an event. It returns false when no
// alarm is active and nothing should be sent.
//
// Tags outside detailOrder still trigger a message but add no line to it.
func Compose(ev models.AlarmEvent) (string, bool) {
	if !ev.Alarms.Active() {
		return "", false
	}

	var details []string
	for _, l := range detailOrder {
		if ev.Alarms[l.tag] {
			details = append(details, l.text)
		}
	}

	var b strings.Builder
	b.WriteString("Time: ")
	b.WriteString(string(ev.Time))
	b.WriteString("\n")
	b.WriteString(strings.Join(details, "\n"))
	b.WriteString("\n\nDevice name: ")
	b.WriteString(ev.Device.Name())
	b.WriteString("\nDevice IP: ")
	b.WriteString(ev.Device.IP())
	return b.String(), true
}

// UnknownActive returns active alarm tags that Compose has no line for.
func UnknownActive(r models.AlarmReport) []string {
	var unknown []string
	for _, name := range r.ActiveNames() {
		if !IsKnown(name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// IsKnown reports whether tag is one of the alarms Compose writes a line for.
func IsKnown(tag string) bool {
	for _, l := range detailOrder {
		if l.tag == tag {
			return true
		}
	}
	return false
}
