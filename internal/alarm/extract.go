package alarm

import (
	"strings"

	"ipc-alarm-relay/pkg/models"
)

const (
	nodeAlarmStatus = "alarmStatusInfo"
	nodeDeviceInfo  = "deviceInfo"
	nodeDataTime    = "dataTime"
)

// Extract pulls the alarm flags, device metadata and event time out of a
// parsed payload. All three nodes must be direct children of the root.
func Extract(root *Node) (models.AlarmEvent, error) {
	var ev models.AlarmEvent

	status := root.Child(nodeAlarmStatus)
	if status == nil {
		return ev, &MalformedPayloadError{Node: nodeAlarmStatus}
	}
	device := root.Child(nodeDeviceInfo)
	if device == nil {
		return ev, &MalformedPayloadError{Node: nodeDeviceInfo}
	}
	dataTime := root.Child(nodeDataTime)
	if dataTime == nil {
		return ev, &MalformedPayloadError{Node: nodeDataTime}
	}

	// An empty or missing value is simply "not true".
	ev.Alarms = make(models.AlarmReport, len(status.Children))
	for _, c := range status.Children {
		ev.Alarms[c.Tag] = strings.EqualFold(c.Text, "true")
	}

	ev.Device = make(models.DeviceInfo, len(device.Children))
	for _, c := range device.Children {
		ev.Device[c.Tag] = StripBrackets(c.Text)
	}

	ev.Time = models.EventTimestamp(StripBrackets(dataTime.Text))
	return ev, nil
}

// StripBrackets removes any run of '[' and ']' from both ends of s. The
// cameras wrap most values as "[value]".
func StripBrackets(s string) string {
	return strings.Trim(s, "[]")
}
