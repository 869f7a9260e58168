package models

// Known fields under <deviceInfo>.
const (
	FieldDeviceName = "deviceName"
	FieldIPAddress  = "ipAddress"
)

// UnknownValue is rendered for device fields the camera did not report.
const UnknownValue = "Unknown"

// DeviceInfo holds the camera metadata, bracket characters already stripped.
type DeviceInfo map[string]string

// EventTimestamp is the event time exactly as the camera formatted it.
type EventTimestamp string

func (d DeviceInfo) Name() string {
	return d.get(FieldDeviceName)
}

func (d DeviceInfo) IP() string {
	return d.get(FieldIPAddress)
}

func (d DeviceInfo) get(field string) string {
	if v := d[field]; v != "" {
		return v
	}
	return UnknownValue
}
