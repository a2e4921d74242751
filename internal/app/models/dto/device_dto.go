package dto

import "time"

// DeviceResponse is the public shape of a registered device
type DeviceResponse struct {
	ID         int64      `json:"id"`
	DeviceID   string     `json:"deviceId"`
	DeviceName string     `json:"deviceName"`
	IsTrusted  bool       `json:"isTrusted"`
	LastLogin  *time.Time `json:"lastLogin,omitempty"`
}

// DeviceListResponse lists a faculty's registered devices
type DeviceListResponse struct {
	Devices []DeviceResponse `json:"devices"`
}

// TrustDeviceRequest toggles the trusted flag on a device
type TrustDeviceRequest struct {
	IsTrusted bool `json:"isTrusted"`
}

// RenameDeviceRequest changes a device's display name
type RenameDeviceRequest struct {
	DeviceName string `json:"deviceName" binding:"required,max=100"`
}
