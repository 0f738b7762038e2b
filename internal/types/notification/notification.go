package notification

import "time"

type DeviceToken struct {
	Token     string    `json:"token" db:"token"`
	Platform  string    `json:"platform" db:"platform"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type RegisterDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (r RegisterDeviceRequest) ValidPlatform() bool {
	switch r.Platform {
	case "ios", "android", "web":
		return true
	}
	return false
}
