package telemetry

import "time"

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusUnknown = "unknown"
)

// OnlineWindow: сколько устройство считается online после последнего отчёта.
const OnlineWindow = 24 * time.Hour

// DeviceStatus: online, если отчёт был не позже OnlineWindow назад.
func DeviceStatus(ts *time.Time, now time.Time) string {
	if ts == nil || ts.IsZero() {
		return StatusUnknown
	}
	if now.Sub(*ts) <= OnlineWindow {
		return StatusOnline
	}
	return StatusOffline
}
