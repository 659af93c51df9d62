// Package vivtime converts between POSIX time and the device's on-wire
// clock, which counts seconds since the ANT+ epoch.
//
// Ownership boundary:
// - POSIX<->device time conversion
package vivtime

import "time"

// antEpoch is 1989-12-31T00:00:00Z, expressed as seconds since the POSIX
// epoch.
const antEpoch int64 = 631065600

// FromPosix converts t to the device's 32-bit clock value.
//
// The device's clock is theoretically TAI seconds since the ANT+ epoch, but
// TAI can drift from UTC and this conversion does not correct for it, for
// consistency with the vendor's own app.
func FromPosix(t time.Time) uint32 {
	return uint32(t.Unix() - antEpoch)
}

// ToPosix converts a device clock value to a POSIX time.
func ToPosix(deviceTime uint32) time.Time {
	return time.Unix(int64(deviceTime)+antEpoch, 0).UTC()
}
