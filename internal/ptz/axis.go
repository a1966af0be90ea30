package ptz

const (
	// DefaultDeadZone is the band of raw values around center treated as zero
	DefaultDeadZone int16 = 2000

	// MaxRaw is the largest raw magnitude expected on the positive side
	MaxRaw float32 = 32767
)

// Normalize maps a raw joystick axis sample onto [-1, 1] using the default
// dead zone.
func Normalize(raw int16) float32 {
	return NormalizeWith(raw, DefaultDeadZone, MaxRaw)
}

// NormalizeWith maps raw onto [-1, 1]. Values strictly inside
// (-deadZone, deadZone) are 0; the remaining travel on each side is scaled
// linearly by 1/(maxRaw-deadZone) and clamped, so -32768 lands on exactly -1.
func NormalizeWith(raw, deadZone int16, maxRaw float32) float32 {
	if deadZone < 0 {
		deadZone = 0
	}
	dz := int32(deadZone)
	r := int32(raw)

	if r > -dz && r < dz {
		return 0
	}

	span := float64(maxRaw) - float64(dz)
	if span <= 0 {
		if r > 0 {
			return 1
		}
		return -1
	}
	invRange := 1 / span

	if r > 0 {
		v := float64(r-dz) * invRange
		if v > 1 {
			return 1
		}
		return float32(v)
	}

	v := float64(r+dz) * invRange
	if v < -1 {
		return -1
	}
	return float32(v)
}
