package capture

import "fmt"

// FourCC is a four character pixel subtype code packed big-endian.
type FourCC uint32

// SubtypeBiPlanar420Full is '420f', bi-planar 4:2:0 with full range luma.
const SubtypeBiPlanar420Full FourCC = 875704422

// SubtypeBGRA is 'BGRA', packed 32-bit BGRA.
const SubtypeBGRA FourCC = 1111970369

// String returns the four characters of the code.
func (c FourCC) String() string {
	return string([]byte{byte(c >> 24), byte(c >> 16), byte(c >> 8), byte(c)})
}

// FrameRateRange is an inclusive range of supported frame rates.
type FrameRateRange struct {
	Min, Max float64
}

// Contains reports whether fps lies within the range.
func (r FrameRateRange) Contains(fps float64) bool {
	return r.Min <= fps && fps <= r.Max
}

// DeviceFormat describes one capture mode offered by a device.
type DeviceFormat struct {
	Width, Height   int
	Subtype         FourCC
	FrameRateRanges []FrameRateRange
}

func (f DeviceFormat) String() string {
	return fmt.Sprintf("%dx%d %s", f.Width, f.Height, f.Subtype)
}

// TieBreak chooses between several matching formats.
type TieBreak uint8

const (
	// FirstMatch picks the first matching format in enumeration order.
	FirstMatch TieBreak = iota

	// ClosestMatch picks the matching format with the narrowest first
	// frame-rate range, falling back to enumeration order.
	ClosestMatch
)

func (t TieBreak) String() string {
	switch t {
	case FirstMatch:
		return "first"
	case ClosestMatch:
		return "closest"
	}
	return fmt.Sprintf("TieBreak(%d)", uint8(t))
}

// ParseTieBreak parses "first" or "closest".
func ParseTieBreak(s string) (TieBreak, error) {
	switch s {
	case "", "first":
		return FirstMatch, nil
	case "closest":
		return ClosestMatch, nil
	}
	return FirstMatch, fmt.Errorf("capture: unknown tie-break policy %q", s)
}

// matches reports whether f can deliver active's dimensions at fps in the
// 420f subtype. Only the first frame-rate range is considered.
func matches(f, active DeviceFormat, fps float64) bool {
	if len(f.FrameRateRanges) == 0 || !f.FrameRateRanges[0].Contains(fps) {
		return false
	}
	return f.Width == active.Width &&
		f.Height == active.Height &&
		f.Subtype == SubtypeBiPlanar420Full
}

// SelectFormat picks a candidate compatible with the active format at the
// target frame rate. It returns false when no candidate matches; callers then
// keep the active format and report the configuration as degraded.
func SelectFormat(candidates []DeviceFormat, active DeviceFormat, fps float64, policy TieBreak) (DeviceFormat, bool) {
	best := -1
	for i := range candidates {
		if !matches(candidates[i], active, fps) {
			continue
		}
		if policy == FirstMatch {
			return candidates[i], true
		}
		if best < 0 || width(candidates[i]) < width(candidates[best]) {
			best = i
		}
	}
	if best < 0 {
		return active, false
	}
	return candidates[best], true
}

func width(f DeviceFormat) float64 {
	r := f.FrameRateRanges[0]
	return r.Max - r.Min
}
