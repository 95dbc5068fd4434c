package gst

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/camfx/capture"
)

// Plan is the negotiated pipeline shape for one Configure call.
type Plan struct {
	// SourceCaps pins the device mode right after v4l2src. Empty when the
	// configuration degraded and the device picks its own mode.
	SourceCaps string

	// Rotate inserts a clockwise videoflip before scaling.
	Rotate bool

	// OutputCaps is the BGRA caps handed to the appsink.
	OutputCaps string

	// Width and Height are the delivered frame size after rotation.
	Width, Height int

	// FrameRate is the delivered rate; 0 means the device default.
	FrameRate float64
}

// defaultPlan is used until Configure runs.
func defaultPlan() Plan {
	w, h, _ := capture.Config{}.Size()
	return Plan{
		OutputCaps: Caps(w, h, capture.DefaultFrameRate),
		Width:      w,
		Height:     h,
		FrameRate:  capture.DefaultFrameRate,
	}
}

// Negotiate selects a device mode for cfg among the modes reported by the
// camera. The active format is the requested landscape size; portrait output
// is produced by rotating that mode, never by scaling it.
func Negotiate(modes []capture.DeviceFormat, cfg capture.Config) (Plan, capture.Result, error) {
	lw, lh, err := cfg.Landscape()
	if err != nil {
		return Plan{}, capture.Result{}, err
	}
	fps := cfg.FrameRate
	if fps <= 0 {
		fps = capture.DefaultFrameRate
	}
	active := capture.DeviceFormat{Width: lw, Height: lh, Subtype: capture.SubtypeBGRA}

	plan := Plan{Width: lw, Height: lh, Rotate: cfg.Portrait}
	if cfg.Portrait {
		plan.Width, plan.Height = lh, lw
	}

	if f, ok := capture.SelectFormat(modes, active, fps, cfg.Policy); ok {
		plan.SourceCaps = SourceCaps(f)
		plan.OutputCaps = Caps(plan.Width, plan.Height, fps)
		plan.FrameRate = fps
		return plan, capture.Result{Format: f}, nil
	}

	reason := "no 420f mode supports the requested frame rate"
	if len(modes) == 0 {
		reason = "device reported no modes"
	}
	plan.OutputCaps = Caps(plan.Width, plan.Height, 0)
	return plan, capture.Degrade(active, reason), nil
}

const sinkName = "sink"

// Description returns the gst-launch description of the capture pipeline:
// the device mode when one was selected, conversion, a clockwise flip for
// portrait, scaling, rate dropping and the BGRA appsink.
func (p Plan) Description(device string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "v4l2src device=%q ! ", device)
	if p.SourceCaps != "" {
		b.WriteString(p.SourceCaps + " ! ")
	}
	b.WriteString("videoconvert ! ")
	if p.Rotate {
		b.WriteString("videoflip method=clockwise ! ")
	}
	b.WriteString("videoscale ! videorate drop-only=true ! ")
	b.WriteString(p.OutputCaps + " ! ")
	fmt.Fprintf(&b, "appsink name=%s sync=false max-buffers=1 drop=true", sinkName)
	return b.String()
}

// SourceCaps returns the caps pinning the device to mode f at the top of its
// first frame-rate range. videorate drops down to the requested rate.
func SourceCaps(f capture.DeviceFormat) string {
	s := fmt.Sprintf("video/x-raw,format=NV12,width=%d,height=%d", f.Width, f.Height)
	if len(f.FrameRateRanges) > 0 {
		s += ",framerate=" + Rate(f.FrameRateRanges[0].Max)
	}
	return s
}

// Caps returns the capsfilter string for BGRA frames of the given size. A
// non-positive fps leaves the frame rate to the device.
func Caps(width, height int, fps float64) string {
	s := fmt.Sprintf("video/x-raw,format=BGRA,width=%d,height=%d", width, height)
	if fps > 0 {
		s += ",framerate=" + Rate(fps)
	}
	return s
}

// Rate formats fps as a GStreamer fraction. NTSC rates such as 29.97 map to
// their exact n*1000/1001 form.
func Rate(fps float64) string {
	if fps == math.Trunc(fps) {
		return fmt.Sprintf("%d/1", int(fps))
	}
	if k := math.Round(fps * 1.001); k >= 1 && math.Abs(fps-k*1000/1001) < 0.01 {
		return fmt.Sprintf("%d/1001", int(k)*1000)
	}
	num, den := int(math.Round(fps*1000)), 1000
	g := gcd(num, den)
	return fmt.Sprintf("%d/%d", num/g, den/g)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// ParseModes turns a caps description, as printed by gst_caps_to_string for
// a v4l2src pad query, into device formats. Structures whose size is a range
// cannot be enumerated and are skipped. A discrete list of frame rates
// becomes one range spanning the list.
func ParseModes(caps string) []capture.DeviceFormat {
	caps = strings.TrimSpace(caps)
	if caps == "" || caps == "ANY" || caps == "EMPTY" {
		return nil
	}
	var out []capture.DeviceFormat
	for _, st := range splitTop(caps, ';') {
		fields := splitTop(st, ',')
		if len(fields) == 0 {
			continue
		}
		name := strings.TrimSpace(fields[0])
		if i := strings.IndexByte(name, '('); i >= 0 {
			name = name[:i]
		}

		var (
			w, h    int
			wOK     bool
			hOK     bool
			formats []string
			ranges  []capture.FrameRateRange
		)
		for _, field := range fields[1:] {
			key, value, ok := strings.Cut(field, "=")
			if !ok {
				continue
			}
			value = stripType(strings.TrimSpace(value))
			switch strings.TrimSpace(key) {
			case "width":
				w, wOK = parseInt(value)
			case "height":
				h, hOK = parseInt(value)
			case "format":
				formats = listItems(value)
			case "framerate":
				if r, ok := parseRates(value); ok {
					ranges = []capture.FrameRateRange{r}
				}
			}
		}
		if !wOK || !hOK {
			continue
		}

		switch name {
		case "image/jpeg":
			formats = []string{"MJPG"}
		case "video/x-raw":
		default:
			continue
		}
		for _, f := range formats {
			out = append(out, capture.DeviceFormat{
				Width:           w,
				Height:          h,
				Subtype:         subtype(f),
				FrameRateRanges: ranges,
			})
		}
	}
	return out
}

// subtype maps a GStreamer format name to a capture subtype. NV12 is the
// bi-planar 4:2:0 layout cameras deliver as '420f'.
func subtype(format string) capture.FourCC {
	switch format {
	case "NV12":
		return capture.SubtypeBiPlanar420Full
	case "BGRA", "BGRx":
		return capture.SubtypeBGRA
	}
	b := []byte(format + "    ")[:4]
	return capture.FourCC(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

// splitTop splits s on sep outside of brackets, braces and quotes.
func splitTop(s string, sep byte) []string {
	var (
		out   []string
		depth int
		quote bool
		start int
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			quote = !quote
		case quote:
		case c == '{' || c == '[' || c == '(' || c == '<':
			depth++
		case c == '}' || c == ']' || c == ')' || c == '>':
			depth--
		case c == sep && depth == 0:
			if part := strings.TrimSpace(s[start:i]); part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	if part := strings.TrimSpace(s[start:]); part != "" {
		out = append(out, part)
	}
	return out
}

// stripType removes a leading "(type)" annotation.
func stripType(v string) string {
	if strings.HasPrefix(v, "(") {
		if i := strings.IndexByte(v, ')'); i >= 0 {
			return strings.TrimSpace(v[i+1:])
		}
	}
	return v
}

func parseInt(v string) (int, bool) {
	n, err := strconv.Atoi(v)
	return n, err == nil
}

// listItems returns the members of "{ a, b }" or the single value v.
func listItems(v string) []string {
	if strings.HasPrefix(v, "{") && strings.HasSuffix(v, "}") {
		var items []string
		for _, it := range splitTop(v[1:len(v)-1], ',') {
			items = append(items, strings.Trim(it, `"`))
		}
		return items
	}
	return []string{strings.Trim(v, `"`)}
}

// parseRates reads a single fraction, a "{ ... }" list or a "[ lo, hi ]"
// range. Zero rates (variable frame rate) are ignored.
func parseRates(v string) (capture.FrameRateRange, bool) {
	var vals []float64
	if strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]") {
		for _, it := range splitTop(v[1:len(v)-1], ',') {
			if f, ok := parseFraction(it); ok {
				vals = append(vals, f)
			}
		}
		if len(vals) != 2 {
			return capture.FrameRateRange{}, false
		}
		return capture.FrameRateRange{Min: vals[0], Max: vals[1]}, true
	}
	for _, it := range listItems(v) {
		if f, ok := parseFraction(it); ok && f > 0 {
			vals = append(vals, f)
		}
	}
	if len(vals) == 0 {
		return capture.FrameRateRange{}, false
	}
	r := capture.FrameRateRange{Min: vals[0], Max: vals[0]}
	for _, f := range vals[1:] {
		r.Min = min(r.Min, f)
		r.Max = max(r.Max, f)
	}
	return r, true
}

func parseFraction(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		den = "1"
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return 0, false
	}
	d, err := strconv.Atoi(strings.TrimSpace(den))
	if err != nil || d == 0 {
		return 0, false
	}
	return float64(n) / float64(d), true
}
