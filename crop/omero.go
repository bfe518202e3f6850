package crop

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/janelia-flyem/mosaic/mosaic"
)

// DefaultRegionURL renders channel 1 in red over the first 1024x1024 pixels.
const DefaultRegionURL = "/0/0/?c=1|0:65535$FF0000&region=0,0,1024,1024"

// ScaledRegion is the crop described by an OMERO.figure render_scaled_region URL:
//
//	[/<image id>]/<z>/<t>/?c=<index>|<start>:<end>$<RRGGBB>,...&region=<x>,<y>,<width>,<height>
//
// Channel indices are 1-based and a negative index marks an inactive channel.  The
// window start and end are raw sample values and are divided by the sample limit to
// get each channel's Min and Max.
type ScaledRegion struct {
	ImageID  string
	Z        int
	Time     int
	Channels []mosaic.Channel
	Origin   mosaic.Point2d // (row, col)
	Shape    mosaic.Point2d // (height, width)
}

// ParseScaledRegion parses a render_scaled_region URL for an image whose samples
// have the given limit, e.g., 65535 for 16-bit images.
func ParseScaledRegion(rawURL string, limit uint32) (*ScaledRegion, error) {
	if limit == 0 {
		return nil, mosaic.NewConfigError("sample limit must be positive")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, mosaic.NewConfigError("bad region url %q: %v", rawURL, err)
	}

	var sr ScaledRegion
	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(parts) < 2 {
		return nil, mosaic.NewConfigError("region url path %q must end in /<z>/<t>/", u.Path)
	}
	n := len(parts)
	if sr.Z, err = strconv.Atoi(parts[n-2]); err != nil || sr.Z < 0 {
		return nil, mosaic.NewConfigError("bad z %q in region url", parts[n-2])
	}
	if sr.Time, err = strconv.Atoi(parts[n-1]); err != nil || sr.Time < 0 {
		return nil, mosaic.NewConfigError("bad t %q in region url", parts[n-1])
	}
	if n > 2 {
		sr.ImageID = parts[n-3]
	}

	// '+' stays literal; url.ParseQuery would turn it into a space
	query := make(map[string]string)
	for _, kv := range strings.Split(u.RawQuery, "&") {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		if unescaped, err := url.PathUnescape(v); err == nil {
			v = unescaped
		}
		query[k] = v
	}

	if sr.Channels, err = parseChannels(query["c"], limit); err != nil {
		return nil, err
	}
	region, ok := query["region"]
	if !ok {
		return nil, mosaic.NewConfigError("region url needs a region=x,y,w,h parameter")
	}
	var xywh [4]int32
	fields := strings.Split(region, ",")
	if len(fields) != 4 {
		return nil, mosaic.NewConfigError("region %q must be x,y,width,height", region)
	}
	for i, f := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(f), 10, 32)
		if err != nil {
			return nil, mosaic.NewConfigError("bad region %q: %v", region, err)
		}
		xywh[i] = int32(v)
	}
	if xywh[2] < 0 || xywh[3] < 0 {
		return nil, mosaic.NewConfigError("region %q has negative extent", region)
	}
	sr.Origin = mosaic.Point2d{xywh[1], xywh[0]}
	sr.Shape = mosaic.Point2d{xywh[3], xywh[2]}
	return &sr, nil
}

func parseChannels(spec string, limit uint32) ([]mosaic.Channel, error) {
	var channels []mosaic.Channel
	if spec == "" {
		return channels, nil
	}
	for _, item := range strings.Split(spec, ",") {
		ch, active, err := parseChannel(item, limit)
		if err != nil {
			return nil, err
		}
		if active {
			channels = append(channels, ch)
		}
	}
	return channels, nil
}

// parseChannel parses "<index>[|<start>:<end>][$<RRGGBB>]".  A missing window
// covers the full range and a missing color is white.
func parseChannel(item string, limit uint32) (ch mosaic.Channel, active bool, err error) {
	rest, hex, hasColor := strings.Cut(item, "$")
	idxStr, window, hasWindow := strings.Cut(rest, "|")

	idx, err := strconv.Atoi(strings.TrimSpace(idxStr))
	if err != nil || idx == 0 {
		return ch, false, mosaic.NewConfigError("bad channel index in %q", item)
	}
	if idx < 0 {
		return ch, false, nil
	}
	ch = mosaic.Channel{ID: idx - 1, Color: mosaic.White, Min: 0, Max: 1}

	if hasWindow {
		lo, hi, ok := strings.Cut(window, ":")
		if !ok {
			return ch, false, mosaic.NewConfigError("channel window %q must be start:end", window)
		}
		start, err1 := strconv.ParseFloat(lo, 64)
		end, err2 := strconv.ParseFloat(hi, 64)
		if err1 != nil || err2 != nil {
			return ch, false, mosaic.NewConfigError("bad channel window %q", window)
		}
		ch.Min = clampUnit(start / float64(limit))
		ch.Max = clampUnit(end / float64(limit))
	}
	if hasColor {
		if ch.Color, err = mosaic.ParseColor(hex); err != nil {
			return ch, false, err
		}
	}
	return ch, true, nil
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
