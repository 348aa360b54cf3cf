package outputcheck

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
)

// mpd mirrors the parts of a DASH manifest the checks need.
type mpd struct {
	XMLName                   xml.Name    `xml:"MPD"`
	MediaPresentationDuration string      `xml:"mediaPresentationDuration,attr"`
	Periods                   []mpdPeriod `xml:"Period"`
}

type mpdPeriod struct {
	AdaptationSets []mpdAdaptationSet `xml:"AdaptationSet"`
}

type mpdAdaptationSet struct {
	ContentType     string              `xml:"contentType,attr"`
	MimeType        string              `xml:"mimeType,attr"`
	Representations []mpdRepresentation `xml:"Representation"`
}

type mpdRepresentation struct {
	ID        string `xml:"id,attr"`
	Bandwidth int    `xml:"bandwidth,attr"`
	Width     int    `xml:"width,attr"`
	Height    int    `xml:"height,attr"`
}

// parseMPD decodes a DASH manifest and checks its required structure: at
// least one period holding at least one adaptation set with representations.
func parseMPD(content []byte) (*mpd, error) {
	var doc mpd
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("invalid XML: %w", err)
	}
	if len(doc.Periods) == 0 {
		return nil, fmt.Errorf("no Period elements")
	}
	sets, reps := 0, 0
	for _, period := range doc.Periods {
		sets += len(period.AdaptationSets)
		for _, set := range period.AdaptationSets {
			reps += len(set.Representations)
		}
	}
	if sets == 0 {
		return nil, fmt.Errorf("no AdaptationSet elements")
	}
	if reps == 0 {
		return nil, fmt.Errorf("no Representation elements")
	}
	return &doc, nil
}

var isoDurationPattern = regexp.MustCompile(`^PT(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?$`)

// ParseISODuration converts an ISO 8601 duration like "PT1H30M45.5S" into
// seconds. Only the time designators DASH actually emits are supported.
func ParseISODuration(value string) (float64, error) {
	match := isoDurationPattern.FindStringSubmatch(value)
	if match == nil || (match[1] == "" && match[2] == "" && match[3] == "") {
		return 0, fmt.Errorf("unsupported duration %q", value)
	}
	total := 0.0
	for i, factor := range []float64{3600, 60, 1} {
		if match[i+1] == "" {
			continue
		}
		v, err := strconv.ParseFloat(match[i+1], 64)
		if err != nil {
			return 0, fmt.Errorf("unsupported duration %q", value)
		}
		total += v * factor
	}
	return total, nil
}
