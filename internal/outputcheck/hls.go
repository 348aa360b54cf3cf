package outputcheck

import (
	"fmt"
	"strconv"
	"strings"
)

// masterPlaylist is the parsed top-level HLS playlist.
type masterPlaylist struct {
	// VariantURIs are the media playlist references in declaration order,
	// relative to the master's own location.
	VariantURIs []string
}

// mediaPlaylist is one parsed variant playlist.
type mediaPlaylist struct {
	// SegmentURIs are the media segment references in declaration order.
	SegmentURIs []string
	// DurationSeconds is the sum of all EXTINF segment durations.
	DurationSeconds float64
}

// parseMaster extracts the variant stream references from a master playlist.
func parseMaster(content string) (*masterPlaylist, error) {
	lines := splitPlaylist(content)
	if len(lines) == 0 || !strings.HasPrefix(lines[0], "#EXTM3U") {
		return nil, fmt.Errorf("missing #EXTM3U header")
	}

	master := &masterPlaylist{}
	expectURI := false
	for _, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF"):
			expectURI = true
		case strings.HasPrefix(line, "#"):
			// Other tags between STREAM-INF and its URI are not valid, but
			// tolerate them the way players do.
		case expectURI:
			master.VariantURIs = append(master.VariantURIs, line)
			expectURI = false
		}
	}
	return master, nil
}

// parseMedia extracts segments and total duration from a media playlist.
func parseMedia(content string) (*mediaPlaylist, error) {
	lines := splitPlaylist(content)
	if len(lines) == 0 || !strings.HasPrefix(lines[0], "#EXTM3U") {
		return nil, fmt.Errorf("missing #EXTM3U header")
	}

	media := &mediaPlaylist{}
	expectURI := false
	for _, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, "#EXTINF:"):
			value := strings.TrimPrefix(line, "#EXTINF:")
			if idx := strings.Index(value, ","); idx >= 0 {
				value = value[:idx]
			}
			seconds, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return nil, fmt.Errorf("bad EXTINF duration %q", line)
			}
			media.DurationSeconds += seconds
			expectURI = true
		case strings.HasPrefix(line, "#"):
		case expectURI:
			media.SegmentURIs = append(media.SegmentURIs, line)
			expectURI = false
		}
	}
	return media, nil
}

func splitPlaylist(content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
