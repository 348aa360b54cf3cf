package manifest

import (
	"encoding/xml"
	"fmt"
	"math"
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/language"

	"mezzpress/internal/identity"
	"mezzpress/internal/services"
)

var (
	manifestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	checksumPattern   = regexp.MustCompile(`^[a-fA-F0-9]{32}$`)
)

// Manifest is the parsed transcode manifest for one episode.
type Manifest struct {
	XMLName        xml.Name        `xml:"TranscodeManifest"`
	Version        string          `xml:"version,attr"`
	ManifestID     string          `xml:"ManifestId"`
	Episode        Episode         `xml:"Episode"`
	Mezzanine      Mezzanine       `xml:"Mezzanine"`
	AudioTracks    []AudioTrack    `xml:"AudioTracks>Track"`
	SubtitleTracks []SubtitleTrack `xml:"SubtitleTracks>Track"`
}

// Episode carries the presentation metadata for the content being encoded.
type Episode struct {
	SeriesID        string  `xml:"SeriesId"`
	SeriesTitle     string  `xml:"SeriesTitle"`
	SeasonNumber    int     `xml:"SeasonNumber"`
	EpisodeNumber   int     `xml:"EpisodeNumber"`
	EpisodeTitle    string  `xml:"EpisodeTitle"`
	DurationSeconds float64 `xml:"DurationSeconds"`
}

// Mezzanine describes the high-quality master file used as encode input.
type Mezzanine struct {
	FilePath        string  `xml:"FilePath"`
	ChecksumMD5     string  `xml:"ChecksumMd5"`
	FileSizeBytes   int64   `xml:"FileSizeBytes"`
	DurationSeconds float64 `xml:"DurationSeconds"`
	VideoCodec      string  `xml:"VideoCodec"`
	AudioCodec      string  `xml:"AudioCodec"`
	Width           int     `xml:"ResolutionWidth"`
	Height          int     `xml:"ResolutionHeight"`
	FrameRate       float64 `xml:"FrameRate"`
}

// AudioTrack is one language version of the episode audio.
type AudioTrack struct {
	Language string `xml:"Language"`
	Label    string `xml:"Label"`
	Default  bool   `xml:"Default"`
	Channels int    `xml:"Channels"`
}

// SubtitleTrack references a sidecar subtitle file.
type SubtitleTrack struct {
	Language string `xml:"Language"`
	Label    string `xml:"Label"`
	FilePath string `xml:"FilePath"`
	Forced   bool   `xml:"Forced"`
}

// Parse decodes and validates manifest XML. durationDriftLimit bounds the
// allowed difference between the episode and mezzanine durations.
func Parse(data []byte, durationDriftLimit float64) (*Manifest, error) {
	var m Manifest
	if err := xml.Unmarshal(data, &m); err != nil {
		return nil, services.Wrap(services.ErrInput, "manifest", "parse", "invalid XML", err)
	}
	if err := m.validate(durationDriftLimit); err != nil {
		return nil, err
	}
	m.normalize()
	return &m, nil
}

func (m *Manifest) validate(durationDriftLimit float64) error {
	fail := func(message string) error {
		return services.Wrap(services.ErrInput, "manifest", "validate", message, nil)
	}

	if strings.TrimSpace(m.ManifestID) == "" {
		return fail("ManifestId is required")
	}
	if !manifestIDPattern.MatchString(strings.TrimSpace(m.ManifestID)) {
		return fail(fmt.Sprintf("ManifestId %q contains unsupported characters", m.ManifestID))
	}
	if strings.TrimSpace(m.Mezzanine.FilePath) == "" {
		return fail("Mezzanine.FilePath is required")
	}
	if !checksumPattern.MatchString(strings.TrimSpace(m.Mezzanine.ChecksumMD5)) {
		return fail("Mezzanine.ChecksumMd5 must be a 32-char hex digest")
	}
	if m.Mezzanine.FileSizeBytes <= 0 {
		return fail("Mezzanine.FileSizeBytes must be positive")
	}
	if m.Mezzanine.DurationSeconds <= 0 {
		return fail("Mezzanine.DurationSeconds must be positive")
	}
	if m.Mezzanine.Width <= 0 || m.Mezzanine.Height <= 0 {
		return fail("Mezzanine resolution is required")
	}
	if m.Episode.SeasonNumber <= 0 || m.Episode.EpisodeNumber <= 0 {
		return fail("Episode season and number must be positive")
	}
	if len(m.AudioTracks) == 0 {
		return fail("at least one audio track is required")
	}

	defaults := 0
	for i, track := range m.AudioTracks {
		if _, err := normalizeLanguage(track.Language); err != nil {
			return fail(fmt.Sprintf("audio track %d: %v", i+1, err))
		}
		if track.Default {
			defaults++
		}
	}
	if defaults != 1 {
		return fail(fmt.Sprintf("exactly one audio track must be default, got %d", defaults))
	}

	if m.Episode.DurationSeconds > 0 {
		drift := math.Abs(m.Episode.DurationSeconds - m.Mezzanine.DurationSeconds)
		if drift > durationDriftLimit {
			return fail(fmt.Sprintf(
				"episode duration %.2fs does not match mezzanine duration %.2fs (drift %.2fs > %.2fs)",
				m.Episode.DurationSeconds, m.Mezzanine.DurationSeconds, drift, durationDriftLimit))
		}
	}
	return nil
}

func (m *Manifest) normalize() {
	m.ManifestID = strings.TrimSpace(m.ManifestID)
	m.Mezzanine.ChecksumMD5 = strings.ToLower(strings.TrimSpace(m.Mezzanine.ChecksumMD5))
	for i := range m.AudioTracks {
		if normalized, err := normalizeLanguage(m.AudioTracks[i].Language); err == nil {
			m.AudioTracks[i].Language = normalized
		}
		if m.AudioTracks[i].Channels <= 0 {
			m.AudioTracks[i].Channels = 2
		}
	}
}

// normalizeLanguage canonicalizes a language tag to its ISO 639-1 base form.
func normalizeLanguage(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", fmt.Errorf("language tag is empty")
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("language tag %q: %w", tag, err)
	}
	base, _ := parsed.Base()
	return base.String(), nil
}

// AudioLanguages returns the normalized language codes of all audio tracks in
// manifest order. Duplicates are preserved; identity normalization sorts them.
func (m *Manifest) AudioLanguages() []string {
	langs := make([]string, 0, len(m.AudioTracks))
	for _, track := range m.AudioTracks {
		langs = append(langs, track.Language)
	}
	return langs
}

// WorkUnit converts the manifest into the normalized identity tuple for the
// given encoding profile version.
func (m *Manifest) WorkUnit(profileVersion string) identity.WorkUnit {
	return identity.WorkUnit{
		ManifestID:      m.ManifestID,
		ContentChecksum: m.Mezzanine.ChecksumMD5,
		ContentSize:     m.Mezzanine.FileSizeBytes,
		AudioLanguages:  m.AudioLanguages(),
		ProfileVersion:  profileVersion,
	}.Normalize()
}

// EpisodeCode renders the standard SxxEyyy code for log lines and paths.
func (m *Manifest) EpisodeCode() string {
	return fmt.Sprintf("S%02dE%03d", m.Episode.SeasonNumber, m.Episode.EpisodeNumber)
}

// OutputPrefix is the deterministic location outputs land under, relative to
// the output root. Derived purely from manifest fields so retries and
// validation agree on where to look.
func (m *Manifest) OutputPrefix() string {
	series := strings.TrimSpace(m.Episode.SeriesID)
	if series == "" {
		series = "unsorted"
	}
	return path.Join(series, m.EpisodeCode(), m.ManifestID)
}
