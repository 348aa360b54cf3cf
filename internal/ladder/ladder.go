package ladder

import (
	"fmt"

	"mezzpress/internal/manifest"
	"mezzpress/internal/services"
)

// Codec identifies a video codec family in an encoding plan.
type Codec string

const (
	CodecH264 Codec = "h264"
	CodecHEVC Codec = "hevc"
)

// PackageFormat identifies an output packaging container.
type PackageFormat string

const (
	FormatHLS  PackageFormat = "hls"
	FormatDASH PackageFormat = "dash"
)

// qvbrQuality is the target quality level for every video rendition. The
// encoder allocates bitrate up to the rendition ceiling to hold this level.
const qvbrQuality = 7

// maxBitrateFactor caps the instantaneous bitrate relative to the rendition
// target, keeping peaks streamable over constrained links.
const maxBitrateFactor = 1.5

// minSourceHeight is the smallest mezzanine the ladder will accept. Anything
// below the lowest rendition tier cannot produce a usable ABR set.
const minSourceHeight = 360

// ErrUnsupportedResolution marks sources too small to build a ladder from.
var ErrUnsupportedResolution = fmt.Errorf("source resolution below %dp", minSourceHeight)

// tier is one row of the fixed rendition table.
type tier struct {
	width        int
	height       int
	targetKbps   int
	codecProfile string
	codecLevel   string
}

// The H.264 table covers the full compatibility range. Targets are tuned for
// episodic content at the quality level above, not for sports or film grain.
var h264Tiers = []tier{
	{1920, 1080, 6000, "high", "4.1"},
	{1280, 720, 3500, "high", "4.0"},
	{854, 480, 1800, "main", "3.1"},
	{640, 360, 800, "main", "3.0"},
}

// HEVC variants only exist for the upper tiers, where the codec's efficiency
// gain justifies a second encode.
var hevcTiers = []tier{
	{1920, 1080, 4500, "main", "4.1"},
	{1280, 720, 2500, "main", "4.0"},
}

// VideoRendition is one encoded video variant in the plan.
type VideoRendition struct {
	Codec        Codec  `json:"codec"`
	CodecProfile string `json:"codec_profile"`
	CodecLevel   string `json:"codec_level"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	TargetKbps   int    `json:"target_kbps"`
	MaxKbps      int    `json:"max_kbps"`
	QualityLevel int    `json:"quality_level"`
	NameModifier string `json:"name_modifier"`
}

// AudioRendition is one encoded audio variant in the plan. Language is the
// two-letter base tag from the manifest; LanguageCode is the three-letter
// ISO 639-2 form the encoder expects.
type AudioRendition struct {
	Language     string `json:"language"`
	LanguageCode string `json:"language_code"`
	Label        string `json:"label"`
	Default      bool   `json:"default"`
	Channels     int    `json:"channels"`
	Codec        string `json:"codec"`
	BitrateKbps  int    `json:"bitrate_kbps"`
	SampleRate   int    `json:"sample_rate"`
}

// Plan is the complete deterministic encoding request for one work unit.
type Plan struct {
	Video   []VideoRendition `json:"video"`
	Audio   []AudioRendition `json:"audio"`
	Formats []PackageFormat  `json:"formats"`
	// SegmentSeconds is the HLS/DASH segment duration.
	SegmentSeconds int `json:"segment_seconds"`
}

// Options carries the policy knobs applied when building a plan.
type Options struct {
	EnableHEVC bool
	EnableDASH bool
	// HEVCMinHeight is the smallest rendition height that still gets an HEVC
	// variant.
	HEVCMinHeight int
}

// Build computes the rendition plan for a parsed manifest. The result is a
// pure function of the mezzanine resolution, the audio tracks, and the
// options: no clocks, no randomness, no environment.
func Build(m *manifest.Manifest, opts Options) (*Plan, error) {
	sourceHeight := m.Mezzanine.Height
	if sourceHeight < minSourceHeight {
		return nil, services.Wrap(services.ErrInput, "ladder", "build",
			fmt.Sprintf("source is %dp", sourceHeight), ErrUnsupportedResolution)
	}

	plan := &Plan{SegmentSeconds: 6}

	// Renditions never upscale: tiers above the source height are skipped.
	for _, t := range h264Tiers {
		if t.height > sourceHeight {
			continue
		}
		plan.Video = append(plan.Video, newRendition(CodecH264, t))
	}
	if opts.EnableHEVC {
		floor := opts.HEVCMinHeight
		for _, t := range hevcTiers {
			if t.height > sourceHeight || t.height < floor {
				continue
			}
			plan.Video = append(plan.Video, newRendition(CodecHEVC, t))
		}
	}

	for _, track := range m.AudioTracks {
		code, err := LanguageCode(track.Language)
		if err != nil {
			return nil, services.Wrap(services.ErrInput, "ladder", "build", "audio language", err)
		}
		label := track.Label
		if label == "" {
			label = track.Language
		}
		plan.Audio = append(plan.Audio, AudioRendition{
			Language:     track.Language,
			LanguageCode: code,
			Label:        label,
			Default:      track.Default,
			Channels:     track.Channels,
			Codec:        "aac",
			BitrateKbps:  128,
			SampleRate:   48000,
		})
	}

	plan.Formats = []PackageFormat{FormatHLS}
	if opts.EnableDASH {
		plan.Formats = append(plan.Formats, FormatDASH)
	}

	return plan, nil
}

func newRendition(codec Codec, t tier) VideoRendition {
	return VideoRendition{
		Codec:        codec,
		CodecProfile: t.codecProfile,
		CodecLevel:   t.codecLevel,
		Width:        t.width,
		Height:       t.height,
		TargetKbps:   t.targetKbps,
		MaxKbps:      int(float64(t.targetKbps) * maxBitrateFactor),
		QualityLevel: qvbrQuality,
		NameModifier: fmt.Sprintf("_%s_%dp", codec, t.height),
	}
}
