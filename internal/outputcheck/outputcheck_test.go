package outputcheck_test

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"mezzpress/internal/objectstore"
	"mezzpress/internal/outputcheck"
	"mezzpress/internal/testsupport"
)

const outputPrefix = "series-1/S01E001/ep-0001"

// writeHLSOutput lays down a master playlist, one variant playlist whose
// EXTINF durations sum to totalSeconds, and the referenced segment files.
func writeHLSOutput(t *testing.T, root string, totalSeconds float64) {
	t.Helper()

	dir := filepath.Join(root, filepath.FromSlash(outputPrefix))
	testsupport.WriteText(t, filepath.Join(dir, "master.m3u8"), strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-VERSION:6",
		`#EXT-X-STREAM-INF:BANDWIDTH=6000000,RESOLUTION=1920x1080,CODECS="avc1.640029"`,
		"video_1080p.m3u8",
	}, "\n"))

	var variant strings.Builder
	variant.WriteString("#EXTM3U\n#EXT-X-VERSION:6\n#EXT-X-TARGETDURATION:6\n")
	remaining := totalSeconds
	idx := 0
	for remaining > 0 {
		seg := 6.0
		if remaining < seg {
			seg = remaining
		}
		fmt.Fprintf(&variant, "#EXTINF:%.3f,\nsegment_%05d.ts\n", seg, idx)
		testsupport.WriteText(t, filepath.Join(dir, fmt.Sprintf("segment_%05d.ts", idx)), "ts")
		remaining -= seg
		idx++
	}
	variant.WriteString("#EXT-X-ENDLIST\n")
	testsupport.WriteText(t, filepath.Join(dir, "video_1080p.m3u8"), variant.String())
}

func writeMPD(t *testing.T, root, duration string) {
	t.Helper()
	testsupport.WriteText(t, filepath.Join(root, filepath.FromSlash(outputPrefix), "manifest.mpd"), fmt.Sprintf(`<?xml version="1.0"?>
<MPD xmlns="urn:mpeg:dash:schema:mpd:2011" type="static" mediaPresentationDuration=%q>
  <Period>
    <AdaptationSet contentType="video" mimeType="video/mp4">
      <Representation id="v1080" bandwidth="6000000" width="1920" height="1080"/>
      <Representation id="v720" bandwidth="3500000" width="1280" height="720"/>
    </AdaptationSet>
    <AdaptationSet contentType="audio" mimeType="audio/mp4">
      <Representation id="a-en" bandwidth="128000"/>
    </AdaptationSet>
  </Period>
</MPD>`, duration))
}

func newValidator(root string, expectDASH bool) *outputcheck.Validator {
	return outputcheck.New(objectstore.New(root), outputcheck.Options{
		ExpectDASH:       expectDASH,
		ToleranceSeconds: 0.5,
	})
}

func TestValidateAcceptsDurationWithinTolerance(t *testing.T) {
	root := t.TempDir()
	writeHLSOutput(t, root, 1440.0)

	result, err := newValidator(root, false).Validate(outputPrefix, 1440.2)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("expected valid output, got %+v", result)
	}
	if math.Abs(result.DurationDeltaSeconds+0.2) > 0.01 {
		t.Fatalf("unexpected delta %v", result.DurationDeltaSeconds)
	}
}

func TestValidateReportsDurationDrift(t *testing.T) {
	root := t.TempDir()
	writeHLSOutput(t, root, 1440.0)

	result, err := newValidator(root, false).Validate(outputPrefix, 1200.0)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.IsValid {
		t.Fatal("expected invalid output")
	}
	if math.Abs(result.DurationDeltaSeconds-240.0) > 0.01 {
		t.Fatalf("expected delta near 240, got %v", result.DurationDeltaSeconds)
	}
	if len(result.MalformedManifests) != 1 || !strings.Contains(result.MalformedManifests[0], "duration drift") {
		t.Fatalf("expected one drift finding, got %v", result.MalformedManifests)
	}
}

func TestValidatePrefersDASHDuration(t *testing.T) {
	root := t.TempDir()
	writeHLSOutput(t, root, 1439.0)
	writeMPD(t, root, "PT24M0.2S")

	result, err := newValidator(root, true).Validate(outputPrefix, 1440.2)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("expected valid output, got %+v", result)
	}
	// 24m0.2s = 1440.2s exactly; the HLS sum of 1439.0 must not be used.
	if math.Abs(result.DurationDeltaSeconds) > 0.01 {
		t.Fatalf("expected zero delta from MPD duration, got %v", result.DurationDeltaSeconds)
	}
}

func TestValidateRecordsAllFailures(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, filepath.FromSlash(outputPrefix))

	// Master references two variants: one missing entirely, one present but
	// referencing a segment that never landed. DASH is requested but absent.
	testsupport.WriteText(t, filepath.Join(dir, "master.m3u8"), strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-STREAM-INF:BANDWIDTH=6000000,RESOLUTION=1920x1080",
		"video_1080p.m3u8",
		"#EXT-X-STREAM-INF:BANDWIDTH=3500000,RESOLUTION=1280x720",
		"video_720p.m3u8",
	}, "\n"))
	testsupport.WriteText(t, filepath.Join(dir, "video_1080p.m3u8"), strings.Join([]string{
		"#EXTM3U",
		"#EXTINF:6.000,",
		"segment_00000.ts",
		"#EXT-X-ENDLIST",
	}, "\n"))

	result, err := newValidator(root, true).Validate(outputPrefix, 6.0)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.IsValid {
		t.Fatal("expected invalid output")
	}

	wantMissing := []string{
		outputPrefix + "/video_720p.m3u8",
		outputPrefix + "/segment_00000.ts",
	}
	for _, want := range wantMissing {
		found := false
		for _, got := range result.MissingSegments {
			if got == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("missing segments %v should include %s", result.MissingSegments, want)
		}
	}

	dashRecorded := false
	for _, m := range result.MalformedManifests {
		if strings.Contains(m, "no DASH manifest") {
			dashRecorded = true
		}
	}
	if !dashRecorded {
		t.Fatalf("expected DASH absence recorded, got %v", result.MalformedManifests)
	}
}

func TestValidateRejectsStructuralProblems(t *testing.T) {
	tests := []struct {
		name    string
		seedHLS bool
		files   map[string]string
		wantSub string
	}{
		{
			name:    "empty output tree",
			wantSub: "no HLS master playlist",
		},
		{
			name: "master without header",
			files: map[string]string{
				"master.m3u8": "#EXT-X-STREAM-INF:BANDWIDTH=1\nvideo.m3u8\n",
			},
			wantSub: "missing #EXTM3U header",
		},
		{
			name: "master without variants",
			files: map[string]string{
				"master.m3u8": "#EXTM3U\n#EXT-X-VERSION:6\n",
			},
			wantSub: "no variant streams",
		},
		{
			name: "variant with empty segment list",
			files: map[string]string{
				"master.m3u8":      "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1\nvideo_1080p.m3u8\n",
				"video_1080p.m3u8": "#EXTM3U\n#EXT-X-ENDLIST\n",
			},
		},
		{
			name:    "broken mpd xml",
			seedHLS: true,
			files: map[string]string{
				"manifest.mpd": "<MPD><Period>",
			},
			wantSub: "invalid XML",
		},
		{
			name:    "mpd without representations",
			seedHLS: true,
			files: map[string]string{
				"manifest.mpd": `<MPD xmlns="urn:mpeg:dash:schema:mpd:2011"><Period><AdaptationSet contentType="video"/></Period></MPD>`,
			},
			wantSub: "no Representation elements",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			if tt.seedHLS {
				writeHLSOutput(t, root, 60.0)
			}
			dir := filepath.Join(root, filepath.FromSlash(outputPrefix))
			for name, content := range tt.files {
				testsupport.WriteText(t, filepath.Join(dir, name), content)
			}

			result, err := newValidator(root, true).Validate(outputPrefix, 60.0)
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			if result.IsValid {
				t.Fatal("expected invalid output")
			}
			if tt.wantSub == "" {
				if len(result.MissingSegments) == 0 {
					t.Fatalf("expected missing segment finding, got %+v", result)
				}
				return
			}
			joined := strings.Join(result.MalformedManifests, " | ")
			if !strings.Contains(joined, tt.wantSub) {
				t.Fatalf("findings %q missing %q", joined, tt.wantSub)
			}
		})
	}
}

func TestParseISODurations(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"PT1H30M45.5S", 5445.5},
		{"PT24M0.5S", 1440.5},
		{"PT90S", 90},
		{"PT2H", 7200},
	}
	for _, tt := range tests {
		got, err := outputcheck.ParseISODuration(tt.in)
		if err != nil {
			t.Fatalf("ParseISODuration(%q): %v", tt.in, err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("ParseISODuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"", "24m", "P1D", "PTXS"} {
		if _, err := outputcheck.ParseISODuration(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
