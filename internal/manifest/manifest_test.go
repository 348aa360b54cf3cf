package manifest_test

import (
	"errors"
	"strings"
	"testing"

	"mezzpress/internal/manifest"
	"mezzpress/internal/services"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<TranscodeManifest version="1.0">
  <ManifestId>aot-s01e01-transcode</ManifestId>
  <Episode>
    <SeriesId>attack-on-titan</SeriesId>
    <SeriesTitle>Attack on Titan</SeriesTitle>
    <SeasonNumber>1</SeasonNumber>
    <EpisodeNumber>1</EpisodeNumber>
    <EpisodeTitle>To You, in 2000 Years</EpisodeTitle>
    <DurationSeconds>1440.2</DurationSeconds>
  </Episode>
  <Mezzanine>
    <FilePath>attack-on-titan/s01e01/mezzanine.mov</FilePath>
    <ChecksumMd5>D41D8CD98F00B204E9800998ECF8427E</ChecksumMd5>
    <FileSizeBytes>32212254720</FileSizeBytes>
    <DurationSeconds>1440.0</DurationSeconds>
    <VideoCodec>ProRes 422 HQ</VideoCodec>
    <AudioCodec>PCM</AudioCodec>
    <ResolutionWidth>1920</ResolutionWidth>
    <ResolutionHeight>1080</ResolutionHeight>
    <FrameRate>23.976</FrameRate>
  </Mezzanine>
  <AudioTracks>
    <Track>
      <Language>ja-JP</Language>
      <Label>Japanese</Label>
      <Default>true</Default>
      <Channels>2</Channels>
    </Track>
    <Track>
      <Language>en</Language>
      <Label>English Dub</Label>
      <Default>false</Default>
      <Channels>6</Channels>
    </Track>
  </AudioTracks>
</TranscodeManifest>`

func parseSample(t *testing.T, xml string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse([]byte(xml), 1.0)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return m
}

func TestParseNormalizesFields(t *testing.T) {
	m := parseSample(t, sampleXML)

	if m.ManifestID != "aot-s01e01-transcode" {
		t.Fatalf("unexpected manifest id %q", m.ManifestID)
	}
	if m.Mezzanine.ChecksumMD5 != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Fatalf("expected lower-cased checksum, got %q", m.Mezzanine.ChecksumMD5)
	}
	langs := m.AudioLanguages()
	if len(langs) != 2 || langs[0] != "ja" || langs[1] != "en" {
		t.Fatalf("expected normalized base language codes, got %v", langs)
	}
	if m.EpisodeCode() != "S01E001" {
		t.Fatalf("unexpected episode code %q", m.EpisodeCode())
	}
	if m.OutputPrefix() != "attack-on-titan/S01E001/aot-s01e01-transcode" {
		t.Fatalf("unexpected output prefix %q", m.OutputPrefix())
	}
}

func TestWorkUnitIsNormalized(t *testing.T) {
	m := parseSample(t, sampleXML)
	unit := m.WorkUnit("v1.0")

	if len(unit.AudioLanguages) != 2 || unit.AudioLanguages[0] != "en" || unit.AudioLanguages[1] != "ja" {
		t.Fatalf("expected sorted languages, got %v", unit.AudioLanguages)
	}
	if unit.ContentSize != 32212254720 {
		t.Fatalf("unexpected content size %d", unit.ContentSize)
	}
	if unit.ProfileVersion != "v1.0" {
		t.Fatalf("unexpected profile version %q", unit.ProfileVersion)
	}
}

func TestParseRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(string) string
		message string
	}{
		{
			name:    "malformed xml",
			mutate:  func(s string) string { return s[:len(s)/2] },
			message: "invalid XML",
		},
		{
			name:    "bad checksum",
			mutate:  func(s string) string { return strings.Replace(s, "D41D8CD98F00B204E9800998ECF8427E", "nothex", 1) },
			message: "ChecksumMd5",
		},
		{
			name:    "duration drift",
			mutate:  func(s string) string { return strings.Replace(s, "<DurationSeconds>1440.2<", "<DurationSeconds>1500.0<", 1) },
			message: "does not match",
		},
		{
			name:    "no default audio",
			mutate:  func(s string) string { return strings.Replace(s, "<Default>true</Default>", "<Default>false</Default>", 1) },
			message: "default",
		},
		{
			name:    "no audio tracks",
			mutate:  func(s string) string { return regexpReplaceTracks(s) },
			message: "audio track",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := manifest.Parse([]byte(tc.mutate(sampleXML)), 1.0)
			if err == nil {
				t.Fatal("expected parse error")
			}
			if !errors.Is(err, services.ErrInput) {
				t.Fatalf("expected input error classification, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.message) {
				t.Fatalf("expected error to mention %q, got %v", tc.message, err)
			}
		})
	}
}

func regexpReplaceTracks(s string) string {
	start := strings.Index(s, "<AudioTracks>")
	end := strings.Index(s, "</AudioTracks>")
	return s[:start] + "<AudioTracks></AudioTracks>" + s[end+len("</AudioTracks>"):]
}
