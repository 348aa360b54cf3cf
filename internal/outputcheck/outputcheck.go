// Package outputcheck proves that an encoder-declared success actually
// produced a structurally valid, duration-correct streaming package. Every
// check runs and every violation is recorded, so one validation pass gives
// operators the full picture instead of the first failure.
package outputcheck

import (
	"errors"
	"fmt"
	"math"
	"path"
	"strings"

	"mezzpress/internal/objectstore"
)

// Result is the immutable outcome of one output inspection.
type Result struct {
	IsValid              bool
	DurationDeltaSeconds float64
	// MissingSegments lists referenced playlists or segment files absent
	// from the output store, and playlists with an empty segment list.
	MissingSegments []string
	// MalformedManifests lists structural failures: unparseable playlists,
	// broken MPD documents, missing top-level manifests, duration drift.
	MalformedManifests []string
}

// Options tunes the validation policy.
type Options struct {
	// ExpectDASH requires a well-formed MPD manifest in the output set.
	ExpectDASH bool
	// ToleranceSeconds is the allowed absolute duration drift.
	ToleranceSeconds float64
}

// Validator inspects encoder output trees.
type Validator struct {
	outputs *objectstore.Store
	opts    Options
}

// New returns a validator reading from the given output store.
func New(outputs *objectstore.Store, opts Options) *Validator {
	return &Validator{outputs: outputs, opts: opts}
}

// Validate inspects the output set under prefix against the expected content
// duration. It never fails fast: all checks contribute to the result. A
// non-positive expected duration skips the drift check and validates
// structure only.
func (v *Validator) Validate(prefix string, expectedDurationSeconds float64) (Result, error) {
	files, err := v.outputs.List(prefix)
	if err != nil {
		return Result{}, fmt.Errorf("list outputs: %w", err)
	}

	result := Result{}
	fileSet := make(map[string]struct{}, len(files))
	for _, f := range files {
		fileSet[f] = struct{}{}
	}

	hlsDuration := v.checkHLS(prefix, files, fileSet, &result)

	var dashDuration float64
	dashDurationKnown := false
	if v.opts.ExpectDASH {
		dashDuration, dashDurationKnown = v.checkDASH(prefix, files, &result)
	}

	if expectedDurationSeconds > 0 {
		// The MPD's declared presentation duration is authoritative when
		// available; segment sums carry per-segment rounding.
		switch {
		case dashDurationKnown:
			result.DurationDeltaSeconds = dashDuration - expectedDurationSeconds
		case hlsDuration > 0:
			result.DurationDeltaSeconds = hlsDuration - expectedDurationSeconds
		default:
			result.MalformedManifests = append(result.MalformedManifests, "output duration could not be determined")
		}
		if math.Abs(result.DurationDeltaSeconds) > v.opts.ToleranceSeconds {
			result.MalformedManifests = append(result.MalformedManifests,
				fmt.Sprintf("duration drift %.2fs exceeds tolerance %.2fs", result.DurationDeltaSeconds, v.opts.ToleranceSeconds))
		}
	}

	result.IsValid = len(result.MissingSegments) == 0 && len(result.MalformedManifests) == 0
	return result, nil
}

// checkHLS validates the master playlist and every variant it references,
// returning the longest variant duration found.
func (v *Validator) checkHLS(prefix string, files []string, fileSet map[string]struct{}, result *Result) float64 {
	masterPath := findMaster(files)
	if masterPath == "" {
		result.MalformedManifests = append(result.MalformedManifests, "no HLS master playlist found under "+prefix)
		return 0
	}

	content, err := v.outputs.ReadFile(masterPath)
	if err != nil {
		result.MalformedManifests = append(result.MalformedManifests, fmt.Sprintf("%s: %v", masterPath, err))
		return 0
	}
	master, err := parseMaster(string(content))
	if err != nil {
		result.MalformedManifests = append(result.MalformedManifests, fmt.Sprintf("%s: %v", masterPath, err))
		return 0
	}
	if len(master.VariantURIs) == 0 {
		result.MalformedManifests = append(result.MalformedManifests, masterPath+": no variant streams")
		return 0
	}

	baseDir := path.Dir(masterPath)
	longest := 0.0
	for _, uri := range master.VariantURIs {
		variantPath := path.Join(baseDir, uri)
		data, err := v.outputs.ReadFile(variantPath)
		if err != nil {
			if errors.Is(err, objectstore.ErrNotFound) {
				result.MissingSegments = append(result.MissingSegments, variantPath)
				continue
			}
			result.MalformedManifests = append(result.MalformedManifests, fmt.Sprintf("%s: %v", variantPath, err))
			continue
		}
		media, err := parseMedia(string(data))
		if err != nil {
			result.MalformedManifests = append(result.MalformedManifests, fmt.Sprintf("%s: %v", variantPath, err))
			continue
		}
		if len(media.SegmentURIs) == 0 {
			result.MissingSegments = append(result.MissingSegments, variantPath+": empty segment list")
			continue
		}
		variantDir := path.Dir(variantPath)
		for _, segment := range media.SegmentURIs {
			segmentPath := path.Join(variantDir, segment)
			if _, ok := fileSet[segmentPath]; !ok {
				result.MissingSegments = append(result.MissingSegments, segmentPath)
			}
		}
		if media.DurationSeconds > longest {
			longest = media.DurationSeconds
		}
	}
	return longest
}

// checkDASH validates the MPD manifest and returns its declared presentation
// duration when parseable.
func (v *Validator) checkDASH(prefix string, files []string, result *Result) (float64, bool) {
	mpdPath := ""
	for _, f := range files {
		if strings.HasSuffix(f, ".mpd") {
			mpdPath = f
			break
		}
	}
	if mpdPath == "" {
		result.MalformedManifests = append(result.MalformedManifests, "no DASH manifest found under "+prefix)
		return 0, false
	}

	content, err := v.outputs.ReadFile(mpdPath)
	if err != nil {
		result.MalformedManifests = append(result.MalformedManifests, fmt.Sprintf("%s: %v", mpdPath, err))
		return 0, false
	}
	doc, err := parseMPD(content)
	if err != nil {
		result.MalformedManifests = append(result.MalformedManifests, fmt.Sprintf("%s: %v", mpdPath, err))
		return 0, false
	}
	if doc.MediaPresentationDuration == "" {
		return 0, false
	}
	seconds, err := ParseISODuration(doc.MediaPresentationDuration)
	if err != nil {
		result.MalformedManifests = append(result.MalformedManifests, fmt.Sprintf("%s: %v", mpdPath, err))
		return 0, false
	}
	return seconds, true
}

// findMaster picks the top-level playlist: a name carrying "master" wins,
// otherwise the shortest .m3u8 path is assumed to be the entry point.
func findMaster(files []string) string {
	shortest := ""
	for _, f := range files {
		if !strings.HasSuffix(f, ".m3u8") {
			continue
		}
		if strings.Contains(strings.ToLower(path.Base(f)), "master") {
			return f
		}
		if shortest == "" || len(f) < len(shortest) {
			shortest = f
		}
	}
	return shortest
}
