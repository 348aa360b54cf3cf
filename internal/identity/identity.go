package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrMalformedWorkUnit marks WorkUnits that cannot be hashed into a key.
var ErrMalformedWorkUnit = errors.New("malformed work unit")

var checksumPattern = regexp.MustCompile(`^[a-f0-9]{32,64}$`)

// WorkUnit is one (content, encoding profile) pair eligible for transcoding.
// Fields feed the idempotency key, so every one of them must be stable for a
// given source: same manifest, same bytes, same audio layout, same profile.
type WorkUnit struct {
	ManifestID      string
	ContentChecksum string
	ContentSize     int64
	AudioLanguages  []string
	ProfileVersion  string
}

// Key is the deterministic digest identifying a WorkUnit.
type Key string

// String returns the hex form of the key.
func (k Key) String() string { return string(k) }

// Short returns a truncated key suitable for log lines.
func (k Key) Short() string {
	if len(k) <= 16 {
		return string(k)
	}
	return string(k[:16])
}

// Normalize returns a copy of the WorkUnit with the checksum lower-cased and
// the audio languages sorted. Derive requires normalized input; callers that
// assemble WorkUnits from external data should normalize first.
func (w WorkUnit) Normalize() WorkUnit {
	normalized := w
	normalized.ManifestID = strings.TrimSpace(w.ManifestID)
	normalized.ContentChecksum = strings.ToLower(strings.TrimSpace(w.ContentChecksum))
	normalized.ProfileVersion = strings.TrimSpace(w.ProfileVersion)
	normalized.AudioLanguages = make([]string, 0, len(w.AudioLanguages))
	for _, lang := range w.AudioLanguages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" {
			continue
		}
		normalized.AudioLanguages = append(normalized.AudioLanguages, lang)
	}
	sort.Strings(normalized.AudioLanguages)
	return normalized
}

// Derive computes the idempotency key for a normalized WorkUnit. It is a pure
// function: identical tuples always produce identical keys.
func Derive(unit WorkUnit) (Key, error) {
	if err := validate(unit); err != nil {
		return "", err
	}

	components := []string{
		unit.ManifestID,
		unit.ContentChecksum,
		fmt.Sprintf("%d", unit.ContentSize),
		"[" + strings.Join(unit.AudioLanguages, " ") + "]",
		unit.ProfileVersion,
	}

	sum := sha256.Sum256([]byte(strings.Join(components, "|")))
	return Key(hex.EncodeToString(sum[:])), nil
}

func validate(unit WorkUnit) error {
	if strings.TrimSpace(unit.ManifestID) == "" {
		return fmt.Errorf("%w: manifest id is empty", ErrMalformedWorkUnit)
	}
	if unit.ContentChecksum == "" {
		return fmt.Errorf("%w: content checksum is empty", ErrMalformedWorkUnit)
	}
	if !checksumPattern.MatchString(unit.ContentChecksum) {
		return fmt.Errorf("%w: content checksum %q is not lower-cased hex", ErrMalformedWorkUnit, unit.ContentChecksum)
	}
	if unit.ContentSize <= 0 {
		return fmt.Errorf("%w: content size must be positive, got %d", ErrMalformedWorkUnit, unit.ContentSize)
	}
	if strings.TrimSpace(unit.ProfileVersion) == "" {
		return fmt.Errorf("%w: profile version is empty", ErrMalformedWorkUnit)
	}
	if !sort.StringsAreSorted(unit.AudioLanguages) {
		return fmt.Errorf("%w: audio languages are not sorted", ErrMalformedWorkUnit)
	}
	return nil
}
