package ladder

import (
	"fmt"
	"sort"
	"strings"
)

// iso639TwoToThree maps ISO 639-1 base tags to the ISO 639-2/T codes the
// encoder's audio descriptions require.
var iso639TwoToThree = map[string]string{
	"en": "ENG",
	"ja": "JPN",
	"es": "SPA",
	"fr": "FRA",
	"de": "DEU",
	"it": "ITA",
	"pt": "POR",
	"ru": "RUS",
	"zh": "ZHO",
	"ko": "KOR",
	"ar": "ARA",
	"hi": "HIN",
	"th": "THA",
	"vi": "VIE",
	"id": "IND",
	"ms": "MSA",
	"tl": "TGL",
	"pl": "POL",
	"nl": "NLD",
	"tr": "TUR",
	"sv": "SWE",
	"da": "DAN",
	"no": "NOR",
	"fi": "FIN",
	"cs": "CES",
	"hu": "HUN",
	"ro": "RON",
	"el": "ELL",
	"he": "HEB",
	"uk": "UKR",
}

// LanguageCode converts an ISO 639-1 tag, optionally with a region suffix
// like "en-US", into its three-letter ISO 639-2 form.
func LanguageCode(tag string) (string, error) {
	base := strings.ToLower(strings.TrimSpace(tag))
	if idx := strings.IndexAny(base, "-_"); idx > 0 {
		base = base[:idx]
	}
	code, ok := iso639TwoToThree[base]
	if !ok {
		return "", fmt.Errorf("unsupported language %q, supported: %s", tag, strings.Join(SupportedLanguages(), ", "))
	}
	return code, nil
}

// SupportedLanguages lists the accepted ISO 639-1 tags in sorted order.
func SupportedLanguages() []string {
	langs := make([]string, 0, len(iso639TwoToThree))
	for lang := range iso639TwoToThree {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
