// Package youtube recognizes YouTube URLs and extracts the 11-character
// video id from them.
package youtube

import "regexp"

var (
	validRe  = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com/((watch\?v=)|shorts/)|youtu\.be/)`)
	shortsRe = regexp.MustCompile(`youtube\.com/shorts/([^"&?/\s]{11})`)
	watchRe  = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)
)

// ValidURL reports whether raw looks like a YouTube watch, shorts or
// youtu.be link. It is a cheap submission-time gate; ExtractVideoID is the
// authoritative check.
func ValidURL(raw string) bool {
	return validRe.MatchString(raw)
}

// ExtractVideoID returns the 11-character video id embedded in raw, or ""
// when none can be found. The same URL always yields the same id.
func ExtractVideoID(raw string) string {
	var re *regexp.Regexp
	if shortsRe.MatchString(raw) {
		re = shortsRe
	} else {
		re = watchRe
	}
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return m[1]
}
