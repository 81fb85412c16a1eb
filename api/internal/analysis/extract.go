package analysis

import (
	"regexp"
	"strings"
)

// Open fence must be labeled json; the block ends at the first closing fence after it
// or at end of text when the model forgot to close it.
var jsonFenceRe = regexp.MustCompile("(?is)```json(.*?)(?:```|$)")

// ExtractJSON returns the best JSON candidate from raw model output.
// Only the first ```json block is considered. Without one the trimmed input is returned as is.
// It never fails: decoding errors surface later in ParseResult.
func ExtractJSON(raw string) string {
	m := jsonFenceRe.FindStringSubmatchIndex(raw)
	if m == nil || len(m) < 4 || m[2] < 0 {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(raw[m[2]:m[3]])
}
