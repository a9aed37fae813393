package llmtext

import (
	"regexp"
	"strings"
)

const maxKeyPoints = 7

var (
	keyPointsHeader = regexp.MustCompile(`(?im)^[ \t]*(?:#{1,6}[ \t]*)?\**[ \t]*key[ \t]+(?:points|takeaways)[ \t]*\**[ \t]*:?[ \t]*\**`)
	bulletPrefix    = regexp.MustCompile(`^(?:[-*•]+|\d{1,2}[.)])\s*`)
)

// SplitKeyPoints separates a "Key Points:" list from the summary body. Text
// without such a header is returned whole with no points.
func SplitKeyPoints(text string) (string, []string) {
	loc := keyPointsHeader.FindStringIndex(text)
	if loc == nil {
		return strings.TrimSpace(text), nil
	}
	summary := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(text[:loc[0]]), "#*"))
	points := make([]string, 0, maxKeyPoints)
	for _, line := range strings.Split(text[loc[1]:], "\n") {
		line = strings.TrimSpace(line)
		if !bulletPrefix.MatchString(line) {
			continue
		}
		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		line = strings.Trim(line, "*")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		points = append(points, line)
		if len(points) == maxKeyPoints {
			break
		}
	}
	if summary == "" {
		summary = strings.TrimSpace(text)
	}
	return summary, points
}
