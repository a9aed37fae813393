// Package llmtext cleans raw model output and recovers structured results
// from it. Nothing in this package returns an error: unrecognized input passes
// through unchanged or degrades to a fallback value.
package llmtext

import (
	"encoding/json"
	"regexp"
	"strings"
)

const fence = "```"

var reasoningBlock = regexp.MustCompile(`(?is)<think>.*?</think>`)

// preambles are matched case-insensitively at the start of the text only.
var preambles = []string{
	"okay, here is the json:",
	"okay, here's the json:",
	"ok, here is the json:",
	"here is the json:",
	"here's the json:",
	"here is the json output:",
	"here is the json response:",
	"sure, here is the json:",
	"okay, here is the summary:",
	"okay, here's the summary:",
	"here is the summary:",
	"here's the summary:",
	"here is a summary of the paper:",
	"here's a summary of the paper:",
	"sure, here is the summary:",
	"here is the response:",
	"here are the project suggestions:",
	"summary:",
}

// Sanitize removes reasoning segments, isolates a JSON payload when expectJSON
// is set, strips conversational preambles and trims whitespace. Every step
// shortens the text or leaves it unchanged, and steps are repeated until
// nothing changes, so Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(raw string, expectJSON bool) string {
	out := raw
	for {
		next := sanitizeOnce(out, expectJSON)
		if next == out {
			return out
		}
		out = next
	}
}

func sanitizeOnce(s string, expectJSON bool) string {
	s = StripReasoning(s)
	if expectJSON {
		s = IsolateJSON(s)
	}
	s = StripPreamble(s)
	return strings.TrimSpace(s)
}

// StripReasoning drops every <think>...</think> segment including content.
func StripReasoning(s string) string {
	return reasoningBlock.ReplaceAllString(s, "")
}

// IsolateJSON returns the body of the first ```json fenced block, else of
// the first untagged fence, else the first top-level {...} object or list of
// objects that is valid JSON. Text without any of these is returned unchanged.
func IsolateJSON(s string) string {
	if body, ok := fencedJSON(s); ok {
		return body
	}
	if span, ok := firstJSONSpan(s); ok {
		return span
	}
	return s
}

type fencedBlock struct {
	tag  string
	body string
}

// fencedBlocks pairs ``` markers in order. The tag is the info string on the
// opening line; a fence closed on its own line has no tag.
func fencedBlocks(s string) []fencedBlock {
	var out []fencedBlock
	for {
		open := strings.Index(s, fence)
		if open < 0 {
			return out
		}
		rest := s[open+len(fence):]
		end := strings.Index(rest, fence)
		if end < 0 {
			return out
		}
		inner := rest[:end]
		b := fencedBlock{body: inner}
		if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
			b.tag = strings.TrimSpace(inner[:nl])
			b.body = inner[nl+1:]
		} else if len(inner) >= 4 && strings.EqualFold(inner[:4], "json") {
			b.tag = inner[:4]
			b.body = inner[4:]
		}
		out = append(out, b)
		s = rest[end+len(fence):]
	}
}

// fencedJSON prefers a json-tagged fence and accepts an untagged one. Fences
// tagged with another language are never used.
func fencedJSON(s string) (string, bool) {
	blocks := fencedBlocks(s)
	for _, b := range blocks {
		if strings.EqualFold(b.tag, "json") {
			return b.body, true
		}
	}
	for _, b := range blocks {
		if b.tag == "" {
			return b.body, true
		}
	}
	return "", false
}

// StripPreamble removes one known conversational lead-in.
func StripPreamble(s string) string {
	trimmed := strings.TrimLeft(s, " \t\r\n")
	lower := strings.ToLower(trimmed)
	for _, p := range preambles {
		if strings.HasPrefix(lower, p) {
			return trimmed[len(p):]
		}
	}
	return s
}

// firstJSONSpan scans top-level bracket spans only. Spans that are not valid
// JSON or are lists of non-objects, such as a citation "[1]", are skipped as a
// whole. An unterminated span ends the scan: everything after it is nested
// inside truncated output.
func firstJSONSpan(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		end, ok := matchBracket(s, i)
		if !ok {
			return "", false
		}
		span := s[i : end+1]
		if objectLed(span) && json.Valid([]byte(span)) {
			return span, true
		}
		i = end
	}
	return "", false
}

// objectLed reports whether span is an object or a list whose first element
// is an object.
func objectLed(span string) bool {
	if span[0] == '{' {
		return true
	}
	inner := strings.TrimLeft(span[1:], " \t\r\n")
	return strings.HasPrefix(inner, "{")
}

// matchBracket finds the index closing the bracket at start, skipping
// brackets inside JSON strings.
func matchBracket(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
