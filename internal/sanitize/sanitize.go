// Package sanitize cleans free text before it is stored with an outcome.
// Anything that looks like an agent transcript or tool dump is replaced
// with a fixed placeholder.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Length caps, in runes.
const (
	MaxAgentNoteLength = 280
	MaxRationaleLength = 500
	MaxSummaryLength   = 1000
)

// Placeholder replaces suppressed text.
const Placeholder = "[agent note suppressed]"

var (
	roleMarker   = regexp.MustCompile(`(?i)(^|[\s"'\[{(])(user|assistant|system|tool|human)\s*:`)
	stackTrace   = regexp.MustCompile(`(?i)(goroutine \d+ \[|\bpanic:|traceback \(most recent call last\)|\bat [\w.$]+\([\w.]+:\d+\)|\.go:\d+)`)
	toolCallJSON = regexp.MustCompile(`(?i)"(tool_calls?|tool_use|tool_name|function_call|arguments)"\s*:`)
)

// AgentNote cleans a note shown next to an outcome.
func AgentNote(s string) string {
	return clean(s, MaxAgentNoteLength)
}

// Rationale cleans a decision rationale.
func Rationale(s string) string {
	return clean(s, MaxRationaleLength)
}

// Summary cleans a longer summary field.
func Summary(s string) string {
	return clean(s, MaxSummaryLength)
}

// IsTranscriptLike reports whether s looks like a transcript or tool dump.
func IsTranscriptLike(s string) bool {
	s = strings.TrimSpace(s)
	switch {
	case strings.ContainsAny(s, "\r\n"):
		return true
	case strings.Contains(s, "```"):
		return true
	case roleMarker.MatchString(s):
		return true
	case stackTrace.MatchString(s):
		return true
	case toolCallJSON.MatchString(s):
		return true
	}
	return false
}

func clean(s string, limit int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if IsTranscriptLike(s) {
		return Placeholder
	}
	return truncate(strings.Join(strings.Fields(s), " "), limit)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit]))
}
