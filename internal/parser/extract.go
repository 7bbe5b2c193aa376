package parser

import (
	"regexp"
	"strings"
)

// FallbackDescription is used when no strategy finds context for a task.
const FallbackDescription = "Work on task"

// DescriptionExtractor derives a description for taskID from message.
// It returns "" when it has nothing to offer, letting the next strategy run.
type DescriptionExtractor interface {
	Extract(message, taskID string) string
}

// PatternExtractor captures the first submatch of a case-insensitive pattern
// built around the quoted task identifier.
type PatternExtractor struct {
	// Build returns the pattern source for a regexp-quoted task identifier.
	Build func(quotedID string) string
}

// Extract implements DescriptionExtractor.
func (p PatternExtractor) Extract(message, taskID string) string {
	re, err := regexp.Compile(`(?i)` + p.Build(regexp.QuoteMeta(taskID)))
	if err != nil {
		return ""
	}
	m := re.FindStringSubmatch(message)
	if len(m) < 2 {
		return ""
	}
	return stripID(m[1], taskID)
}

// WindowExtractor takes the words surrounding the first token that contains
// the task identifier.
type WindowExtractor struct {
	Radius int
}

// Extract implements DescriptionExtractor.
func (w WindowExtractor) Extract(message, taskID string) string {
	words := strings.Fields(message)
	for i, word := range words {
		if !strings.Contains(word, taskID) {
			continue
		}
		lo := max(0, i-w.Radius)
		hi := min(len(words), i+w.Radius+1)
		return stripID(strings.Join(words[lo:hi], " "), taskID)
	}
	return ""
}

// DefaultExtractors returns the standard chain: text following the
// identifier up to the next period, the same after "working on", the same
// after a following "for", then a three-word window.
func DefaultExtractors() []DescriptionExtractor {
	return []DescriptionExtractor{
		PatternExtractor{Build: func(id string) string {
			return id + `[:\s-]*(.+?)(?:\.|$)`
		}},
		PatternExtractor{Build: func(id string) string {
			return `working on\s+` + id + `[:\s-]*(.+?)(?:\.|$)`
		}},
		PatternExtractor{Build: func(id string) string {
			return id + `.*?for.*?(.+?)(?:\.|$)`
		}},
		WindowExtractor{Radius: 3},
	}
}

func stripID(s, taskID string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, taskID, ""))
}
