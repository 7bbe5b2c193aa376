package inbox

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/ticktock/internal/models"
)

// Message is the parsed content of an inbox file.
type Message struct {
	Date string
	Body string
}

type frontMatter struct {
	Date string `yaml:"date"`
}

// ParseMessage reads optional YAML front matter carrying the entry date:
//
//	---
//	date: 2024-01-15
//	---
//	Worked on ABC-123 for 2 hours
//
// Without a date the local calendar day of modTime is used. A date that is
// present but malformed is an error.
func ParseMessage(data []byte, modTime time.Time) (Message, error) {
	fm, body := splitFrontMatter(data)

	date := strings.TrimSpace(fm.Date)
	if date == "" {
		date = modTime.Local().Format(models.DateLayout)
	} else if _, err := time.Parse(models.DateLayout, date); err != nil {
		return Message{}, fmt.Errorf("inbox: front matter date %q: %w", date, err)
	}

	return Message{Date: date, Body: strings.TrimSpace(body)}, nil
}

// splitFrontMatter separates a leading --- delimited YAML block from the
// body. Missing or unreadable front matter leaves the whole input as body.
func splitFrontMatter(data []byte) (frontMatter, string) {
	const delim = "---"
	var fm frontMatter
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return fm, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return fm, string(data)
	}

	block := rest[:idx]
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")

	if err := yaml.Unmarshal(block, &fm); err != nil {
		return frontMatter{}, string(data)
	}
	return fm, body
}
