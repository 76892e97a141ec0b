// Package parser reads and writes Markdown notes with a YAML frontmatter
// header.
package parser

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const delim = "---"

// Frontmatter is the metadata header of a note file.
type Frontmatter struct {
	ID      string    `yaml:"id,omitempty"`
	Title   string    `yaml:"title"`
	Tags    []string  `yaml:"tags,omitempty"`
	Folder  string    `yaml:"folder,omitempty"`
	Created time.Time `yaml:"created,omitempty"`
	Updated time.Time `yaml:"updated,omitempty"`
}

// Document is a parsed note file.
type Document struct {
	Meta Frontmatter
	Body string
	// HasFrontmatter is false when the file had no valid header.
	HasFrontmatter bool
}

// Parse splits data into frontmatter and body. Files without a header, or
// with a header that is not valid YAML, are treated as body only. When the
// header carries no title the first H1 heading is used.
func Parse(data []byte) Document {
	doc := splitFrontmatter(data)
	if doc.Meta.Title == "" {
		doc.Meta.Title = firstHeading(doc.Body)
	}
	return doc
}

func splitFrontmatter(data []byte) Document {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return Document{Body: string(data)}
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return Document{Body: string(data)}
	}

	var fm Frontmatter
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return Document{Body: string(data)}
	}

	// The body starts on the line after the closing delimiter.
	body := string(rest[idx+1+len(delim):])
	body = strings.TrimPrefix(body, "\r")
	body = strings.TrimPrefix(body, "\n")
	return Document{Meta: fm, Body: body, HasFrontmatter: true}
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// Render encodes doc as a header followed by the body.
func Render(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc.Meta); err != nil {
		return nil, fmt.Errorf("parser: encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("parser: encode frontmatter: %w", err)
	}
	buf.WriteString(delim + "\n")
	buf.WriteString(doc.Body)
	return buf.Bytes(), nil
}
