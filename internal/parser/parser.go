// Package parser extracts frontmatter metadata and tags from Markdown
// content. The resulting metadata map is the sole input to rule matching.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Tags        []string
}

// Parse extracts frontmatter and tags from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)
	tags := extractTags(body, fm)

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Tags:        tags,
	}, nil
}

// Metadata returns the frontmatter map with inline body tags merged into
// the "tags" key, so rules on tags see both sources. The returned map is
// a fresh copy; the Result is not mutated.
func (r *Result) Metadata() map[string]any {
	md := make(map[string]any, len(r.Frontmatter)+1)
	for k, v := range r.Frontmatter {
		md[k] = v
	}
	if len(r.Tags) > 0 {
		merged := make([]any, len(r.Tags))
		for i, t := range r.Tags {
			merged[i] = t
		}
		md["tags"] = merged
	}
	return md
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found, or the YAML is invalid,
// the entire content is body and the metadata is nil.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}

	return fm, body
}

// extractTags collects #tags from the body and the frontmatter "tags"
// field, deduplicated in encounter order.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if fm != nil {
		switch v := fm["tags"].(type) {
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		case string:
			add(v)
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}

	return out
}
