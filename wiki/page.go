package wiki

import (
	"fmt"
	"sort"
	"strings"
)

// Page is one wiki content unit: a normalized url slug, front-matter metadata
// and the raw markup body. On disk a page is a single text file with `key: value`
// header lines, a blank line, then the body.
type Page struct {
	URL   string            `json:"url"`
	Title string            `json:"title"`
	Tags  []string          `json:"tags"`
	Body  string            `json:"body"`
	Meta  map[string]string `json:"meta,omitempty"`
}

// NewBarePage constructs an empty page bound to url, used when populating a
// brand-new page from submitted data before its first save.
func NewBarePage(url string) *Page {
	return &Page{URL: url, Meta: map[string]string{}}
}

// DisplayTitle returns the stored title, or a human readable derivation of the
// url when no title was set.
func (p *Page) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	return humanizeURL(p.URL)
}

// HasTag reports whether the page carries the given tag. Comparison is
// case-sensitive unless ignoreCase is set.
func (p *Page) HasTag(tag string, ignoreCase bool) bool {
	tag = strings.TrimSpace(tag)
	for _, t := range p.Tags {
		if t == tag || (ignoreCase && strings.EqualFold(t, tag)) {
			return true
		}
	}
	return false
}

// parsePage decodes the front-matter header and body from raw file content.
// The header is everything before the first blank line, parsed as `key: value`
// lines; content without a parsable header is treated as body only.
func parsePage(url string, raw []byte) (*Page, error) {
	page := NewBarePage(url)

	content := strings.ReplaceAll(string(raw), "\r\n", "\n")
	header, body, found := strings.Cut(content, "\n\n")
	if !found {
		header, body = content, ""
	}

	fields, ok := parseHeader(header)
	if !ok {
		// No front matter, the whole file is body.
		page.Body = strings.TrimSuffix(content, "\n")
		return page, nil
	}

	for key, value := range fields {
		switch strings.ToLower(key) {
		case "title":
			page.Title = value
		case "tags":
			page.Tags = SplitTags(value)
		default:
			page.Meta[key] = value
		}
	}
	page.Body = strings.TrimSuffix(body, "\n")
	return page, nil
}

// parseHeader reads `key: value` lines with values kept verbatim, so titles
// like "3.10", "007" or "[WIP] Notes" survive a round trip unchanged. Returns
// false when any non-empty line is not a key: value pair.
func parseHeader(header string) (map[string]string, bool) {
	fields := map[string]string{}
	for _, line := range strings.Split(header, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.ContainsAny(key, " \t") {
			return nil, false
		}
		fields[key] = strings.TrimSpace(value)
	}
	return fields, len(fields) > 0
}

// serialize renders the page back into its on-disk representation.
func (p *Page) serialize() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "title: %s\n", p.DisplayTitle())
	if len(p.Tags) > 0 {
		fmt.Fprintf(&b, "tags: %s\n", strings.Join(p.Tags, ", "))
	}
	keys := make([]string, 0, len(p.Meta))
	for k := range p.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, p.Meta[k])
	}
	b.WriteString("\n")
	b.WriteString(p.Body)
	if !strings.HasSuffix(p.Body, "\n") {
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// SplitTags parses a comma separated tag list into a deduplicated slice,
// preserving first-seen order.
func SplitTags(raw string) []string {
	seen := map[string]bool{}
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}

func humanizeURL(url string) string {
	last := url
	if i := strings.LastIndex(url, "/"); i >= 0 {
		last = url[i+1:]
	}
	last = strings.NewReplacer("-", " ", "_", " ").Replace(last)
	words := strings.Fields(last)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
