// Package export renders a story to its portable file formats and parses them
// back. Both formats round-trip through the migration layer on import, so the
// parsers return loosely-typed maps rather than schema structs.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fablecraft/gofable/internal/store"
)

// Sentinel lines of the Markdown format. These are stable across versions:
// old exports are recognized by the same markers.
const (
	encyclopediaStart = "<!-- ENCYCLOPEDIA_JSON_START -->"
	encyclopediaEnd   = "<!-- ENCYCLOPEDIA_JSON_END -->"
	chapterBreak      = "<!-- CHAPTER_BREAK -->"
)

// Markdown renders the story as a portable Markdown document: the full
// encyclopedia embedded as JSON between sentinel comments, then each chapter
// under a "## <title>" heading, separated by chapter-break sentinels.
// Section headers contribute their heading line only.
func Markdown(story *store.Story) (string, error) {
	enc, err := encyclopediaJSON(story)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", story.Title)
	b.WriteString(encyclopediaStart + "\n")
	b.WriteString(enc + "\n")
	b.WriteString(encyclopediaEnd + "\n")

	for i, ch := range story.Chapters {
		if i > 0 {
			b.WriteString("\n" + chapterBreak + "\n")
		}
		fmt.Fprintf(&b, "\n## %s\n", ch.Title)
		if ch.Type != store.ChapterTypeHeader && ch.Content != "" {
			b.WriteString("\n" + ch.Content + "\n")
		}
	}
	return b.String(), nil
}

// JSON renders the story as its verbatim current-schema record.
func JSON(story *store.Story) (string, error) {
	data, err := json.MarshalIndent(story, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode story: %w", err)
	}
	return string(data), nil
}

// encyclopediaJSON is the story record without its chapters.
func encyclopediaJSON(story *store.Story) (string, error) {
	data, err := json.Marshal(story)
	if err != nil {
		return "", fmt.Errorf("failed to encode encyclopedia: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return "", err
	}
	delete(m, "chapters")
	out, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ParseMarkdown extracts the raw story map from a Markdown export. The result
// feeds the migration layer; it is not validated here.
func ParseMarkdown(doc string) (map[string]any, error) {
	start := strings.Index(doc, encyclopediaStart)
	end := strings.Index(doc, encyclopediaEnd)
	if start < 0 || end < 0 || end < start {
		return nil, fmt.Errorf("encyclopedia sentinels not found")
	}

	raw := strings.TrimSpace(doc[start+len(encyclopediaStart) : end])
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("failed to parse encyclopedia JSON: %w", err)
	}

	var chapters []any
	body := doc[end+len(encyclopediaEnd):]
	for _, block := range strings.Split(body, chapterBreak) {
		title, content, ok := splitChapter(block)
		if !ok {
			continue
		}
		ch := map[string]any{"title": title, "content": content}
		if content == "" {
			ch["type"] = store.ChapterTypeHeader
		} else {
			ch["type"] = store.ChapterTypeProse
		}
		chapters = append(chapters, ch)
	}
	if chapters != nil {
		m["chapters"] = chapters
	}
	return m, nil
}

// splitChapter pulls the "## title" heading and trailing prose out of one
// chapter block.
func splitChapter(block string) (title, content string, ok bool) {
	lines := strings.Split(block, "\n")
	body := make([]string, 0, len(lines))
	for _, line := range lines {
		if title == "" && strings.HasPrefix(line, "## ") {
			title = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			continue
		}
		if title != "" {
			body = append(body, line)
		}
	}
	if title == "" {
		return "", "", false
	}
	return title, strings.TrimSpace(strings.Join(body, "\n")), true
}

// ParseJSON decodes a JSON export into the raw map the migration layer takes.
func ParseJSON(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse story JSON: %w", err)
	}
	return m, nil
}
