package notifier

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const maxStructuredMessageLen = 3800

// MessageSection is one titled block of bullet lines.
type MessageSection struct {
	Title string
	Lines []string
}

// StructuredMessage renders every notification in the same layout.
type StructuredMessage struct {
	Icon      string
	Title     string
	Sections  []MessageSection
	Fields    []Field
	Footer    string
	Timestamp time.Time
}

// Field is a label/value pair rendered as "label: value".
type Field struct {
	Label string
	Value string
}

func F(label, format string, args ...any) Field {
	return Field{Label: label, Value: fmt.Sprintf(format, args...)}
}

func (m StructuredMessage) fieldLines() []string {
	out := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		out = append(out, f.Label+": "+f.Value)
	}
	return out
}

// RenderMarkdown renders the header, a fenced block with every non-empty
// section, the footer and the timestamp. The result is cut at a rune
// boundary to stay under Telegram's message limit.
func (m StructuredMessage) RenderMarkdown() string {
	sections := m.Sections
	if len(m.Fields) > 0 {
		sections = append([]MessageSection{{Lines: m.fieldLines()}}, sections...)
	}
	parts := make([]string, 0, 4)
	if header := strings.TrimSpace(m.Icon + " " + m.Title); header != "" {
		parts = append(parts, header)
	}
	if block := renderSections(sections); block != "" {
		parts = append(parts, "```\n"+block+"\n```")
	}
	var tail []string
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		tail = append(tail, escapeFence(footer))
	}
	if !m.Timestamp.IsZero() {
		tail = append(tail, "Time: "+m.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	if len(tail) > 0 {
		parts = append(parts, strings.Join(tail, "\n"))
	}
	return truncate(strings.Join(parts, "\n\n"), maxStructuredMessageLen)
}

func renderSections(secs []MessageSection) string {
	blocks := make([]string, 0, len(secs))
	for _, sec := range secs {
		var lines []string
		for _, line := range sec.Lines {
			if text := strings.TrimSpace(line); text != "" {
				lines = append(lines, "- "+escapeFence(text))
			}
		}
		if len(lines) == 0 {
			continue
		}
		if title := strings.TrimSpace(sec.Title); title != "" {
			lines = append([]string{escapeFence(title)}, lines...)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func escapeFence(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
