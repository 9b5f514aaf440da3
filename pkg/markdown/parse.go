// Package markdown parses the constrained lesson dialect into a node sequence.
//
// The dialect recognises `## ` and `### ` headings, `- ` and `* ` bullets,
// `**bold**` spans, pipe tables with a dash/colon separator row, and the
// `> [SCHEMA] <description>` figure call-out. Nothing else is special.
// Parse is the only place lines are classified; every renderer consumes
// its output so preview, export HTML and PDF never disagree on structure.
package markdown

import (
	"regexp"
	"strings"
)

// Kind identifies a block node.
type Kind string

const (
	KindHeading   Kind = "heading"
	KindList      Kind = "list"
	KindTable     Kind = "table"
	KindSchema    Kind = "schema"
	KindParagraph Kind = "paragraph"
	KindBreak     Kind = "break"
)

const schemaMarker = "> [SCHEMA]"

// Span is a run of inline text.
type Span struct {
	Text string `json:"text"`
	Bold bool   `json:"bold,omitempty"`
}

// Cell is one table cell.
type Cell struct {
	Spans []Span `json:"spans"`
}

// Plain returns the cell text without emphasis.
func (c Cell) Plain() string {
	return plain(c.Spans)
}

// Table holds a header row and the data rows. The separator row is never kept.
type Table struct {
	Header []Cell   `json:"header"`
	Rows   [][]Cell `json:"rows"`
}

// Node is one block of a parsed lesson.
type Node struct {
	Kind  Kind     `json:"kind"`
	Level int      `json:"level,omitempty"`
	Spans []Span   `json:"spans,omitempty"`
	Items [][]Span `json:"items,omitempty"`
	Table *Table   `json:"table,omitempty"`
	Text  string   `json:"text,omitempty"`
}

var (
	breakTagPattern = regexp.MustCompile(`(?i)<br\s*/?>`)
	mathPattern     = regexp.MustCompile(`\$([^$\n]*)\$`)
	separatorRow    = regexp.MustCompile(`^[\s|:\-]+$`)
	boldPattern     = regexp.MustCompile(`\*\*.+?\*\*`)
)

type parser struct {
	nodes      []Node
	tableLines []string
	listItems  [][]Span
}

// Parse classifies dialect text into block nodes.
func Parse(text string) []Node {
	p := &parser{}
	for _, raw := range strings.Split(text, "\n") {
		p.line(Clean(raw))
	}
	p.flushTable()
	p.flushList()
	return p.nodes
}

// Clean removes `<br>` tags and `$...$` math delimiters ahead of classification.
func Clean(line string) string {
	line = strings.TrimRight(line, "\r")
	line = breakTagPattern.ReplaceAllString(line, " ")
	line = mathPattern.ReplaceAllString(line, "$1")
	return strings.TrimSpace(line)
}

func (p *parser) line(line string) {
	if strings.HasPrefix(line, "|") {
		p.flushList()
		p.tableLines = append(p.tableLines, line)
		return
	}
	p.flushTable()

	switch {
	case strings.HasPrefix(line, "### "):
		p.flushList()
		p.emit(Node{Kind: KindHeading, Level: 3, Spans: SplitBold(strings.TrimSpace(line[4:]))})
	case strings.HasPrefix(line, "## "):
		p.flushList()
		p.emit(Node{Kind: KindHeading, Level: 2, Spans: SplitBold(strings.TrimSpace(line[3:]))})
	case strings.HasPrefix(line, schemaMarker):
		p.flushList()
		p.emit(Node{Kind: KindSchema, Text: strings.TrimSpace(line[len(schemaMarker):])})
	case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
		p.listItems = append(p.listItems, SplitBold(strings.TrimSpace(line[2:])))
	case line == "":
		p.flushList()
		p.emit(Node{Kind: KindBreak})
	default:
		p.flushList()
		p.emit(Node{Kind: KindParagraph, Spans: SplitBold(line)})
	}
}

func (p *parser) emit(n Node) {
	p.nodes = append(p.nodes, n)
}

func (p *parser) flushList() {
	if len(p.listItems) == 0 {
		return
	}
	p.emit(Node{Kind: KindList, Items: p.listItems})
	p.listItems = nil
}

func (p *parser) flushTable() {
	if len(p.tableLines) == 0 {
		return
	}
	lines := p.tableLines
	p.tableLines = nil

	var rows [][]Cell
	for _, line := range lines {
		if IsSeparatorRow(line) {
			continue
		}
		rows = append(rows, splitRow(line))
	}
	if len(rows) == 0 {
		return
	}
	p.emit(Node{Kind: KindTable, Table: &Table{Header: rows[0], Rows: rows[1:]}})
}

// IsSeparatorRow reports whether a table line is the dash/colon separator.
func IsSeparatorRow(line string) bool {
	return separatorRow.MatchString(line) && strings.Count(line, "-") >= 3
}

func splitRow(line string) []Cell {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]Cell, 0, len(parts))
	for _, part := range parts {
		cells = append(cells, Cell{Spans: SplitBold(strings.TrimSpace(part))})
	}
	return cells
}

// SplitBold splits text on `**...**` runs. Only a run that both starts and ends
// with the delimiter is bold; all other text is kept byte for byte.
func SplitBold(text string) []Span {
	if text == "" {
		return nil
	}
	var spans []Span
	last := 0
	for _, loc := range boldPattern.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			spans = append(spans, Span{Text: text[last:loc[0]]})
		}
		spans = append(spans, Span{Text: text[loc[0]+2 : loc[1]-2], Bold: true})
		last = loc[1]
	}
	if last < len(text) {
		spans = append(spans, Span{Text: text[last:]})
	}
	return spans
}

func plain(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// PlainText flattens spans, dropping emphasis.
func PlainText(spans []Span) string {
	return plain(spans)
}
