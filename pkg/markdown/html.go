package markdown

import (
	"html"
	"strings"
)

const documentStyle = `body { font-family: Calibri, Arial, sans-serif; font-size: 11pt; line-height: 1.4; }
h1 { font-size: 18pt; color: #1e3a8a; }
h2 { font-size: 14pt; color: #1e3a8a; border-bottom: 1px solid #cbd5e1; margin-top: 18pt; }
h3 { font-size: 12pt; color: #334155; margin-top: 12pt; }
table { border-collapse: collapse; width: 100%; margin: 8pt 0; }
th, td { border: 1px solid #64748b; padding: 4pt 6pt; vertical-align: top; }
th { background: #e2e8f0; }
.schema { border: 1px dashed #6366f1; background: #eef2ff; padding: 8pt; margin: 8pt 0; }
.schema-label { font-weight: bold; color: #4338ca; }`

// HTML renders nodes as an export fragment.
func HTML(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		switch n.Kind {
		case KindHeading:
			tag := "h2"
			if n.Level == 3 {
				tag = "h3"
			}
			b.WriteString("<" + tag + ">")
			writeSpans(&b, n.Spans)
			b.WriteString("</" + tag + ">\n")
		case KindList:
			b.WriteString("<ul>\n")
			for _, item := range n.Items {
				b.WriteString("<li>")
				writeSpans(&b, item)
				b.WriteString("</li>\n")
			}
			b.WriteString("</ul>\n")
		case KindTable:
			writeTable(&b, n.Table)
		case KindSchema:
			b.WriteString(`<div class="schema"><span class="schema-label">Schema:</span> `)
			b.WriteString(html.EscapeString(n.Text))
			b.WriteString("</div>\n")
		case KindParagraph:
			b.WriteString("<p>")
			writeSpans(&b, n.Spans)
			b.WriteString("</p>\n")
		case KindBreak:
			b.WriteString("<br>\n")
		}
	}
	return b.String()
}

// Document wraps the export fragment in a standalone Word-compatible HTML document.
func Document(title string, nodes []Node) string {
	var b strings.Builder
	b.WriteString(`<html xmlns:o="urn:schemas-microsoft-com:office:office" xmlns:w="urn:schemas-microsoft-com:office:word" xmlns="http://www.w3.org/TR/REC-html40">` + "\n")
	b.WriteString("<head>\n<meta charset=\"utf-8\">\n<title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title>\n<style>\n")
	b.WriteString(documentStyle)
	b.WriteString("\n</style>\n</head>\n<body>\n")
	if title != "" {
		b.WriteString("<h1>" + html.EscapeString(title) + "</h1>\n")
	}
	b.WriteString(HTML(nodes))
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func writeTable(b *strings.Builder, t *Table) {
	b.WriteString("<table>\n<thead>\n<tr>")
	for _, cell := range t.Header {
		b.WriteString("<th>")
		writeSpans(b, cell.Spans)
		b.WriteString("</th>")
	}
	b.WriteString("</tr>\n</thead>\n<tbody>\n")
	for _, row := range t.Rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>")
			writeSpans(b, cell.Spans)
			b.WriteString("</td>")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>\n")
}

func writeSpans(b *strings.Builder, spans []Span) {
	for _, s := range spans {
		if s.Bold {
			b.WriteString("<strong>" + html.EscapeString(s.Text) + "</strong>")
			continue
		}
		b.WriteString(html.EscapeString(s.Text))
	}
}
