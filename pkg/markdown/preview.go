package markdown

// Element is one structured screen node. Clients map tags onto their own components.
type Element struct {
	Tag      string    `json:"tag"`
	Class    string    `json:"class,omitempty"`
	Text     string    `json:"text,omitempty"`
	Children []Element `json:"children,omitempty"`
}

// Preview renders nodes as screen elements.
func Preview(nodes []Node) []Element {
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		switch n.Kind {
		case KindHeading:
			tag, class := "h2", "lesson-heading"
			if n.Level == 3 {
				tag, class = "h3", "lesson-subheading"
			}
			out = append(out, Element{Tag: tag, Class: class, Children: inline(n.Spans)})
		case KindList:
			items := make([]Element, 0, len(n.Items))
			for _, item := range n.Items {
				items = append(items, Element{Tag: "li", Children: inline(item)})
			}
			out = append(out, Element{Tag: "ul", Class: "lesson-list", Children: items})
		case KindTable:
			out = append(out, previewTable(n.Table))
		case KindSchema:
			out = append(out, Element{
				Tag:   "aside",
				Class: "schema-callout",
				Children: []Element{
					{Tag: "span", Class: "schema-label", Text: "Schema"},
					{Tag: "p", Class: "schema-description", Text: n.Text},
				},
			})
		case KindParagraph:
			out = append(out, Element{Tag: "p", Children: inline(n.Spans)})
		case KindBreak:
			out = append(out, Element{Tag: "br"})
		}
	}
	return out
}

func previewTable(t *Table) Element {
	header := make([]Element, 0, len(t.Header))
	for _, cell := range t.Header {
		header = append(header, Element{Tag: "th", Children: inline(cell.Spans)})
	}
	body := make([]Element, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]Element, 0, len(row))
		for _, cell := range row {
			cells = append(cells, Element{Tag: "td", Children: inline(cell.Spans)})
		}
		body = append(body, Element{Tag: "tr", Children: cells})
	}
	return Element{
		Tag:   "table",
		Class: "lesson-table",
		Children: []Element{
			{Tag: "thead", Children: []Element{{Tag: "tr", Children: header}}},
			{Tag: "tbody", Children: body},
		},
	}
}

func inline(spans []Span) []Element {
	out := make([]Element, 0, len(spans))
	for _, s := range spans {
		if s.Bold {
			out = append(out, Element{Tag: "strong", Text: s.Text})
			continue
		}
		out = append(out, Element{Tag: "span", Text: s.Text})
	}
	return out
}
