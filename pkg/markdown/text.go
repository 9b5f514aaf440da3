package markdown

import "strings"

// Text flattens nodes into readable prose, one block per line. Tables read row by row.
func Text(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		switch n.Kind {
		case KindHeading, KindParagraph:
			writeLine(&b, plain(n.Spans))
		case KindList:
			for _, item := range n.Items {
				writeLine(&b, plain(item))
			}
		case KindTable:
			for _, row := range append([][]Cell{n.Table.Header}, n.Table.Rows...) {
				cells := make([]string, 0, len(row))
				for _, cell := range row {
					if text := cell.Plain(); text != "" {
						cells = append(cells, text)
					}
				}
				writeLine(&b, strings.Join(cells, ", "))
			}
		case KindSchema:
			writeLine(&b, n.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

func writeLine(b *strings.Builder, s string) {
	if s = strings.TrimSpace(s); s == "" {
		return
	}
	b.WriteString(s)
	b.WriteByte('\n')
}
