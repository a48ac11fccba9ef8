package richtext

import (
	"strings"
)

// Texts returns the text payloads a document renders, in document order
func Texts(doc *Document) []string {
	var out []string
	var walk func(nodes []Node)
	walk = func(nodes []Node) {
		for _, n := range nodes {
			switch n.Kind() {
			case KindText:
				if n.Text != "" {
					out = append(out, n.Text)
				}
			case KindLinebreak, KindHorizontalRule, KindUpload:
			default:
				walk(n.Children)
			}
		}
	}
	walk(doc.Nodes())
	return out
}

// PlainText flattens a document to text with one line per block
func PlainText(doc *Document) string {
	var b strings.Builder
	var walk func(nodes []Node)
	walk = func(nodes []Node) {
		for _, n := range nodes {
			switch n.Kind() {
			case KindText:
				b.WriteString(n.Text)
			case KindLinebreak:
				b.WriteByte('\n')
			case KindHorizontalRule, KindUpload:
			case KindParagraph, KindHeading, KindListItem, KindQuote:
				walk(n.Children)
				b.WriteByte('\n')
			default:
				walk(n.Children)
			}
		}
	}
	walk(doc.Nodes())
	return strings.TrimSpace(b.String())
}
