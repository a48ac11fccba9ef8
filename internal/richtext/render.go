package richtext

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// wrapOrder is the fixed nesting order of inline formats, innermost first
var wrapOrder = []struct {
	flag Format
	tag  string
}{
	{FormatCode, "code"},
	{FormatBold, "strong"},
	{FormatItalic, "em"},
	{FormatUnderline, "u"},
	{FormatStrikethrough, "s"},
}

var headingTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

const (
	defaultHeadingTag = "h2"
	externalRel       = "noopener noreferrer"
)

// Render renders the top-level nodes of a document in order.
// A nil or empty document renders to an empty slice.
func Render(doc *Document) []*html.Node {
	return renderChildren(doc.Nodes())
}

// RenderNode renders a single node. Nodes that cannot be rendered produce no output.
func RenderNode(n Node) []*html.Node {
	switch n.Kind() {
	case KindText:
		if n.Text == "" {
			return nil
		}
		return []*html.Node{formatText(n.Text, n.Format)}

	case KindLinebreak:
		return []*html.Node{element("br")}

	case KindHorizontalRule:
		return []*html.Node{element("hr")}

	case KindParagraph:
		return []*html.Node{container("p", n.Children)}

	case KindHeading:
		return []*html.Node{container(HeadingTag(n.Tag), n.Children)}

	case KindList:
		tag := "ul"
		if n.ListType == "number" {
			tag = "ol"
		}
		return []*html.Node{container(tag, n.Children)}

	case KindListItem:
		return []*html.Node{container("li", n.Children)}

	case KindQuote:
		return []*html.Node{container("blockquote", n.Children)}

	case KindLink, KindAutolink:
		return []*html.Node{renderLink(n)}

	case KindUpload:
		if n.Media == nil || n.Media.URL == "" {
			return nil
		}
		fig := element("figure")
		fig.AppendChild(element("img",
			html.Attribute{Key: "src", Val: n.Media.URL},
			html.Attribute{Key: "alt", Val: n.Media.Alt},
		))
		return []*html.Node{fig}

	default:
		// Unknown types keep their content and drop their own semantics
		return renderChildren(n.Children)
	}
}

// RenderHTML renders a document and serializes it to an HTML string
func RenderHTML(doc *Document) (string, error) {
	var b strings.Builder
	for _, n := range Render(doc) {
		if err := html.Render(&b, n); err != nil {
			return "", fmt.Errorf("failed to serialize node: %w", err)
		}
	}
	return b.String(), nil
}

// HeadingTag returns tag when it is h1 through h6, otherwise h2
func HeadingTag(tag string) string {
	if headingTags[tag] {
		return tag
	}
	return defaultHeadingTag
}

// OpensInNewTab reports whether a link opens in a new tab with the
// external rel attributes. An explicit flag wins; without one, http(s)
// URLs are treated as external.
func OpensInNewTab(n Node) bool {
	if n.NewTab != nil {
		return *n.NewTab
	}
	return strings.HasPrefix(n.URL, "http")
}

// linkSchemes are the absolute URL schemes rendered as an href
var linkSchemes = map[string]bool{"http": true, "https": true, "mailto": true}

// safeHref returns the URL to render as an href. Relative URLs and the
// allowed schemes pass; anything else, or an unparsable URL, is dropped.
func safeHref(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "" && !linkSchemes[u.Scheme] {
		return "", false
	}
	return raw, true
}

func renderLink(n Node) *html.Node {
	href, ok := safeHref(n.URL)
	if !ok {
		// Unsafe scheme: keep the text without a target
		a := element("a")
		appendAll(a, renderChildren(n.Children))
		return a
	}

	a := element("a", html.Attribute{Key: "href", Val: href})
	if OpensInNewTab(n) {
		a.Attr = append(a.Attr,
			html.Attribute{Key: "target", Val: "_blank"},
			html.Attribute{Key: "rel", Val: externalRel},
		)
	}
	appendAll(a, renderChildren(n.Children))
	return a
}

func formatText(text string, format Format) *html.Node {
	cur := &html.Node{Type: html.TextNode, Data: text}
	for _, w := range wrapOrder {
		if !format.Has(w.flag) {
			continue
		}
		el := element(w.tag)
		el.AppendChild(cur)
		cur = el
	}
	return cur
}

func renderChildren(children []Node) []*html.Node {
	out := make([]*html.Node, 0, len(children))
	for _, c := range children {
		out = append(out, RenderNode(c)...)
	}
	return out
}

func container(tag string, children []Node) *html.Node {
	el := element(tag)
	appendAll(el, renderChildren(children))
	return el
}

func appendAll(parent *html.Node, children []*html.Node) {
	for _, c := range children {
		parent.AppendChild(c)
	}
}

func element(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}
