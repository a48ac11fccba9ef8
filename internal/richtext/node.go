package richtext

import (
	"encoding/json"
	"math"
)

// Kind is the node type discriminator of a document node
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindLinebreak
	KindParagraph
	KindHeading
	KindList
	KindListItem
	KindQuote
	KindLink
	KindAutolink
	KindUpload
	KindHorizontalRule
)

var kindNames = map[string]Kind{
	"text":           KindText,
	"linebreak":      KindLinebreak,
	"paragraph":      KindParagraph,
	"heading":        KindHeading,
	"list":           KindList,
	"listitem":       KindListItem,
	"quote":          KindQuote,
	"link":           KindLink,
	"autolink":       KindAutolink,
	"upload":         KindUpload,
	"horizontalrule": KindHorizontalRule,
}

// ParseKind maps a JSON type string to a Kind. Unrecognized types map to KindUnknown.
func ParseKind(s string) Kind {
	if k, ok := kindNames[s]; ok {
		return k
	}
	return KindUnknown
}

// String returns the JSON type name of the kind
func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Format is the inline formatting bitmask of a text node
type Format int

const (
	FormatBold          Format = 1
	FormatItalic        Format = 2
	FormatStrikethrough Format = 4
	FormatUnderline     Format = 8
	FormatCode          Format = 16

	formatMask = FormatBold | FormatItalic | FormatStrikethrough | FormatUnderline | FormatCode
)

// decodeFormat keeps the known bits of a JSON format value. Negative and
// fractional values carry no formatting.
func decodeFormat(v float64) Format {
	if v < 0 || v != math.Trunc(v) || v > math.MaxInt32 {
		return 0
	}
	return Format(int(v)) & formatMask
}

// Has reports whether every bit of flag is set
func (f Format) Has(flag Format) bool {
	return f&flag == flag
}

// Document is a rich-text document with a single root
type Document struct {
	Root *Root `json:"root"`
}

// Root holds the ordered top-level nodes
type Root struct {
	Children []Node `json:"children"`
}

// Nodes returns the top-level nodes; nil for an empty document
func (d *Document) Nodes() []Node {
	if d == nil || d.Root == nil {
		return nil
	}
	return d.Root.Children
}

// Media is the resolved media reference of an upload node
type Media struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// Node is a single document node. Which fields are meaningful depends on Type.
type Node struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Format   Format `json:"format,omitempty"`
	Tag      string `json:"tag,omitempty"`
	ListType string `json:"listType,omitempty"`
	URL      string `json:"url,omitempty"`
	NewTab   *bool  `json:"newTab,omitempty"`
	Media    *Media `json:"value,omitempty"`
	Children []Node `json:"children,omitempty"`
}

// Kind returns the decoded node kind
func (n Node) Kind() Kind {
	return ParseKind(n.Type)
}

// UnmarshalJSON decodes a node field by field. A field with an unexpected
// JSON type is left at its zero value instead of failing the document.
func (n *Node) UnmarshalJSON(data []byte) error {
	*n = Node{}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// Not an object: keep the zero node, which renders as nothing
		return nil
	}

	decodeField(raw, "type", &n.Type)
	decodeField(raw, "text", &n.Text)
	decodeField(raw, "tag", &n.Tag)
	decodeField(raw, "listType", &n.ListType)
	decodeField(raw, "url", &n.URL)

	var format float64
	if decodeField(raw, "format", &format) {
		n.Format = decodeFormat(format)
	}

	var newTab bool
	if decodeField(raw, "newTab", &newTab) {
		n.NewTab = &newTab
	}

	// Payload-style link nodes keep url and newTab under "fields"
	if fieldsRaw, ok := raw["fields"]; ok {
		var fields map[string]json.RawMessage
		if json.Unmarshal(fieldsRaw, &fields) == nil {
			var url string
			if decodeField(fields, "url", &url) && url != "" {
				n.URL = url
			}
			var tab bool
			if decodeField(fields, "newTab", &tab) {
				n.NewTab = &tab
			}
		}
	}

	if valueRaw, ok := raw["value"]; ok {
		var media Media
		// An unpopulated relation is an ID, not an object
		if json.Unmarshal(valueRaw, &media) == nil {
			n.Media = &media
		}
	}

	if childrenRaw, ok := raw["children"]; ok {
		var children []json.RawMessage
		if json.Unmarshal(childrenRaw, &children) == nil {
			n.Children = make([]Node, len(children))
			for i, c := range children {
				_ = n.Children[i].UnmarshalJSON(c)
			}
		}
	}

	return nil
}

func decodeField(raw map[string]json.RawMessage, key string, dst interface{}) bool {
	v, ok := raw[key]
	if !ok {
		return false
	}
	return json.Unmarshal(v, dst) == nil
}

// Parse decodes a JSON document. Only syntactically invalid JSON is an error;
// absent or malformed structure yields an empty or partial document.
func Parse(data []byte) (*Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		if !json.Valid(data) {
			return nil, err
		}
		// Valid JSON but not an object (e.g. null)
		return &Document{}, nil
	}

	doc := &Document{}
	rootRaw, ok := raw["root"]
	if !ok {
		return doc, nil
	}

	var root map[string]json.RawMessage
	if json.Unmarshal(rootRaw, &root) != nil {
		return doc, nil
	}
	doc.Root = &Root{}

	var children []json.RawMessage
	if !decodeField(root, "children", &children) {
		return doc, nil
	}

	doc.Root.Children = make([]Node, len(children))
	for i, c := range children {
		_ = doc.Root.Children[i].UnmarshalJSON(c)
	}
	return doc, nil
}
