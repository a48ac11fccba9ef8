package richtext

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleDocument = `{
  "root": {
    "type": "root",
    "children": [
      {"type": "heading", "tag": "h1", "children": [{"type": "text", "text": "Welcome", "format": 0}]},
      {"type": "paragraph", "format": "left", "children": [
        {"type": "text", "text": "Learn ", "format": 0},
        {"type": "text", "text": "faster", "format": 1},
        {"type": "link", "fields": {"url": "https://example.com", "newTab": false}, "children": [
          {"type": "text", "text": " here", "format": 0}
        ]}
      ]},
      {"type": "list", "listType": "number", "children": [
        {"type": "listitem", "children": [{"type": "text", "text": "One"}]},
        {"type": "listitem", "children": [{"type": "text", "text": "Two"}]}
      ]},
      {"type": "upload", "value": {"url": "/media/a.png", "alt": "A"}},
      {"type": "callout", "children": [{"type": "text", "text": "Tip"}]}
    ]
  }
}`

func TestParseSampleDocument(t *testing.T) {
	doc, err := Parse([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	nodes := doc.Nodes()
	if len(nodes) != 5 {
		t.Fatalf("expected 5 top-level nodes, got %d", len(nodes))
	}

	kinds := make([]Kind, len(nodes))
	for i, n := range nodes {
		kinds[i] = n.Kind()
	}
	wantKinds := []Kind{KindHeading, KindParagraph, KindList, KindUpload, KindUnknown}
	if diff := cmp.Diff(wantKinds, kinds); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}

	para := nodes[1]
	if para.Format != 0 {
		t.Errorf("string format should decode to 0, got %d", para.Format)
	}
	if para.Children[1].Format != FormatBold {
		t.Errorf("expected bold format, got %d", para.Children[1].Format)
	}

	link := para.Children[2]
	if link.URL != "https://example.com" {
		t.Errorf("expected link url from fields, got %q", link.URL)
	}
	if link.NewTab == nil || *link.NewTab {
		t.Errorf("expected explicit newTab=false, got %v", link.NewTab)
	}

	upload := nodes[3]
	if upload.Media == nil || upload.Media.URL != "/media/a.png" || upload.Media.Alt != "A" {
		t.Errorf("unexpected upload media: %+v", upload.Media)
	}
}

func TestParseEmptyDocuments(t *testing.T) {
	inputs := []string{
		`{}`,
		`null`,
		`{"root": null}`,
		`{"root": {}}`,
		`{"root": {"children": null}}`,
		`{"root": "oops"}`,
		`[1, 2]`,
	}

	for _, in := range inputs {
		doc, err := Parse([]byte(in))
		if err != nil {
			t.Errorf("Parse(%s) returned error: %v", in, err)
			continue
		}
		if len(doc.Nodes()) != 0 {
			t.Errorf("Parse(%s) expected empty document, got %d nodes", in, len(doc.Nodes()))
		}
	}
}

func TestParseInvalidJSON(t *testing.T) {
	if _, err := Parse([]byte(`{"root":`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestParseMalformedNodesDegrade(t *testing.T) {
	in := `{"root": {"children": [
		{"type": "heading", "tag": 5, "children": "oops"},
		42,
		{"type": "text", "text": ["not", "a", "string"]},
		{"type": "upload", "value": 17},
		{"type": "paragraph", "children": [{"type": "text", "text": "kept"}]}
	]}}`

	doc, err := Parse([]byte(in))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	out, err := RenderHTML(doc)
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}
	if out != "<h2></h2><p>kept</p>" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestParseKind(t *testing.T) {
	for name, kind := range kindNames {
		if got := ParseKind(name); got != kind {
			t.Errorf("ParseKind(%q) = %v, want %v", name, got, kind)
		}
		if kind.String() != name {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, kind.String(), name)
		}
	}
	if ParseKind("Paragraph") != KindUnknown {
		t.Error("type matching should be case sensitive")
	}
}

func TestPlainText(t *testing.T) {
	doc, err := Parse([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := "Welcome\nLearn faster here\nOne\nTwo\nTip"
	if got := PlainText(doc); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := PlainText(nil); got != "" {
		t.Errorf("expected empty text for nil document, got %q", got)
	}
}

func TestParseFormatValues(t *testing.T) {
	tests := []struct {
		raw  string
		want Format
	}{
		{"3", FormatBold | FormatItalic},
		{"-1", 0},
		{"-2147483648", 0},
		{"1.5", 0},
		{"1e20", 0},
		{"33", FormatBold},
		{`"bold"`, 0},
	}

	for _, tt := range tests {
		doc, err := Parse([]byte(`{"root": {"children": [{"type": "text", "text": "x", "format": ` + tt.raw + `}]}}`))
		if err != nil {
			t.Fatalf("Parse(%s) failed: %v", tt.raw, err)
		}
		if got := doc.Nodes()[0].Format; got != tt.want {
			t.Errorf("format %s: got %d, want %d", tt.raw, got, tt.want)
		}
	}

	out, err := RenderHTML(&Document{Root: &Root{Children: []Node{{Type: "text", Text: "x", Format: decodeFormat(-1)}}}})
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}
	if out != "x" {
		t.Errorf("negative format should render plain text, got %q", out)
	}
}
