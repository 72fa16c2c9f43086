package item

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ContentKind tags the payload variant of an item.
type ContentKind uint8

const (
	ContentNull ContentKind = iota
	ContentString
	ContentBinary
	ContentValue
	ContentDoc
)

// Content is the payload of an item: string bytes for strings and text runs,
// opaque bytes, an arbitrary JSON-compatible value for atoms and marks, or an
// embedded document handle.
type Content struct {
	Kind  ContentKind
	Str   string
	Bytes []byte
	Value any
	Doc   *DocContent
}

// DocContent references an embedded document.
type DocContent struct {
	GUID string
	Opts map[string]any
}

func NullContent() Content {
	return Content{Kind: ContentNull}
}

func StringContent(s string) Content {
	return Content{Kind: ContentString, Str: s}
}

func BinaryContent(b []byte) Content {
	return Content{Kind: ContentBinary, Bytes: b}
}

func ValueContent(v any) Content {
	return Content{Kind: ContentValue, Value: v}
}

func DocRefContent(guid string, opts map[string]any) Content {
	return Content{Kind: ContentDoc, Doc: &DocContent{GUID: guid, Opts: opts}}
}

func (c Content) IsNull() bool {
	return c.Kind == ContentNull
}

func (c Content) Clone() Content {
	out := c
	if c.Bytes != nil {
		out.Bytes = append([]byte(nil), c.Bytes...)
	}
	if c.Doc != nil {
		doc := *c.Doc
		out.Doc = &doc
	}
	return out
}

// Equal compares payloads structurally. Values round-trip through JSON so a
// decoded content compares equal to the one that was encoded.
func (c Content) Equal(other Content) bool {
	if c.Kind != other.Kind {
		return false
	}
	switch c.Kind {
	case ContentNull:
		return true
	case ContentString:
		return c.Str == other.Str
	case ContentBinary:
		return bytes.Equal(c.Bytes, other.Bytes)
	case ContentValue:
		return jsonEqual(c.Value, other.Value)
	case ContentDoc:
		return c.Doc.GUID == other.Doc.GUID && jsonEqual(c.Doc.Opts, other.Doc.Opts)
	default:
		return false
	}
}

func (c Content) String() string {
	switch c.Kind {
	case ContentNull:
		return "null"
	case ContentString:
		return fmt.Sprintf("%q", c.Str)
	case ContentBinary:
		return fmt.Sprintf("bytes(%d)", len(c.Bytes))
	case ContentValue:
		return fmt.Sprintf("%v", c.Value)
	case ContentDoc:
		return fmt.Sprintf("doc(%s)", c.Doc.GUID)
	default:
		return "content(?)"
	}
}

func jsonEqual(a, b any) bool {
	ja, err := json.Marshal(a)
	if err != nil {
		return false
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
