package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrInvalidInput marks a malformed box: a bad bbox, an unknown category or
// a list that does not decode.
var ErrInvalidInput = errors.New("invalid input")

// BBox is an axis-aligned bounding box in page pixels: x1, y1, x2, y2.
type BBox [4]float64

func (b BBox) Width() float64  { return b[2] - b[0] }
func (b BBox) Height() float64 { return b[3] - b[1] }

// Check reports why b is not a usable box, or nil.
func (b BBox) Check() error {
	for i, v := range b {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bbox coordinate %d is not finite", i)
		}
		if v < 0 {
			return fmt.Errorf("bbox coordinate %d is negative (%g)", i, v)
		}
	}
	if b[0] > b[2] {
		return fmt.Errorf("bbox x1 %g > x2 %g", b[0], b[2])
	}
	if b[1] > b[3] {
		return fmt.Errorf("bbox y1 %g > y2 %g", b[1], b[3])
	}
	return nil
}

// Clamp limits all coordinates to [0, width] x [0, height].
// A non-positive width or height leaves that axis unbounded above.
func (b BBox) Clamp(width, height float64) BBox {
	for i := range b {
		limit := width
		if i%2 == 1 {
			limit = height
		}
		if b[i] < 0 {
			b[i] = 0
		}
		if limit > 0 && b[i] > limit {
			b[i] = limit
		}
	}
	return b
}

// Union returns the smallest box containing both b and o.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		math.Min(b[0], o[0]),
		math.Min(b[1], o[1]),
		math.Max(b[2], o[2]),
		math.Max(b[3], o[3]),
	}
}

// Box is one layout element in the wire format:
//
//	{"bbox": [x1, y1, x2, y2], "category": "Text", "text": "..."}
//
// An "id" key on input becomes ID and is never written back. Unknown keys are
// kept in Extra and written after the known ones so that a load followed by a
// save reproduces the input.
type Box struct {
	ID       string
	BBox     BBox
	Category Category
	Text     *string
	Extra    map[string]json.RawMessage
}

// TextValue returns the box text, or "" when the box has none.
func (b Box) TextValue() string {
	if b.Text == nil {
		return ""
	}
	return *b.Text
}

// Clone returns a deep copy of b.
func (b Box) Clone() Box {
	c := b
	if b.Text != nil {
		t := *b.Text
		c.Text = &t
	}
	if b.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(b.Extra))
		for k, v := range b.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

// StringPtr returns a pointer to s, for building boxes with text.
func StringPtr(s string) *string {
	return &s
}

func (b *Box) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("box is not an object: %w", err)
	}
	if fields == nil {
		return fmt.Errorf("box is null")
	}

	rawBBox, ok := fields["bbox"]
	if !ok {
		return fmt.Errorf("box is missing bbox")
	}
	var coords []float64
	if err := json.Unmarshal(rawBBox, &coords); err != nil {
		return fmt.Errorf("bbox must be an array of numbers: %w", err)
	}
	if len(coords) != 4 {
		return fmt.Errorf("bbox must have 4 coordinates, got %d", len(coords))
	}

	rawCategory, ok := fields["category"]
	if !ok {
		return fmt.Errorf("box is missing category")
	}
	var name string
	if err := json.Unmarshal(rawCategory, &name); err != nil {
		return fmt.Errorf("category must be a string: %w", err)
	}
	category, err := ParseCategory(name)
	if err != nil {
		return err
	}

	out := Box{Category: category}
	copy(out.BBox[:], coords)

	if rawText, ok := fields["text"]; ok && string(rawText) != "null" {
		var text string
		if err := json.Unmarshal(rawText, &text); err != nil {
			return fmt.Errorf("text must be a string: %w", err)
		}
		out.Text = &text
	}

	if rawID, ok := fields["id"]; ok {
		id, err := decodeID(rawID)
		if err != nil {
			return err
		}
		out.ID = id
	}

	for k, v := range fields {
		switch k {
		case "bbox", "category", "text", "id":
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[k] = append(json.RawMessage(nil), v...)
	}

	*b = out
	return nil
}

// decodeID accepts string and numeric ids.
func decodeID(raw json.RawMessage) (string, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("invalid id: %w", err)
	}
	switch id := v.(type) {
	case string:
		return id, nil
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("id must be a string or number")
	}
}

func (b Box) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"bbox":[`)
	for i, v := range b.BBox {
		if i > 0 {
			buf.WriteByte(',')
		}
		n, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode bbox: %w", err)
		}
		buf.Write(n)
	}
	buf.WriteString(`],"category":`)
	category, _ := json.Marshal(string(b.Category))
	buf.Write(category)

	if b.Text != nil {
		text, err := json.Marshal(*b.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to encode text: %w", err)
		}
		buf.WriteString(`,"text":`)
		buf.Write(text)
	}

	for _, k := range b.extraKeys() {
		key, _ := json.Marshal(k)
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(b.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (b Box) extraKeys() []string {
	keys := make([]string, 0, len(b.Extra))
	for k := range b.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalYAML keeps the wire field order in YAML exports.
func (b Box) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}

	bbox := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range b.BBox {
		bbox.Content = append(bbox.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Value: strconv.FormatFloat(v, 'f', -1, 64),
		})
	}
	node.Content = append(node.Content, scalarNode("bbox"), bbox)
	node.Content = append(node.Content, scalarNode("category"), scalarNode(string(b.Category)))
	if b.Text != nil {
		node.Content = append(node.Content, scalarNode("text"), scalarNode(*b.Text))
	}

	for _, k := range b.extraKeys() {
		var v interface{}
		if err := json.Unmarshal(b.Extra[k], &v); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", k, err)
		}
		var value yaml.Node
		if err := value.Encode(v); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", k, err)
		}
		node.Content = append(node.Content, scalarNode(k), &value)
	}
	return node, nil
}

func scalarNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// DecodeBoxes parses a wire-format box list.
func DecodeBoxes(data []byte) ([]Box, error) {
	var boxes []Box
	if err := json.Unmarshal(data, &boxes); err != nil {
		return nil, fmt.Errorf("%w: failed to decode boxes: %w", ErrInvalidInput, err)
	}
	if boxes == nil {
		boxes = []Box{}
	}
	return boxes, nil
}

// EncodeBoxes writes a box list in the indented wire format.
func EncodeBoxes(boxes []Box) ([]byte, error) {
	if boxes == nil {
		boxes = []Box{}
	}
	data, err := json.MarshalIndent(boxes, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode boxes: %w", err)
	}
	return data, nil
}
