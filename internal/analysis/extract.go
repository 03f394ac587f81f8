package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

type Kind int

const (
	KindString Kind = iota
	KindArray
	KindObject
	KindNumber
	KindBool
	KindNull
)

// Node is a decoded webhook response. Object members keep document order so
// extraction is stable across runs.
type Node struct {
	Kind    Kind
	Str     string
	Items   []*Node
	Members []Member
}

type Member struct {
	Key   string
	Value *Node
}

// maxDepth bounds array and object nesting in a webhook body.
const maxDepth = 1000

var errTooDeep = errors.New("json nested too deeply")

// ParseBody decodes body as JSON. A body that is not a single JSON value, or
// that nests deeper than maxDepth, is taken verbatim as a string.
func ParseBody(body []byte) *Node {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	node, err := decodeNode(dec, 0)
	if err == nil {
		if _, err = dec.Token(); errors.Is(err, io.EOF) {
			return node
		}
	}
	return &Node{Kind: KindString, Str: string(body)}
}

func decodeNode(dec *json.Decoder, depth int) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		if depth >= maxDepth {
			return nil, errTooDeep
		}
		switch v {
		case '[':
			n := &Node{Kind: KindArray}
			for dec.More() {
				item, err := decodeNode(dec, depth+1)
				if err != nil {
					return nil, err
				}
				n.Items = append(n.Items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '{':
			n := &Node{Kind: KindObject}
			index := map[string]int{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, errors.New("object key is not a string")
				}
				val, err := decodeNode(dec, depth+1)
				if err != nil {
					return nil, err
				}
				// a repeated key keeps its first position and its last value
				if i, seen := index[key]; seen {
					n.Members[i].Value = val
					continue
				}
				index[key] = len(n.Members)
				n.Members = append(n.Members, Member{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		}
		return nil, errors.New("unexpected delimiter")
	case string:
		return &Node{Kind: KindString, Str: v}, nil
	case json.Number:
		return &Node{Kind: KindNumber, Str: v.String()}, nil
	case bool:
		return &Node{Kind: KindBool, Str: strconv.FormatBool(v)}, nil
	case nil:
		return &Node{Kind: KindNull}, nil
	}
	return nil, errors.New("unexpected token")
}

// OrderedMembers returns members in property enumeration order: array index
// keys ascending, then the remaining keys in document order.
func (n *Node) OrderedMembers() []Member {
	var indexed, named []Member
	for _, m := range n.Members {
		if _, ok := arrayIndex(m.Key); ok {
			indexed = append(indexed, m)
		} else {
			named = append(named, m)
		}
	}
	sort.SliceStable(indexed, func(i, j int) bool {
		a, _ := arrayIndex(indexed[i].Key)
		b, _ := arrayIndex(indexed[j].Key)
		return a < b
	})
	return append(indexed, named...)
}

func arrayIndex(key string) (uint64, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	v, err := strconv.ParseUint(key, 10, 32)
	if err != nil || v == 1<<32-1 {
		return 0, false
	}
	return v, true
}

const pieceSeparator = "\n\n"

// ExtractText concatenates string leaves depth-first. Every child of an array
// or object contributes one piece, empty for numbers, booleans and null, and
// pieces are joined with a blank line.
func ExtractText(n *Node) string {
	switch n.Kind {
	case KindString:
		return n.Str
	case KindArray:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			parts[i] = ExtractText(item)
		}
		return strings.Join(parts, pieceSeparator)
	case KindObject:
		members := n.OrderedMembers()
		parts := make([]string, len(members))
		for i, m := range members {
			parts[i] = ExtractText(m.Value)
		}
		return strings.Join(parts, pieceSeparator)
	default:
		return ""
	}
}

// DisplayText turns a raw webhook body into the text shown to the user.
// When no text can be extracted it falls back to the body pretty-printed
// with two-space indentation.
func DisplayText(body []byte) (string, error) {
	if len(trimJS(string(body))) == 0 {
		return "", ErrEmptyResult
	}

	node := ParseBody(body)
	text := trimJS(ExtractText(node))
	if text == "" {
		text = node.Pretty()
	}
	if text == "" {
		return "", ErrEmptyResult
	}
	return text, nil
}

func trimJS(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}

// Pretty renders the node as indented JSON.
func (n *Node) Pretty() string {
	var b strings.Builder
	n.writeIndented(&b, "")
	return b.String()
}

func (n *Node) writeIndented(b *strings.Builder, indent string) {
	const step = "  "
	switch n.Kind {
	case KindString:
		b.WriteString(quote(n.Str))
	case KindNumber:
		b.WriteString(formatNumber(n.Str))
	case KindBool:
		b.WriteString(n.Str)
	case KindNull:
		b.WriteString("null")
	case KindArray:
		if len(n.Items) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteString("[\n")
		for i, item := range n.Items {
			b.WriteString(indent + step)
			item.writeIndented(b, indent+step)
			if i < len(n.Items)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString(indent + "]")
	case KindObject:
		members := n.OrderedMembers()
		if len(members) == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteString("{\n")
		for i, m := range members {
			b.WriteString(indent + step)
			b.WriteString(quote(m.Key))
			b.WriteString(": ")
			m.Value.writeIndented(b, indent+step)
			if i < len(members)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString(indent + "}")
	}
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// formatNumber renders a JSON number the way a double prints: shortest
// round-trip digits, exponent form outside [1e-6, 1e21), overflow as null.
func formatNumber(raw string) string {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "null"
	}
	if f == 0 {
		return "0"
	}
	abs := f
	if abs < 0 {
		abs = -abs
	}
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		if digits == "" {
			digits = "0"
		}
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
