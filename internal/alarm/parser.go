package alarm

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

// ipcNamespaceDecl is the default namespace every IPC camera puts on the
// root element. It is cut out of the raw text so the extractor can look
// nodes up by their bare names. This is not namespace resolution: any
// other namespace is left in place and its tags will not match.
const ipcNamespaceDecl = `xmlns="http://www.ipc.com/ver10"`

// Node is one element of a parsed payload.
type Node struct {
	Tag      string
	Text     string // character data before the first child element
	Children []*Node
}

// Child returns the first direct child with the given tag, or nil.
func (n *Node) Child(tag string) *Node {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// Parse decodes a raw request body into a document tree.
func Parse(body []byte) (*Node, error) {
	if !utf8.Valid(body) {
		return nil, &DecodeError{Offset: invalidOffset(body)}
	}

	body = bytes.ReplaceAll(body, []byte(ipcNamespaceDecl), nil)

	root, err := decodeTree(xml.NewDecoder(bytes.NewReader(body)))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return root, nil
}

func decodeTree(dec *xml.Decoder) (*Node, error) {
	var (
		root  *Node
		stack []*Node
		// sawChild tracks, per open element, whether Text is closed
		sawChild []bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, errors.New("junk after document element")
			}
			n := &Node{Tag: tagName(t.Name)}
			if len(stack) == 0 {
				root = n
			} else {
				parent := len(stack) - 1
				stack[parent].Children = append(stack[parent].Children, n)
				sawChild[parent] = true
			}
			stack = append(stack, n)
			sawChild = append(sawChild, false)

		case xml.EndElement:
			stack = stack[:len(stack)-1]
			sawChild = sawChild[:len(sawChild)-1]

		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, errors.New("text outside of document element")
				}
				continue
			}
			top := len(stack) - 1
			if !sawChild[top] {
				stack[top].Text += string(t)
			}
		}
	}

	if root == nil {
		return nil, errors.New("no element found")
	}
	return root, nil
}

func tagName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	var b strings.Builder
	b.WriteString("{")
	b.WriteString(name.Space)
	b.WriteString("}")
	b.WriteString(name.Local)
	return b.String()
}

func invalidOffset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(b)
}
