// Package rst parses the subset of reStructuredText used in API docstrings
// into a document tree and renders that tree to HTML.
//
// The tree mirrors the docutils doctree: every construct the parser
// recognizes but does not model precisely (sections, tables, admonitions
// and so on) is kept as a KindUnknown node named after its docutils element,
// so that consumers can reject it explicitly.
package rst

import (
	"fmt"
	"strings"
)

// Kind identifies the type of a Node.
type Kind int

const (
	KindDocument Kind = iota
	KindParagraph
	KindText
	KindEmphasis
	KindStrong
	KindLiteral
	KindReference
	KindTarget
	KindTitleReference
	KindFieldList
	KindField
	KindFieldName
	KindFieldBody
	KindBulletList
	KindListItem
	KindLiteralBlock
	KindBlockQuote
	KindWarning
	KindProblematic
	KindSystemMessage
	KindUnknown
)

var kindNames = [...]string{
	KindDocument:       "document",
	KindParagraph:      "paragraph",
	KindText:           "Text",
	KindEmphasis:       "emphasis",
	KindStrong:         "strong",
	KindLiteral:        "literal",
	KindReference:      "reference",
	KindTarget:         "target",
	KindTitleReference: "title_reference",
	KindFieldList:      "field_list",
	KindField:          "field",
	KindFieldName:      "field_name",
	KindFieldBody:      "field_body",
	KindBulletList:     "bullet_list",
	KindListItem:       "list_item",
	KindLiteralBlock:   "literal_block",
	KindBlockQuote:     "block_quote",
	KindWarning:        "warning",
	KindProblematic:    "problematic",
	KindSystemMessage:  "system_message",
	KindUnknown:        "unknown",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// A Node is an element of a parsed document.
type Node struct {
	Kind Kind
	// Name is the docutils element name of a KindUnknown node (for example
	// "section" or "note"), and the role name of a KindProblematic node.
	Name string
	// Text is the content of a KindText node and the message of a
	// KindSystemMessage node.
	Text string
	// RefURI is the target URI of a KindReference or KindTarget node.
	RefURI string
	// RefName is the normalized reference name of a KindReference node
	// that points to a named target.
	RefName string
	// Names are the normalized names declared by a KindTarget node.
	Names []string
	// Level and Line locate the diagnostic of a KindSystemMessage node.
	Level ReportLevel
	Line  int

	Parent   *Node
	Children []*Node
}

// TypeName returns the docutils element name of n.
func (n *Node) TypeName() string {
	if n.Kind == KindUnknown && n.Name != "" {
		return n.Name
	}
	return n.Kind.String()
}

// Append adds children to n.
func (n *Node) Append(children ...*Node) {
	for _, c := range children {
		c.Parent = n
		n.Children = append(n.Children, c)
	}
}

// AsText returns the text content of n and its descendants. Children of
// block elements are separated by a blank line.
func (n *Node) AsText() string {
	switch n.Kind {
	case KindText:
		return n.Text
	case KindSystemMessage:
		return ""
	}
	sep := "\n\n"
	if n.isTextElement() {
		sep = ""
	}
	parts := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		parts = append(parts, c.AsText())
	}
	return strings.Join(parts, sep)
}

func (n *Node) isTextElement() bool {
	switch n.Kind {
	case KindParagraph, KindEmphasis, KindStrong, KindLiteral, KindReference,
		KindTarget, KindTitleReference, KindFieldName, KindLiteralBlock, KindProblematic:
		return true
	}
	return false
}

// Walk traverses n in depth-first order. If f returns false for a node,
// its children are skipped.
func (n *Node) Walk(f func(*Node) bool) {
	if !f(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(f)
	}
}

// Prune removes every descendant of n of the given kind.
func Prune(n *Node, kind Kind) {
	kept := n.Children[:0]
	for _, c := range n.Children {
		if c.Kind == kind {
			c.Parent = nil
			continue
		}
		Prune(c, kind)
		kept = append(kept, c)
	}
	for i := len(kept); i < len(n.Children); i++ {
		n.Children[i] = nil
	}
	n.Children = kept
}

func textNode(s string) *Node {
	return &Node{Kind: KindText, Text: s}
}

func element(kind Kind, children ...*Node) *Node {
	n := &Node{Kind: kind}
	n.Append(children...)
	return n
}

// normalizeName folds case and whitespace of a reference name.
func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
