package rst

import (
	"strings"

	"github.com/google/safehtml"
	"github.com/google/safehtml/uncheckedconversions"
)

var simpleTags = map[Kind]string{
	KindParagraph:      "p",
	KindEmphasis:       "em",
	KindStrong:         "strong",
	KindLiteral:        "code",
	KindTitleReference: "cite",
	KindBulletList:     "ul",
	KindListItem:       "li",
	KindFieldName:      "dt",
	KindFieldBody:      "dd",
	KindBlockQuote:     "blockquote",
}

var inlineUnknownTags = map[string]string{
	"subscript":    "sub",
	"superscript":  "sup",
	"abbreviation": "abbr",
	"acronym":      "abbr",
	"math":         "span",
}

// HTML renders the tree rooted at n. Targets and system messages produce
// no output.
func HTML(n *Node) safehtml.HTML {
	var b strings.Builder
	writeHTML(&b, n)
	// Every text and attribute value is escaped by writeHTML.
	return uncheckedconversions.HTMLFromStringKnownToSatisfyTypeContract(b.String())
}

func writeHTML(b *strings.Builder, n *Node) {
	if tag, ok := simpleTags[n.Kind]; ok {
		b.WriteString("<" + tag + ">")
		writeChildren(b, n)
		b.WriteString("</" + tag + ">")
		return
	}
	switch n.Kind {
	case KindText:
		b.WriteString(escape(n.Text))
	case KindDocument, KindField:
		writeChildren(b, n)
	case KindTarget, KindSystemMessage:
	case KindReference:
		href := "#" + n.RefName
		if n.RefURI != "" {
			href = safehtml.URLSanitized(n.RefURI).String()
		}
		b.WriteString(`<a href="` + escape(href) + `">`)
		writeChildren(b, n)
		b.WriteString("</a>")
	case KindFieldList:
		b.WriteString(`<dl class="field-list">`)
		writeChildren(b, n)
		b.WriteString("</dl>")
	case KindLiteralBlock:
		b.WriteString(`<pre class="literal-block">`)
		writeChildren(b, n)
		b.WriteString("</pre>")
	case KindWarning:
		b.WriteString(`<div class="admonition warning"><p class="admonition-title">Warning</p>`)
		writeChildren(b, n)
		b.WriteString("</div>")
	case KindProblematic:
		b.WriteString(`<span class="problematic">`)
		writeChildren(b, n)
		b.WriteString("</span>")
	case KindUnknown:
		if tag, ok := inlineUnknownTags[n.Name]; ok {
			b.WriteString("<" + tag + ">")
			writeChildren(b, n)
			b.WriteString("</" + tag + ">")
			return
		}
		b.WriteString(`<div class="` + escape(n.Name) + `">`)
		if len(n.Children) == 1 && n.Children[0].Kind == KindText {
			b.WriteString("<pre>" + escape(n.Children[0].Text) + "</pre>")
		} else {
			writeChildren(b, n)
		}
		b.WriteString("</div>")
	}
}

func writeChildren(b *strings.Builder, n *Node) {
	for _, c := range n.Children {
		writeHTML(b, c)
	}
}

func escape(s string) string {
	return safehtml.HTMLEscaped(s).String()
}
