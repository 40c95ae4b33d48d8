package rst

import (
	"regexp"
	"strings"
	"unicode"
)

// Parse parses text into a document tree. It never fails: markup it cannot
// interpret becomes KindSystemMessage nodes, reported according to opts.
func Parse(text string, opts Options) *Node {
	p := &parser{opts: opts}
	doc := &Node{Kind: KindDocument}
	p.parseBlocks(doc, splitLines(text))
	return doc
}

type parser struct {
	opts Options
}

type line struct {
	text string
	num  int
}

func splitLines(text string) []line {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var lines []line
	for i, s := range strings.Split(text, "\n") {
		lines = append(lines, line{text: strings.TrimRightFunc(expandTabs(s), unicode.IsSpace), num: i + 1})
	}
	return lines
}

func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := 8 - col%8
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col++
	}
	return b.String()
}

func isBlank(l line) bool { return l.text == "" }

func indentOf(s string) int { return len(s) - len(strings.TrimLeft(s, " ")) }

// indentedEnd returns the index of the first line at or after i that is
// neither blank nor indented.
func indentedEnd(lines []line, i int) int {
	for i < len(lines) && (isBlank(lines[i]) || indentOf(lines[i].text) > 0) {
		i++
	}
	return i
}

func trimTrailing(lines []line) []line {
	for len(lines) > 0 && isBlank(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// trimBlank removes leading and trailing blank lines.
func trimBlank(lines []line) []line {
	for len(lines) > 0 && isBlank(lines[0]) {
		lines = lines[1:]
	}
	return trimTrailing(lines)
}

// dedent removes the common indentation of the non-blank lines.
func dedent(lines []line) []line {
	min := -1
	for _, l := range lines {
		if isBlank(l) {
			continue
		}
		if n := indentOf(l.text); min < 0 || n < min {
			min = n
		}
	}
	out := make([]line, len(lines))
	for i, l := range lines {
		out[i] = l
		if !isBlank(l) {
			out[i].text = l.text[min:]
		}
	}
	return out
}

func joinText(lines []line) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.text
	}
	return strings.Join(parts, "\n")
}

func (p *parser) parseBlocks(parent *Node, lines []line) {
	for i := 0; i < len(lines); {
		l := lines[i]
		if isBlank(l) {
			i++
			continue
		}
		if indentOf(l.text) > 0 {
			end := indentedEnd(lines, i)
			bq := &Node{Kind: KindBlockQuote}
			p.parseBlocks(bq, dedent(trimBlank(lines[i:end])))
			parent.Append(bq)
			i = end
			continue
		}
		s := l.text
		switch {
		case s == ".." || strings.HasPrefix(s, ".. "):
			i = p.parseExplicit(parent, lines, i)
		case isFieldMarker(s):
			i = p.parseFieldList(parent, lines, i)
		case bulletOf(s) != 0:
			i = p.parseBulletList(parent, lines, i)
		case isEnumerated(lines, i):
			i = p.parseOpaque(parent, lines, i, "enumerated_list")
		case strings.HasPrefix(s, ">>>"):
			i = p.parseOpaque(parent, lines, i, "doctest_block")
		case s == "|" || strings.HasPrefix(s, "| "):
			i = p.parseOpaque(parent, lines, i, "line_block")
		case strings.HasPrefix(s, "+-") || tableBorderRe.MatchString(s):
			i = p.parseOpaque(parent, lines, i, "table")
		case isAdornment(s):
			name := "transition"
			if i+2 < len(lines) && !isBlank(lines[i+1]) && isAdornment(lines[i+2].text) {
				name = "section"
			}
			i = p.parseOpaque(parent, lines, i, name)
		default:
			i = p.parseParagraph(parent, lines, i)
		}
	}
}

var (
	tableBorderRe = regexp.MustCompile(`^=+( +=+)+$`)
	enumeratorRe  = regexp.MustCompile(`^(?:\d+|[A-Za-z#])[.)]( |$)|^\((?:\d+|[A-Za-z#])\)( |$)`)
)

func isAdornment(s string) bool {
	if len(s) < 4 {
		return false
	}
	c := rune(s[0])
	if !unicode.IsPunct(c) && !unicode.IsSymbol(c) {
		return false
	}
	for _, r := range s {
		if r != c {
			return false
		}
	}
	return true
}

func isEnumerated(lines []line, i int) bool {
	if !enumeratorRe.MatchString(lines[i].text) {
		return false
	}
	return i+1 == len(lines) || isBlank(lines[i+1]) || indentOf(lines[i+1].text) > 0
}

// parseOpaque records a construct without a precise model: everything up to
// the next blank line, plus an indented continuation.
func (p *parser) parseOpaque(parent *Node, lines []line, i int, name string) int {
	end := i
	for end < len(lines) && !isBlank(lines[end]) {
		end++
	}
	end = indentedEnd(lines, end)
	n := &Node{Kind: KindUnknown, Name: name}
	n.Append(textNode(joinText(trimBlank(lines[i:end]))))
	parent.Append(n)
	return end
}

func (p *parser) parseParagraph(parent *Node, lines []line, i int) int {
	end := i
	for end < len(lines) && !isBlank(lines[end]) && indentOf(lines[end].text) == 0 {
		end++
	}
	if end-i == 2 && isAdornment(lines[i+1].text) && len(lines[i+1].text) >= len(lines[i].text) {
		return p.parseOpaque(parent, lines, i, "section")
	}

	text := joinText(lines[i:end])
	if strings.HasSuffix(text, "::") {
		switch {
		case text == "::":
			text = ""
		case unicode.IsSpace(rune(text[len(text)-3])):
			text = strings.TrimRightFunc(text[:len(text)-2], unicode.IsSpace)
		default:
			text = text[:len(text)-1]
		}
		if text != "" {
			p.appendParagraph(parent, text, lines[i].num)
		}
		return p.parseLiteralBlock(parent, lines, end)
	}

	if end < len(lines) && !isBlank(lines[end]) {
		// An indented line directly below a single line is a definition
		// list item; below a longer paragraph it starts a block quote.
		if end-i == 1 {
			next := indentedEnd(lines, end)
			n := &Node{Kind: KindUnknown, Name: "definition_list"}
			n.Append(textNode(joinText(trimBlank(lines[i:next]))))
			parent.Append(n)
			return next
		}
		p.appendParagraph(parent, text, lines[i].num)
		parent.Append(p.message(ReportError, lines[end].num, "Unexpected indentation."))
		return end
	}
	p.appendParagraph(parent, text, lines[i].num)
	return end
}

func (p *parser) appendParagraph(parent *Node, text string, num int) {
	nodes, msgs := p.parseInline(text, num)
	parent.Append(element(KindParagraph, nodes...))
	parent.Append(msgs...)
}

func (p *parser) parseLiteralBlock(parent *Node, lines []line, i int) int {
	j := i
	for j < len(lines) && isBlank(lines[j]) {
		j++
	}
	if j == len(lines) || indentOf(lines[j].text) == 0 {
		num := len(lines)
		if j < len(lines) {
			num = lines[j].num
		}
		parent.Append(p.message(ReportWarning, num, "Literal block expected; none found."))
		return j
	}
	end := indentedEnd(lines, j)
	block := dedent(trimBlank(lines[j:end]))
	parent.Append(element(KindLiteralBlock, textNode(joinText(block))))
	return end
}

// fieldMarker splits a field list line into its field name and the rest of
// the line.
func fieldMarker(s string) (name, rest string, ok bool) {
	if len(s) < 3 || s[0] != ':' || s[1] == ' ' || s[1] == ':' {
		return "", "", false
	}
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case ':':
			if i+1 < len(s) && s[i+1] == '`' {
				return "", "", false
			}
			if i+1 == len(s) || s[i+1] == ' ' {
				if s[i-1] == ' ' {
					return "", "", false
				}
				return s[1:i], strings.TrimLeft(s[i+1:], " "), true
			}
		}
	}
	return "", "", false
}

func isFieldMarker(s string) bool {
	_, _, ok := fieldMarker(s)
	return ok
}

func (p *parser) parseFieldList(parent *Node, lines []line, i int) int {
	fl := &Node{Kind: KindFieldList}
	for i < len(lines) {
		name, rest, ok := fieldMarker(lines[i].text)
		if !ok {
			break
		}
		end := indentedEnd(lines, i+1)
		body := append([]line{{text: rest, num: lines[i].num}}, dedent(lines[i+1:end])...)
		fbody := &Node{Kind: KindFieldBody}
		p.parseBlocks(fbody, trimBlank(body))
		fl.Append(element(KindField, element(KindFieldName, textNode(unescape(name))), fbody))
		i = end
	}
	parent.Append(fl)
	return i
}

func bulletOf(s string) byte {
	if s == "" || !strings.ContainsRune("*-+", rune(s[0])) {
		return 0
	}
	if len(s) > 1 && s[1] != ' ' {
		return 0
	}
	return s[0]
}

func (p *parser) parseBulletList(parent *Node, lines []line, i int) int {
	bullet := bulletOf(lines[i].text)
	bl := &Node{Kind: KindBulletList}
	for i < len(lines) && bulletOf(lines[i].text) == bullet {
		rest := strings.TrimLeft(lines[i].text[1:], " ")
		end := indentedEnd(lines, i+1)
		body := append([]line{{text: rest, num: lines[i].num}}, dedent(lines[i+1:end])...)
		item := &Node{Kind: KindListItem}
		p.parseBlocks(item, trimBlank(body))
		bl.Append(item)
		i = end
	}
	parent.Append(bl)
	return i
}

var directiveRe = regexp.MustCompile(`^\.\.\s+([\w.:+-]+?)::(?:\s+(.*))?$`)

// Directives with a docutils element but no model here.
var opaqueDirectives = map[string]bool{
	"attention": true, "caution": true, "danger": true, "error": true,
	"hint": true, "important": true, "note": true, "tip": true,
	"admonition": true, "image": true, "figure": true, "topic": true,
	"sidebar": true, "rubric": true, "epigraph": true, "highlights": true,
	"pull-quote": true, "compound": true, "container": true, "table": true,
	"csv-table": true, "list-table": true, "contents": true, "raw": true,
	"math": true, "line-block": true,
}

func (p *parser) parseExplicit(parent *Node, lines []line, i int) int {
	end := indentedEnd(lines, i+1)
	first := lines[i]
	block := trimTrailing(lines[i+1 : end])
	body := strings.TrimSpace(strings.TrimPrefix(first.text, ".."))

	if m := directiveRe.FindStringSubmatch(first.text); m != nil {
		p.directive(parent, strings.ToLower(m[1]), m[2], first.num, block)
		return end
	}
	switch {
	case strings.HasPrefix(body, "_"):
		parent.Append(p.target(body[1:], block))
	case strings.HasPrefix(body, "|"):
		parent.Append(opaque("substitution_definition", first, block))
	case strings.HasPrefix(body, "["):
		parent.Append(opaque("footnote", first, block))
	default:
		parent.Append(opaque("comment", first, block))
	}
	return end
}

func opaque(name string, first line, block []line) *Node {
	n := &Node{Kind: KindUnknown, Name: name}
	n.Append(textNode(joinText(append([]line{first}, trimBlank(block)...))))
	return n
}

// target parses the remainder of ".. _name: uri".
func (p *parser) target(s string, block []line) *Node {
	var name, uri string
	if strings.HasPrefix(s, "`") {
		if k := strings.Index(s[1:], "`:"); k >= 0 {
			name, uri = s[1:k+1], s[k+3:]
		}
	} else if k := strings.Index(s, ":"); k >= 0 {
		name, uri = s[:k], s[k+1:]
	}
	if len(block) > 0 {
		uri += " " + joinText(block)
	}
	t := &Node{Kind: KindTarget, RefURI: strings.Join(strings.Fields(uri), "")}
	if name = normalizeName(unescape(name)); name != "" && name != "_" {
		t.Names = []string{name}
	}
	return t
}

func (p *parser) directive(parent *Node, name, args string, num int, block []line) {
	switch {
	case name == "warning":
		w := &Node{Kind: KindWarning}
		p.parseBlocks(w, directiveContent(args, num, block))
		parent.Append(w)
	case name == "parsed-literal":
		lit := &Node{Kind: KindLiteralBlock}
		nodes, msgs := p.parseInline(joinText(directiveContent(args, num, block)), num)
		lit.Append(nodes...)
		parent.Append(lit)
		parent.Append(msgs...)
	case name == "code" || name == "code-block" || name == "sourcecode":
		content := skipOptions(dedent(block))
		parent.Append(element(KindLiteralBlock, textNode(joinText(content))))
	case opaqueDirectives[name]:
		n := &Node{Kind: KindUnknown, Name: name}
		p.parseBlocks(n, directiveContent(args, num, block))
		parent.Append(n)
	default:
		parent.Append(p.message(ReportError, num, "Unknown directive type %q.", name))
	}
}

// directiveContent returns the body of a directive that takes no
// arguments: text on the directive line continues into the indented block.
func directiveContent(args string, num int, block []line) []line {
	content := dedent(block)
	if args != "" {
		content = append([]line{{text: args, num: num}}, content...)
	}
	return skipOptions(content)
}

// skipOptions drops a directive option block such as ":linenos:" directly
// below the directive line.
func skipOptions(lines []line) []line {
	k := 0
	for k < len(lines) && isFieldMarker(lines[k].text) {
		k++
	}
	return trimBlank(lines[k:])
}

// unescape resolves backslash escapes. An escaped whitespace character is
// removed along with its backslash.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		if rs[i] != '\\' {
			b.WriteRune(rs[i])
			continue
		}
		i++
		if i < len(rs) && !unicode.IsSpace(rs[i]) {
			b.WriteRune(rs[i])
		}
	}
	return b.String()
}
