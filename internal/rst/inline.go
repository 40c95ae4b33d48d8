package rst

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	rolePrefixRe  = regexp.MustCompile("^:([A-Za-z0-9]+(?:[-._+:][A-Za-z0-9]+)*):`")
	roleSuffixRe  = regexp.MustCompile(`^:([A-Za-z0-9]+(?:[-._+:][A-Za-z0-9]+)*):`)
	embeddedURIRe = regexp.MustCompile(`(?s)^(.*?)\s*<([^<>]+)>$`)
	simpleRefRe   = regexp.MustCompile(`^[A-Za-z0-9]+(?:[-._+:][A-Za-z0-9]+)*(__?)`)
	standaloneRe  = regexp.MustCompile(`^(?:(?:https?|ftp|file)://|mailto:)[^\s<>"]+`)
)

type inliner struct {
	p     *parser
	text  string
	line  int
	buf   strings.Builder
	nodes []*Node
	msgs  []*Node
}

// parseInline parses inline markup. Diagnostics are returned separately so
// the caller can place them after the enclosing block.
func (p *parser) parseInline(text string, line int) (nodes, msgs []*Node) {
	in := &inliner{p: p, text: text, line: line}
	in.run()
	return in.nodes, in.msgs
}

func (in *inliner) run() {
	s := in.text
	for i := 0; i < len(s); {
		if s[i] == '\\' {
			i = in.escape(i)
			continue
		}
		if in.startAllowed(i) {
			if next := in.markup(i); next > i {
				i = next
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		in.buf.WriteRune(r)
		i += size
	}
	in.flush()
}

func (in *inliner) escape(i int) int {
	if i+1 >= len(in.text) {
		return i + 1
	}
	r, size := utf8.DecodeRuneInString(in.text[i+1:])
	if !unicode.IsSpace(r) {
		in.buf.WriteRune(r)
	}
	return i + 1 + size
}

func (in *inliner) flush() {
	if in.buf.Len() > 0 {
		in.nodes = append(in.nodes, textNode(in.buf.String()))
		in.buf.Reset()
	}
}

func (in *inliner) emit(nodes ...*Node) {
	in.flush()
	in.nodes = append(in.nodes, nodes...)
}

func (in *inliner) startAllowed(i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(in.text[:i])
	return unicode.IsSpace(r) || strings.ContainsRune(`'"([{<-/:`, r) ||
		unicode.In(r, unicode.Ps, unicode.Pi, unicode.Pd)
}

func (in *inliner) endAllowed(i int) bool {
	if i >= len(in.text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(in.text[i:])
	return unicode.IsSpace(r) || strings.ContainsRune(`'")]}>-/:.,;!?\`, r) ||
		unicode.In(r, unicode.Pe, unicode.Pf, unicode.Pd, unicode.Po)
}

// markup tries to parse inline markup starting at i. It returns the index
// after the construct, or i if there is none.
func (in *inliner) markup(i int) int {
	s := in.text[i:]
	switch {
	case strings.HasPrefix(s, "**"):
		return in.simple(i, "**", KindStrong)
	case strings.HasPrefix(s, "``"):
		return in.literal(i)
	case s[0] == '*':
		return in.simple(i, "*", KindEmphasis)
	case s[0] == '`':
		return in.interpreted(i, i+1, "")
	case s[0] == ':':
		if m := rolePrefixRe.FindStringSubmatch(s); m != nil {
			return in.interpreted(i, i+len(m[0]), m[1])
		}
	case isAlnum(s[0]):
		if m := standaloneRe.FindString(s); m != "" {
			uri := strings.TrimRight(m, `.,;:!?'")]}`)
			ref := &Node{Kind: KindReference, RefURI: uri}
			ref.Append(textNode(uri))
			in.emit(ref)
			return i + len(uri)
		}
		if m := simpleRefRe.FindStringSubmatch(s); m != nil && in.endAllowed(i+len(m[0])) {
			name := strings.TrimSuffix(s[:len(m[0])], m[1])
			ref := &Node{Kind: KindReference, RefName: normalizeName(name)}
			ref.Append(textNode(name))
			in.emit(ref)
			return i + len(m[0])
		}
	}
	return i
}

func isAlnum(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}

// findEnd returns the index of the end-string delim for markup whose
// content starts at start, or -1. suffix reports the length of text that
// may follow the end-string, such as a role or reference marker.
func (in *inliner) findEnd(start int, delim string, escapes bool, suffix func(int) int) int {
	s := in.text
	if start >= len(s) {
		return -1
	}
	if r, _ := utf8.DecodeRuneInString(s[start:]); unicode.IsSpace(r) {
		return -1
	}
	for k := start + 1; k <= len(s)-len(delim); k++ {
		if !strings.HasPrefix(s[k:], delim) {
			continue
		}
		if r, _ := utf8.DecodeLastRuneInString(s[:k]); unicode.IsSpace(r) {
			continue
		}
		if escapes && escaped(s, k) {
			continue
		}
		after := k + len(delim)
		if suffix != nil {
			after += suffix(after)
		}
		if in.endAllowed(after) {
			return k
		}
	}
	return -1
}

// escaped reports whether the byte at k is preceded by an odd number of
// backslashes.
func escaped(s string, k int) bool {
	n := 0
	for j := k - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

func (in *inliner) problematic(i int, start string) int {
	prob := &Node{Kind: KindProblematic}
	prob.Append(textNode(start))
	in.emit(prob)
	in.msgs = append(in.msgs, in.p.message(ReportWarning, in.line, "Inline %s start-string without end-string.", startName(start)))
	return i + len(start)
}

func startName(start string) string {
	switch start {
	case "**":
		return "strong"
	case "*":
		return "emphasis"
	case "``":
		return "literal"
	}
	return "interpreted text or phrase reference"
}

func (in *inliner) simple(i int, delim string, kind Kind) int {
	start := i + len(delim)
	if start >= len(in.text) || unicode.IsSpace(rune(in.text[start])) {
		return i
	}
	k := in.findEnd(start, delim, true, nil)
	if k < 0 {
		return in.problematic(i, delim)
	}
	in.emit(element(kind, textNode(unescape(in.text[start:k]))))
	return k + len(delim)
}

func (in *inliner) literal(i int) int {
	start := i + 2
	if start >= len(in.text) || unicode.IsSpace(rune(in.text[start])) {
		return i
	}
	k := in.findEnd(start, "``", false, nil)
	if k < 0 {
		return in.problematic(i, "``")
	}
	in.emit(element(KindLiteral, textNode(in.text[start:k])))
	return k + 2
}

// interpreted parses interpreted text or a phrase reference. i is the start
// of the construct (including any role prefix), start follows the opening
// backquote.
func (in *inliner) interpreted(i, start int, role string) int {
	if start >= len(in.text) || unicode.IsSpace(rune(in.text[start])) {
		return i
	}
	suffix := func(after int) int {
		rest := in.text[after:]
		switch {
		case role != "":
			return 0
		case strings.HasPrefix(rest, "__"):
			return 2
		case strings.HasPrefix(rest, "_"):
			return 1
		}
		if m := roleSuffixRe.FindString(rest); m != "" {
			return len(m)
		}
		return 0
	}
	k := in.findEnd(start, "`", true, suffix)
	if k < 0 {
		return in.problematic(i, in.text[i:start])
	}
	content := in.text[start:k]
	after := k + 1
	rest := in.text[after:]
	switch {
	case role == "" && strings.HasPrefix(rest, "__"):
		in.phraseRef(content, true)
		return after + 2
	case role == "" && strings.HasPrefix(rest, "_"):
		in.phraseRef(content, false)
		return after + 1
	case role == "":
		if m := roleSuffixRe.FindStringSubmatch(rest); m != nil {
			role = m[1]
			after += len(m[0])
		}
	}
	in.role(role, content, in.text[i:after])
	return after
}

func (in *inliner) phraseRef(content string, anonymous bool) {
	if m := embeddedURIRe.FindStringSubmatch(content); m != nil {
		uri := strings.Join(strings.Fields(m[2]), "")
		text := unescape(m[1])
		if text == "" {
			text = uri
		}
		ref := &Node{Kind: KindReference, RefURI: uri}
		ref.Append(textNode(text))
		nodes := []*Node{ref}
		if !anonymous {
			nodes = append(nodes, &Node{Kind: KindTarget, RefURI: uri, Names: []string{normalizeName(text)}})
		}
		in.emit(nodes...)
		return
	}
	text := unescape(content)
	ref := &Node{Kind: KindReference}
	if !anonymous {
		ref.RefName = normalizeName(text)
	}
	ref.Append(textNode(text))
	in.emit(ref)
}

func (in *inliner) role(name, content, raw string) {
	text := unescape(content)
	switch strings.ToLower(name) {
	case "", "title-reference", "title", "t":
		in.emit(element(KindTitleReference, textNode(text)))
	case "emphasis":
		in.emit(element(KindEmphasis, textNode(text)))
	case "strong":
		in.emit(element(KindStrong, textNode(text)))
	case "literal", "code":
		in.emit(element(KindLiteral, textNode(text)))
	case "subscript", "sub":
		in.emit(opaqueInline("subscript", text))
	case "superscript", "sup":
		in.emit(opaqueInline("superscript", text))
	case "abbreviation", "ab":
		in.emit(opaqueInline("abbreviation", text))
	case "acronym", "ac":
		in.emit(opaqueInline("acronym", text))
	case "math":
		in.emit(opaqueInline("math", text))
	default:
		prob := &Node{Kind: KindProblematic, Name: name}
		prob.Append(textNode(raw))
		in.emit(prob)
		in.msgs = append(in.msgs, in.p.message(ReportError, in.line, "Unknown interpreted text role %q.", name))
	}
}

func opaqueInline(name, text string) *Node {
	n := &Node{Kind: KindUnknown, Name: name}
	n.Append(textNode(text))
	return n
}
