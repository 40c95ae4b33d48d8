package apidoc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Zachacious/go-apidoc/internal/derrors"
	"github.com/Zachacious/go-apidoc/internal/rst"
)

var (
	examplesRe = regexp.MustCompile(`\*\*Examples?:\*\*`)

	httpArgRe     = regexp.MustCompile(`(:http:.*)\(\w+\)`)
	httpOptArgRe  = regexp.MustCompile(`(:http:.*)\[.*\]`)
	doubleSlashRe = regexp.MustCompile(`([^:])//`)
	httpRefRe     = regexp.MustCompile(":http:(?:get|post):`([^,`]*)`")
	boldRoleRe    = regexp.MustCompile(":(?:http:header|func|mod):`(.*)`")
	swhWebAPIRe   = regexp.MustCompile(":swh_web_api:`(.+)`.*")
)

// A visitor renders a parsed docstring back to reStructuredText while
// recording documentation fields into data.
type visitor struct {
	data      *DocumentationData
	fieldName string
	seen      map[bucket]map[string]bool
}

func newVisitor(data *DocumentationData) *visitor {
	return &visitor{data: data, seen: map[bucket]map[string]bool{}}
}

func (v *visitor) children(n *rst.Node) (string, error) {
	var b strings.Builder
	for _, c := range n.Children {
		s, err := v.visit(c)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// wrap renders the children of n between delimiters.
func (v *visitor) wrap(n *rst.Node, open, close string) (string, error) {
	s, err := v.children(n)
	if err != nil {
		return "", err
	}
	return open + s + close, nil
}

func (v *visitor) visit(n *rst.Node) (string, error) {
	switch n.Kind {
	case rst.KindDocument:
		s, err := v.children(n)
		if err != nil {
			return "", err
		}
		v.data.Description = strings.TrimSpace(examplesRe.Split(s, 2)[0])
		return s, nil
	case rst.KindFieldList, rst.KindField, rst.KindBlockQuote, rst.KindListItem:
		return v.children(n)
	case rst.KindText:
		return strings.ReplaceAll(n.Text, "\n", " "), nil
	case rst.KindEmphasis:
		return v.wrap(n, "*", "*")
	case rst.KindStrong:
		return v.wrap(n, "**", "**")
	case rst.KindLiteral:
		return v.wrap(n, "``", "``")
	case rst.KindParagraph:
		return v.wrap(n, "\n\n", "")
	case rst.KindReference:
		s, err := v.children(n)
		if err != nil {
			return "", err
		}
		if n.RefURI != "" {
			return fmt.Sprintf("`%s <%s>`__", s, n.RefURI), nil
		}
		return fmt.Sprintf("`%s`_", s), nil
	case rst.KindTarget:
		parts := []string{"\n"}
		for _, name := range n.Names {
			parts = append(parts, fmt.Sprintf(".. _%s: %s", name, n.RefURI))
		}
		return strings.Join(parts, "\n"), nil
	case rst.KindLiteralBlock:
		return v.literalBlock(n), nil
	case rst.KindBulletList:
		return v.bulletList(n)
	case rst.KindWarning:
		s, err := v.children(n)
		if err != nil {
			return "", err
		}
		return "\n\n.. warning::\n" + indent(s, "\t") + "\n", nil
	case rst.KindTitleReference:
		text := n.AsText()
		return "", fmt.Errorf("%w: unexpected title reference. Possible cause: you used `%s` instead of ``%s``",
			derrors.MalformedMarkup, text, text)
	case rst.KindSystemMessage:
		return "", nil
	case rst.KindFieldName:
		v.fieldName = n.AsText()
		return "", nil
	case rst.KindFieldBody:
		return "", v.fieldBody(n)
	case rst.KindProblematic:
		return v.problematic(n), nil
	}
	return "", fmt.Errorf("%w: %s. Value: %q", derrors.UnknownNode, n.TypeName(), n.AsText())
}

// literalBlock renders n verbatim. Unresolved roles inside a parsed
// literal block still contribute examples.
func (v *visitor) literalBlock(n *rst.Node) string {
	n.Walk(func(c *rst.Node) bool {
		if c.Kind == rst.KindProblematic {
			v.problematic(c)
			return false
		}
		return true
	})
	return "\n\n::\n\n" + indent(n.AsText(), "   ") + "\n"
}

// bulletList renders every paragraph inside the list, at any depth, as a
// top-level bullet.
func (v *visitor) bulletList(n *rst.Node) (string, error) {
	var (
		b   strings.Builder
		err error
	)
	b.WriteString("\n\n")
	n.Walk(func(c *rst.Node) bool {
		if err != nil {
			return false
		}
		if c.Kind != rst.KindParagraph {
			return true
		}
		var s string
		s, err = v.visit(c)
		fmt.Fprintf(&b, "\t* %s\n", strings.TrimSpace(indent(s, "\t  ")))
		return false
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// problematic rewrites an interpreted text role unknown to the parser, such
// as :http:get:, into plain reStructuredText. :swh_web_api: roles are
// recorded as examples.
func (v *visitor) problematic(n *rst.Node) string {
	text := n.AsText()
	for {
		next := httpArgRe.ReplaceAllString(text, "${1}")
		next = httpOptArgRe.ReplaceAllString(next, "${1}")
		if next == text {
			break
		}
		text = next
	}
	text = doubleSlashRe.ReplaceAllString(text, "${1}/")
	text = httpRefRe.ReplaceAllString(text, "`${1} <${1}doc/>`_")
	text = boldRoleRe.ReplaceAllString(text, "**${1}**")
	if strings.Contains(text, ":swh_web_api:") {
		examples := swhWebAPIRe.ReplaceAllString(text, "/api/1/${1}")
		v.data.Examples = append(v.data.Examples, strings.Split(examples, "\n")...)
	}
	return text
}

// fieldBody records the field named by the preceding field name. Fields
// with an unknown role are ignored.
func (v *visitor) fieldBody(n *rst.Node) error {
	s, err := v.children(n)
	if err != nil {
		return err
	}
	body := strings.TrimSpace(s)
	tok := strings.Fields(v.fieldName)
	if len(tok) == 0 {
		return nil
	}
	b := roleBuckets[tok[0]]
	if b == bucketNone {
		return nil
	}
	if len(tok) < b.tokens()+1 {
		return fmt.Errorf("%w: field %q: expected %d arguments after %q", derrors.MalformedMarkup, v.fieldName, b.tokens(), tok[0])
	}
	if body == "" {
		return fmt.Errorf("%w: field %q has an empty body", derrors.MalformedMarkup, v.fieldName)
	}

	key := tok[1]
	if b.tokens() == 2 {
		key = tok[2]
	}
	first := v.record(b, key)
	d := v.data
	switch b {
	case bucketArgs, bucketParams, bucketInputObject, bucketInputArray, bucketReturnObject, bucketReturnArray:
		arg := ArgDoc{Name: tok[2], Type: tok[1], Doc: body}
		switch b {
		case bucketArgs:
			if first {
				d.Args = append(d.Args, arg)
			}
		case bucketParams:
			if first {
				d.Params = append(d.Params, arg)
			}
		case bucketInputObject, bucketInputArray:
			if first {
				d.Inputs = append(d.Inputs, arg)
			}
			if d.InputType == "" {
				d.InputType = TypeObject
				if b == bucketInputArray {
					d.InputType = TypeArray
				}
			}
		default:
			if first {
				d.Returns = append(d.Returns, arg)
			}
			if d.ReturnType == "" {
				d.ReturnType = TypeObject
				if b == bucketReturnArray {
					d.ReturnType = TypeArray
				}
			}
		}
	case bucketStatusCodes:
		if first {
			d.StatusCodes = append(d.StatusCodes, StatusCode{Code: key, Doc: body})
		}
	case bucketReqHeaders:
		if first {
			d.ReqHeaders = append(d.ReqHeaders, Header{Name: key, Doc: body})
		}
	case bucketResHeaders:
		if first {
			d.ResHeaders = append(d.ResHeaders, Header{Name: key, Doc: body})
		}
		if key == "Content-Type" && body == "application/octet-stream" {
			d.ReturnType = TypeOctetStream
		}
	}
	return nil
}

// record marks key as seen in the list of b and reports whether it is the
// first occurrence. Object and array variants share their list.
func (v *visitor) record(b bucket, key string) bool {
	switch b {
	case bucketInputArray:
		b = bucketInputObject
	case bucketReturnArray:
		b = bucketReturnObject
	}
	if v.seen[b] == nil {
		v.seen[b] = map[string]bool{}
	}
	if v.seen[b][key] {
		return false
	}
	v.seen[b][key] = true
	return true
}
