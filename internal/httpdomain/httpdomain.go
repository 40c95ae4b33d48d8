// Package httpdomain handles the Sphinx httpdomain directives that declare
// the URLs of an API endpoint inside its docstring.
//
// The directives are unknown to a plain reStructuredText parser, so they
// are removed from the docstring before parsing and recorded separately.
package httpdomain

import (
	"regexp"
	"strings"
)

// Marker starts every httpdomain directive line.
const Marker = ".. http"

// implicitMethods are answered by every endpoint in addition to the
// declared ones.
var implicitMethods = []string{"HEAD", "OPTIONS"}

var (
	methodRe      = regexp.MustCompile(`http:(\w+)::`)
	argRe         = regexp.MustCompile(`\((\w+)\)`)
	emphasizedRe  = regexp.MustCompile(` \*\*\\\((\w+)\\\)\*\* `)
	versionPathRe = regexp.MustCompile(`^/api/[^/]+`)
)

// A URL is an endpoint URL rule with the HTTP methods it accepts.
type URL struct {
	Rule    string   `json:"rule" yaml:"rule"`
	Methods []string `json:"methods" yaml:"methods"`
}

// Contains reports whether doc declares any endpoint URL.
func Contains(doc string) bool {
	return strings.Contains(doc, Marker)
}

// Filter removes the httpdomain directive lines from doc and returns the
// remaining text together with the declared URLs, in order of first
// appearance. URL arguments such as "(sha1_git)" are emphasized for HTML
// rendering. Each URL lists its declared methods once, upper-cased,
// followed by HEAD and OPTIONS.
func Filter(doc string) (string, []URL) {
	var (
		kept     []string
		urls     []URL
		position = map[string]int{}
	)
	for _, line := range strings.Split(doc, "\n") {
		if !strings.Contains(line, Marker) {
			kept = append(kept, line)
			continue
		}
		i := strings.Index(line, "/")
		if i < 0 {
			continue
		}
		rule := argRe.ReplaceAllString(strings.TrimRight(line[i:], " \t"), ` **\(${1}\)** `)
		pos, ok := position[rule]
		if !ok {
			pos = len(urls)
			position[rule] = pos
			urls = append(urls, URL{Rule: rule})
		}
		if m := methodRe.FindStringSubmatch(line); m != nil {
			urls[pos].Methods = appendUnique(urls[pos].Methods, strings.ToUpper(m[1]))
		}
	}
	for i := range urls {
		urls[i].Methods = appendUnique(urls[i].Methods, implicitMethods...)
	}
	return strings.Join(kept, "\n"), urls
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, x := range list {
			if x == v {
				found = true
				break
			}
		}
		if !found {
			list = append(list, v)
		}
	}
	return list
}

// PathPattern converts an emphasized URL rule back to a path pattern with
// "{name}" wildcards, for example "/api/1/revision/{sha1_git}/".
func PathPattern(rule string) string {
	return emphasizedRe.ReplaceAllString(rule, "{${1}}")
}

// RouteOf returns the documentation route of a URL rule: the rule without
// its "/api/<version>" prefix, cut before the first argument segment.
// "/api/1/revision/ **\(sha1_git\)** /log/" gives "/revision/".
func RouteOf(rule string) string {
	path := versionPathRe.ReplaceAllString(PathPattern(rule), "")
	var kept []string
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" || strings.Contains(seg, "{") {
			break
		}
		kept = append(kept, seg)
	}
	if len(kept) == 0 {
		return "/"
	}
	return "/" + strings.Join(kept, "/") + "/"
}
