package renderer

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/Zachacious/go-apidoc/internal/apidoc"
	"github.com/Zachacious/go-apidoc/internal/apiurls"
	"github.com/Zachacious/go-apidoc/internal/derrors"
)

const revisionDoc = `
    .. http:get:: /api/1/revision/(sha1_git)/

        Get information about a **revision**.

        :param string sha1_git: hexadecimal sha1_git identifier
        :>json string id: the revision identifier
        :statuscode 200: no error
        :statuscode 404: revision not found

        **Example:**

        .. parsed-literal::

            :swh_web_api:` + "`revision/abc/`" + `
    `

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	rd, err := New()
	if err != nil {
		t.Fatal(err)
	}
	return rd
}

func revisionDocData(t *testing.T) *apidoc.DocumentationData {
	t.Helper()
	d, err := apidoc.Build(apidoc.Key{Handler: "test.revision", Route: "/revision/"}, revisionDoc, false)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func request(url, accept string) *http.Request {
	r := httptest.NewRequest("GET", url, nil)
	if accept != "" {
		r.Header.Set("Accept", accept)
	}
	return r
}

func TestNegotiate(t *testing.T) {
	for _, test := range []struct {
		url, accept string
		want        Format
	}{
		{"/api/1/stat/counters/", "", FormatJSON},
		{"/api/1/stat/counters/?format=yaml", "text/html", FormatYAML},
		{"/api/1/stat/counters/?format=bogus", "text/html", FormatHTML},
		{"/api/1/stat/counters/", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8", FormatHTML},
		{"/api/1/stat/counters/", "application/xml, application/yaml", FormatYAML},
		{"/api/1/stat/counters/", "image/png", FormatJSON},
	} {
		if got := Negotiate(request(test.url, test.accept)); got != test.want {
			t.Errorf("Negotiate(%q, Accept %q) = %q, want %q", test.url, test.accept, got, test.want)
		}
	}
	if a, b := CacheKey(request("/api/", "")), CacheKey(request("/api/", "text/html")); a == b {
		t.Errorf("JSON and HTML requests share cache key %q", a)
	}
}

func TestRenderData(t *testing.T) {
	rd := newTestRenderer(t)
	docData := revisionDocData(t)
	data := map[string]any{"id": "abc", "parents": []string{"def"}}

	for _, test := range []struct {
		name            string
		resp            *apiurls.Response
		accept          string
		wantContentType string
		unmarshal       func([]byte, any) error
		want            any
	}{
		{
			name:            "json data",
			resp:            &apiurls.Response{Data: data, DocData: docData},
			wantContentType: "application/json",
			unmarshal:       json.Unmarshal,
			want:            map[string]any{"id": "abc", "parents": []any{"def"}},
		},
		{
			name:            "yaml data",
			resp:            &apiurls.Response{Data: data, DocData: docData},
			accept:          "application/yaml",
			wantContentType: "application/yaml",
			unmarshal:       yaml.Unmarshal,
			want:            map[string]any{"id": "abc", "parents": []any{"def"}},
		},
		{
			name:            "documentation only",
			resp:            &apiurls.Response{DocData: docData},
			wantContentType: "application/json",
			unmarshal:       json.Unmarshal,
			want: map[string]any{
				"route":       "/revision/",
				"return_type": "object",
				"examples":    []any{"/api/1/revision/abc/"},
			},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			rd.Render(w, request("/api/1/revision/abc/", test.accept), test.resp)
			if got := w.Header().Get("Content-Type"); got != test.wantContentType {
				t.Errorf("Content-Type = %q, want %q", got, test.wantContentType)
			}
			var got map[string]any
			if err := test.unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatal(err)
			}
			want := test.want.(map[string]any)
			for k := range got {
				if _, ok := want[k]; !ok {
					delete(got, k)
				}
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRenderBytes(t *testing.T) {
	rd := newTestRenderer(t)
	w := httptest.NewRecorder()
	rd.Render(w, request("/api/1/content/x/raw/", "text/html"), &apiurls.Response{Data: []byte("raw\x00content")})
	if got := w.Header().Get("Content-Type"); got != "application/octet-stream" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Body.String(); got != "raw\x00content" {
		t.Errorf("body = %q", got)
	}
}

func TestRenderHTML(t *testing.T) {
	rd := newTestRenderer(t)
	w := httptest.NewRecorder()
	resp := &apiurls.Response{Data: map[string]string{"id": "abc"}, DocData: revisionDocData(t)}
	rd.Render(w, request("/api/1/revision/abc/", "text/html"), resp)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body)
	}
	doc := parseHTML(t, w.Body.String())

	for _, test := range []struct {
		selector string
		want     string
	}{
		{"h1", "/api/1/revision/abc/"},
		{"div.description", "Get information about a revision."},
		{"div.description strong", "revision"},
		{"table.urls strong", "(sha1_git)"},
		{"table.args td", "sha1_git"},
		{"p.body-type", "object"},
		{"div.body-fields strong", "id (string)"},
		{"dl.status-codes dt", "200"},
		{"ul.examples a", "/api/1/revision/abc/"},
		{"pre.response", "{\n    \"id\": \"abc\"\n}"},
	} {
		n := find(doc, test.selector)
		if n == nil {
			t.Errorf("%s: not found", test.selector)
			continue
		}
		if got := textContent(n); got != test.want {
			t.Errorf("%s: got %q, want %q", test.selector, got, test.want)
		}
	}
	if a := find(doc, "ul.examples a"); attr(a, "href") != "/api/1/revision/abc/" {
		t.Errorf("example href = %q", attr(a, "href"))
	}
}

func TestRenderError(t *testing.T) {
	rd := newTestRenderer(t)
	err := &apiurls.DocError{
		Err:     fmt.Errorf("revision abc: %w", derrors.NotFound),
		DocData: revisionDocData(t),
	}

	w := httptest.NewRecorder()
	rd.RenderError(w, request("/api/1/revision/abc/", ""), err)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"exception": "NotFoundExc", "reason": "revision abc: not found"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	w = httptest.NewRecorder()
	rd.RenderError(w, request("/api/1/revision/abc/", "text/html"), err)
	if w.Code != http.StatusNotFound {
		t.Errorf("HTML status = %d, want 404", w.Code)
	}
	doc := parseHTML(t, w.Body.String())
	if got := textContent(find(doc, "div.error h2")); got != "404 NotFoundExc" {
		t.Errorf("error heading = %q", got)
	}
	if find(doc, "div.description") == nil {
		t.Error("error page does not include the endpoint documentation")
	}

	w = httptest.NewRecorder()
	rd.RenderError(w, request("/api/1/x/", ""), fmt.Errorf("boom"))
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), `"exception":"Exception"`) {
		t.Errorf("unclassified error: status %d, body %s", w.Code, w.Body)
	}
}

func TestRenderIndex(t *testing.T) {
	rd := newTestRenderer(t)
	cats := []apiurls.Category{
		{Name: "Archive", Routes: []*apiurls.Route{{
			Category:      "Archive",
			Docstring:     "Get information about a **revision**",
			Route:         "/api/1/revision/",
			RouteViewName: "api-1-revision",
			APIVersion:    "1",
		}}},
		{Name: "Miscellaneous", Routes: []*apiurls.Route{{
			Category:   "Miscellaneous",
			Docstring:  "Get archive counters",
			Route:      "/api/1/stat/counters/",
			NoArgs:     true,
			APIVersion: "1",
		}}},
	}

	w := httptest.NewRecorder()
	rd.RenderIndex(w, request("/api/", "text/html"), cats)
	doc := parseHTML(t, w.Body.String())
	var headings, links []string
	walk(doc, func(n *html.Node) {
		switch {
		case matches(n, "h2"):
			headings = append(headings, textContent(n))
		case matches(n, "a") && strings.HasSuffix(attr(n, "href"), "doc/"):
			links = append(links, attr(n, "href"))
		}
	})
	if diff := cmp.Diff([]string{"Archive", "Miscellaneous"}, headings); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/api/1/revision/doc/", "/api/1/stat/counters/doc/"}, links); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}

	w = httptest.NewRecorder()
	rd.RenderIndex(w, request("/api/?format=json", ""), cats)
	var got []apiurls.Category
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cats, got); diff != "" {
		t.Errorf("JSON index mismatch (-want +got):\n%s", diff)
	}
}

func parseHTML(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func walk(n *html.Node, f func(*html.Node)) {
	f(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, f)
	}
}

// find returns the first element matching a space-separated chain of
// "tag" or "tag.class" selectors, each a descendant of the previous one.
func find(n *html.Node, selector string) *html.Node {
	parts := strings.Fields(selector)
	var found *html.Node
	var search func(*html.Node)
	search = func(n *html.Node) {
		for c := n.FirstChild; c != nil && found == nil; c = c.NextSibling {
			if matches(c, parts[0]) {
				if len(parts) == 1 {
					found = c
					return
				}
				if m := find(c, strings.Join(parts[1:], " ")); m != nil {
					found = m
					return
				}
			}
			search(c)
		}
	}
	search(n)
	return found
}

func matches(n *html.Node, sel string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	tag, class, _ := strings.Cut(sel, ".")
	if n.Data != tag {
		return false
	}
	return class == "" || attr(n, "class") == class
}

func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return strings.TrimSpace(b.String())
}
