package apiurls

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Zachacious/go-apidoc/internal/apidoc"
	"github.com/Zachacious/go-apidoc/internal/derrors"
)

// fakeRenderer writes responses as JSON, errors as their status and
// message, and the index as "category: route" lines.
type fakeRenderer struct{}

func (fakeRenderer) Render(w http.ResponseWriter, r *http.Request, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (fakeRenderer) RenderError(w http.ResponseWriter, r *http.Request, err error) {
	w.WriteHeader(derrors.ToHTTPStatus(err))
	fmt.Fprint(w, err)
}

func (fakeRenderer) RenderIndex(w http.ResponseWriter, r *http.Request, categories []Category) {
	for _, c := range categories {
		for _, rt := range c.Routes {
			fmt.Fprintf(w, "%s: %s\n", c.Name, rt.Route)
		}
	}
}

const revisionDoc = `
    .. http:get:: /api/1/revision/(sha1_git)/

        Get information about a revision. Revisions are immutable.

        :param string sha1_git: hexadecimal sha1_git identifier
        :statuscode 200: no error
        :statuscode 404: revision not found
    `

func newTestURLs() *APIURLs {
	return New(apidoc.NewParser(false), fakeRenderer{}, "Miscellaneous")
}

func serve(u *APIURLs) *http.ServeMux {
	mux := http.NewServeMux()
	u.Install(mux.Handle, nil)
	return mux
}

func get(t *testing.T, h http.Handler, method, url string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, url, nil))
	return w
}

func TestAPIDoc(t *testing.T) {
	u := newTestURLs()
	h, err := u.APIDoc("/revision/", "Archive", Tags("upcoming"))(Endpoint{
		Name: "test.revision",
		Doc:  revisionDoc,
		Handler: func(r *http.Request) (any, error) {
			if r.URL.Query().Get("fail") != "" {
				return nil, derrors.NotFound
			}
			return map[string]string{"id": "abc"}, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]*Route{
		"/api/1/revision/": {
			Category:      "Archive",
			Docstring:     "Get information about a revision",
			Route:         "/api/1/revision/",
			RouteViewName: "api-1-revision",
			APIVersion:    "1",
			Tags:          []string{"upcoming"},
		},
	}
	if diff := cmp.Diff(want, u.Routes()); diff != "" {
		t.Errorf("routes mismatch (-want +got):\n%s", diff)
	}

	resp, err := h(httptest.NewRequest("GET", "/api/1/revision/abc/", nil))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]string{"id": "abc"}, resp.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
	if resp.DocData == nil || resp.DocData.Route != "/revision/" {
		t.Errorf("got doc data %+v, want the revision documentation", resp.DocData)
	}

	_, err = h(httptest.NewRequest("GET", "/api/1/revision/abc/?fail=1", nil))
	var docErr *DocError
	if !errors.As(err, &docErr) || docErr.DocData != resp.DocData {
		t.Errorf("got error %v, want a DocError carrying the documentation", err)
	}
	if !errors.Is(err, derrors.NotFound) {
		t.Errorf("errors.Is(%v, NotFound) = false", err)
	}
}

func TestDocViews(t *testing.T) {
	u := newTestURLs()
	if _, err := u.APIDoc("/revision/", "Archive")(Endpoint{Name: "test.revision", Doc: revisionDoc}); err != nil {
		t.Fatal(err)
	}
	mux := serve(u)

	w := get(t, mux, "GET", "/api/1/revision/doc/")
	if w.Code != http.StatusOK {
		t.Fatalf("doc view: status %d, body %s", w.Code, w.Body)
	}
	var got struct {
		Data    any                      `json:"data"`
		DocData apidoc.DocumentationData `json:"doc_data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Data != nil {
		t.Errorf("doc view data = %v, want nil", got.Data)
	}
	if got.DocData.Description != "Get information about a revision. Revisions are immutable." {
		t.Errorf("doc view description = %q", got.DocData.Description)
	}

	if w := get(t, mux, "HEAD", "/api/1/revision/doc/"); w.Code != http.StatusOK {
		t.Errorf("HEAD doc view: status %d", w.Code)
	}
	if w := get(t, mux, "POST", "/api/1/revision/doc/"); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST doc view: status %d, want 405", w.Code)
	}

	w = get(t, mux, "GET", "/1/revision/doc/")
	if w.Code != http.StatusMovedPermanently || w.Header().Get("Location") != "/api/1/revision/doc/" {
		t.Errorf("legacy doc URL: status %d, Location %q", w.Code, w.Header().Get("Location"))
	}
}

func TestAPIDocErrors(t *testing.T) {
	u := newTestURLs()
	_, err := u.APIDoc("/nodoc/", "Archive")(Endpoint{Name: "test.nodoc"})
	if !errors.Is(err, derrors.MissingDocstring) {
		t.Errorf("missing docstring: got %v", err)
	}

	bad := ".. http:get:: /api/1/bad/\n\n    Use `this` here."
	_, err = u.APIDoc("/bad/", "Archive")(Endpoint{Name: "test.bad", Doc: bad})
	if !errors.Is(err, derrors.MalformedMarkup) {
		t.Errorf("title reference: got %v", err)
	}

	if _, err := u.APIDoc("/revision/", "Archive")(Endpoint{Name: "a", Doc: revisionDoc}); err != nil {
		t.Fatal(err)
	}
	_, err = u.APIDoc("/revision/", "Archive")(Endpoint{Name: "b", Doc: revisionDoc})
	if !errors.Is(err, derrors.InvalidArgument) {
		t.Errorf("duplicate route: got %v", err)
	}
}

func TestHiddenAndCategories(t *testing.T) {
	u := newTestURLs()
	for _, r := range []struct {
		route, category string
		opts            []Option
	}{
		{"/stat/counters/", "Miscellaneous", []Option{NoArgs()}},
		{"/revision/", "Archive", nil},
		{"/origin/search/", "Origins", nil},
		{"/content/", "Archive", nil},
		{"/ping/", "Miscellaneous", []Option{NoArgs(), Tags(TagHidden)}},
		{"/entity/", "Archive", []Option{APIVersion("2")}},
	} {
		doc := "Endpoint " + r.route + ". More."
		if _, err := u.APIDoc(r.route, r.category, r.opts...)(Endpoint{Name: r.route, Doc: doc}); err != nil {
			t.Fatal(err)
		}
	}
	if _, ok := u.Routes()["/api/1/ping/"]; ok {
		t.Error("hidden endpoint is in the index")
	}
	if _, ok := u.Lookup("api-1-ping-doc"); !ok {
		t.Error("hidden endpoint has no documentation page")
	}

	mux := serve(u)
	w := get(t, mux, "GET", "/api/")
	want := `Archive: /api/1/content/
Archive: /api/1/revision/
Archive: /api/2/entity/
Origins: /api/1/origin/search/
Miscellaneous: /api/1/stat/counters/
`
	if diff := cmp.Diff(want, w.Body.String()); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}
	for _, path := range []string{"/api/1/", "/api/2/"} {
		if w := get(t, mux, "GET", path); w.Body.String() != want {
			t.Errorf("%s: got index %q", path, w.Body)
		}
	}
	if w := get(t, mux, "GET", "/api/2/entity/doc/"); w.Code != http.StatusOK {
		t.Errorf("versioned doc view: status %d", w.Code)
	}
}

func TestAPIRoute(t *testing.T) {
	u := newTestURLs()
	doc := `.. http:get:: /api/1/revision/(sha1_git)/
.. http:post:: /api/1/revision/(sha1_git)/

    Revision.`
	h, err := u.APIDoc("/revision/", "Archive")(Endpoint{
		Name: "test.revision",
		Doc:  doc,
		Handler: func(r *http.Request) (any, error) {
			id := r.PathValue("sha1_git")
			if id == "missing" {
				return nil, fmt.Errorf("revision %s: %w", id, derrors.NotFound)
			}
			return map[string]string{"id": id, "method": r.Method}, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := u.APIRoute("/revision/{sha1_git}/", "api-1-revision", h,
		Methods("GET", "post"), ChecksumArgs("sha1_git")); err != nil {
		t.Fatal(err)
	}
	if err := u.APIRoute("/revision/{sha1_git}/", "api-1-revision", h); !errors.Is(err, derrors.InvalidArgument) {
		t.Errorf("duplicate view name: got %v", err)
	}
	mux := serve(u)

	for _, test := range []struct {
		method, url  string
		wantStatus   int
		wantContains string
	}{
		{"GET", "/api/1/revision/abc/", http.StatusOK, `"id":"abc"`},
		{"POST", "/api/1/revision/abc/", http.StatusOK, `"method":"POST"`},
		{"HEAD", "/api/1/revision/abc/", http.StatusOK, ""},
		{"DELETE", "/api/1/revision/abc/", http.StatusMethodNotAllowed, "DELETE"},
		{"GET", "/api/1/revision/missing/", http.StatusNotFound, "revision missing"},
		{"GET", "/api/1/revision/abc/extra/", http.StatusNotFound, ""},
	} {
		t.Run(test.method+" "+test.url, func(t *testing.T) {
			w := get(t, mux, test.method, test.url)
			if w.Code != test.wantStatus {
				t.Errorf("status %d, want %d (body %s)", w.Code, test.wantStatus, w.Body)
			}
			if !strings.Contains(w.Body.String(), test.wantContains) {
				t.Errorf("body %q does not contain %q", w.Body, test.wantContains)
			}
		})
	}

	w := get(t, mux, "OPTIONS", "/api/1/revision/abc/")
	if got, want := w.Header().Get("Allow"), "GET, POST, HEAD, OPTIONS"; got != want {
		t.Errorf("Allow = %q, want %q", got, want)
	}

	w = get(t, mux, "GET", "/api/1/revision/ABC/?format=json")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/api/1/revision/abc/?format=json" {
		t.Errorf("checksum redirect: status %d, Location %q", w.Code, w.Header().Get("Location"))
	}
}

func TestViewName(t *testing.T) {
	for _, test := range []struct{ v, route, want string }{
		{"1", "/revision/", "api-1-revision"},
		{"1", "/content/known/search/", "api-1-content-known-search"},
		{"2", "/", "api-2"},
	} {
		if got := ViewName(test.v, test.route); got != test.want {
			t.Errorf("ViewName(%q, %q) = %q, want %q", test.v, test.route, got, test.want)
		}
	}
}
