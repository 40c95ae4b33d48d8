package endpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Zachacious/go-apidoc/internal/apidoc"
	"github.com/Zachacious/go-apidoc/internal/apiurls"
	"github.com/Zachacious/go-apidoc/internal/derrors"
	"github.com/Zachacious/go-apidoc/internal/model"
)

type jsonRenderer struct{}

func (jsonRenderer) Render(w http.ResponseWriter, r *http.Request, resp *apiurls.Response) {
	if resp.Data == nil {
		json.NewEncoder(w).Encode(resp.DocData)
		return
	}
	json.NewEncoder(w).Encode(resp.Data)
}

func (jsonRenderer) RenderError(w http.ResponseWriter, r *http.Request, err error) {
	w.WriteHeader(derrors.ToHTTPStatus(err))
	fmt.Fprint(w, err)
}

func (jsonRenderer) RenderIndex(w http.ResponseWriter, r *http.Request, categories []apiurls.Category) {
	json.NewEncoder(w).Encode(categories)
}

const snapshotDoc = `
    .. http:get:: /api/2/snapshot/(snapshot_id)/

        Get information about a snapshot in the archive.

        :param string snapshot_id: hexadecimal snapshot identifier
        :>json object branches: the branches of the snapshot
        :statuscode 200: no error
    `

func newURLs() *apiurls.APIURLs {
	return apiurls.New(apidoc.NewParser(false), jsonRenderer{}, "Miscellaneous")
}

func TestRegister(t *testing.T) {
	u := newURLs()
	err := Handler(func(r *http.Request) (any, error) {
		return map[string]string{"id": r.PathValue("snapshot_id")}, nil
	}).
		Route("/snapshot/", "Archive").
		Name("snapshot").
		Doc(snapshotDoc).
		APIVersion("2").
		Tag("beta").
		Pattern("/snapshot/{snapshot_id}/", "api-2-snapshot").
		Register(u)
	if err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	u.Install(mux.Handle, nil)

	for _, test := range []struct {
		url        string
		wantStatus int
		wantBody   string
	}{
		{"/api/2/snapshot/abc/", http.StatusOK, `{"id":"abc"}`},
		{"/api/1/snapshot/abc/", http.StatusNotFound, ""},
	} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", test.url, nil))
		if w.Code != test.wantStatus {
			t.Errorf("GET %s: status %d, want %d", test.url, w.Code, test.wantStatus)
			continue
		}
		if test.wantBody != "" {
			var got, want any
			json.Unmarshal(w.Body.Bytes(), &got)
			json.Unmarshal([]byte(test.wantBody), &want)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("GET %s mismatch (-want +got):\n%s", test.url, diff)
			}
		}
	}

	route, ok := u.Routes()["/api/2/snapshot/"]
	if !ok {
		t.Fatal("route /api/2/snapshot/ not indexed")
	}
	want := &apiurls.Route{
		Category:      "Archive",
		Docstring:     "Get information about a snapshot in the archive.",
		Route:         "/api/2/snapshot/",
		RouteViewName: "api-2-snapshot",
		APIVersion:    "2",
		Tags:          []string{"beta"},
	}
	if diff := cmp.Diff(want, route); diff != "" {
		t.Errorf("route mismatch (-want +got):\n%s", diff)
	}
	if _, ok := u.Lookup("api-2-snapshot-doc"); !ok {
		t.Error("documentation view not registered")
	}
}

func TestRegisterHidden(t *testing.T) {
	u := newURLs()
	err := Handler(func(*http.Request) (any, error) { return "ok", nil }).
		Route("/health/", "Miscellaneous").
		Doc("Report the health of the service.").
		NoArgs().
		Hidden().
		Pattern("/health/", "api-1-health").
		Register(u)
	if err != nil {
		t.Fatal(err)
	}
	if len(u.Routes()) != 0 {
		t.Errorf("hidden endpoint indexed: %v", u.Routes())
	}
	if _, ok := u.Lookup("api-1-health"); !ok {
		t.Error("hidden endpoint not routed")
	}
}

func TestRegisterErrors(t *testing.T) {
	h := func(*http.Request) (any, error) { return nil, nil }
	for _, test := range []struct {
		name string
		b    *Builder
		want error
	}{
		{"no route", Handler(h).Doc(snapshotDoc).Pattern("/x/", "x"), derrors.InvalidArgument},
		{"no pattern", Handler(h).Route("/x/", "Archive").Doc(snapshotDoc), derrors.InvalidArgument},
		{"no docstring", Handler(h).Route("/x/", "Archive").Pattern("/x/", "x"), derrors.MissingDocstring},
	} {
		t.Run(test.name, func(t *testing.T) {
			if err := test.b.Register(newURLs()); !errors.Is(err, test.want) {
				t.Errorf("got %v, want %v", err, test.want)
			}
		})
	}
}

func TestFromModel(t *testing.T) {
	doc := `
    .. http:get:: /api/1/origin/(origin_url)/visits/
    .. http:post:: /api/1/origin/(origin_url)/visits/
    .. http:get:: /elsewhere/

        Get information about the visits of an origin.

        :param string origin_url: the origin url
        :statuscode 200: no error
    `
	d, err := apidoc.Build(apidoc.Key{Handler: "scan.visits", Route: "/origin/visits/"}, doc, false)
	if err != nil {
		t.Fatal(err)
	}
	e := &model.Endpoint{
		Package:    "scan",
		Name:       "visits",
		Category:   "Origins",
		Route:      "/origin/visits/",
		APIVersion: "1",
		Doc:        doc,
		DocData:    d,
	}
	u := newURLs()
	if err := FromModel(e).Register(u); err != nil {
		t.Fatal(err)
	}
	p, ok := u.Lookup("api-1-origin-origin_url-visits")
	if !ok {
		t.Fatal("visits pattern not registered")
	}
	if p.Pattern != "/api/1/origin/{origin_url}/visits/{$}" {
		t.Errorf("pattern = %q", p.Pattern)
	}

	mux := http.NewServeMux()
	u.Install(mux.Handle, nil)
	for _, test := range []struct {
		method, url string
		want        int
	}{
		{"GET", "/api/1/origin/x/visits/", http.StatusNotImplemented},
		{"POST", "/api/1/origin/x/visits/", http.StatusNotImplemented},
		{"PUT", "/api/1/origin/x/visits/", http.StatusMethodNotAllowed},
		{"GET", "/api/1/origin/visits/doc/", http.StatusOK},
		{"GET", "/elsewhere/", http.StatusNotFound},
	} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(test.method, test.url, nil))
		if w.Code != test.want {
			t.Errorf("%s %s: status %d, want %d", test.method, test.url, w.Code, test.want)
		}
	}
}
