// Package sample implements a small documented API over an in-memory
// archive of contents, revisions and origins. It exercises the
// documentation pipeline end to end.
package sample

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Zachacious/go-apidoc/internal/apiurls"
	"github.com/Zachacious/go-apidoc/internal/derrors"
	"github.com/Zachacious/go-apidoc/internal/endpoint"
)

// Person is the author or committer of a revision.
type Person struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

// Revision is a commit.
type Revision struct {
	ID      string    `json:"id" yaml:"id"`
	Author  Person    `json:"author" yaml:"author"`
	Date    time.Time `json:"date" yaml:"date"`
	Message string    `json:"message" yaml:"message"`
	Parents []string  `json:"parents" yaml:"parents"`
}

// Origin is a place where source code can be found.
type Origin struct {
	URL  string `json:"url" yaml:"url"`
	Type string `json:"type" yaml:"type"`
}

// Counters summarizes the archive.
type Counters struct {
	Content  int `json:"content" yaml:"content"`
	Origin   int `json:"origin" yaml:"origin"`
	Revision int `json:"revision" yaml:"revision"`
}

// KnownResult is the result of a content existence check.
type KnownResult struct {
	SearchRes   []KnownContent `json:"search_res" yaml:"search_res"`
	SearchStats KnownStats     `json:"search_stats" yaml:"search_stats"`
}

type KnownContent struct {
	SHA1  string `json:"sha1" yaml:"sha1"`
	Found bool   `json:"found" yaml:"found"`
}

type KnownStats struct {
	NbFiles int     `json:"nbfiles" yaml:"nbfiles"`
	Pct     float64 `json:"pct" yaml:"pct"`
}

// An Archive holds the objects served by the API. It is read-only once
// built.
type Archive struct {
	contents  map[string][]byte
	revisions map[string]*Revision
	origins   []Origin
}

// NewArchive returns an empty archive.
func NewArchive() *Archive {
	return &Archive{contents: map[string][]byte{}, revisions: map[string]*Revision{}}
}

// AddContent stores data and returns its sha1 checksum.
func (a *Archive) AddContent(data []byte) string {
	sum := sha1.Sum(data)
	id := hex.EncodeToString(sum[:])
	a.contents[id] = data
	return id
}

// AddRevision stores r under its identifier.
func (a *Archive) AddRevision(r *Revision) { a.revisions[r.ID] = r }

// AddOrigin stores o.
func (a *Archive) AddOrigin(o Origin) { a.origins = append(a.origins, o) }

// DefaultArchive returns an archive with a few objects, enough for the
// documentation examples to resolve.
func DefaultArchive() *Archive {
	a := NewArchive()
	a.AddContent([]byte("package main\n\nfunc main() {}\n"))
	a.AddContent([]byte("# README\n"))
	a.AddRevision(&Revision{
		ID:      "aafb16d69fd30ff58afdd69036a26047f3aebdc6",
		Author:  Person{Name: "Software Heritage", Email: "robot@softwareheritage.org"},
		Date:    time.Date(2015, 8, 4, 10, 16, 29, 0, time.UTC),
		Message: "Initial commit\n",
		Parents: []string{},
	})
	a.AddOrigin(Origin{URL: "https://github.com/python/cpython", Type: "git"})
	a.AddOrigin(Origin{URL: "https://github.com/pypa/pip", Type: "git"})
	a.AddOrigin(Origin{URL: "https://gitlab.com/inkscape/inkscape", Type: "git"})
	return a
}

// Register documents and routes every endpoint of a.
func Register(u *apiurls.APIURLs, a *Archive) error {
	endpoints := []*endpoint.Builder{
		endpoint.Handler(a.statCounters).
			Route("/stat/counters/", "Miscellaneous").
			Doc(statCountersDoc).
			NoArgs().
			Pattern("/stat/counters/", "api-1-stat-counters"),
		endpoint.Handler(a.revision).
			Route("/revision/", "Archive").
			Doc(revisionDoc).
			Pattern("/revision/{sha1_git}/", "api-1-revision", apiurls.ChecksumArgs("sha1_git")),
		endpoint.Handler(a.contentRaw).
			Route("/content/raw/", "Archive").
			Doc(contentRawDoc).
			Pattern("/content/{q}/raw/", "api-1-content-raw", apiurls.ChecksumArgs("q")),
		endpoint.Handler(a.known).
			Route("/content/known/", "Archive").
			Doc(knownDoc).
			Pattern("/content/known/search/", "api-1-content-known-search", apiurls.Methods(http.MethodPost)),
		endpoint.Handler(a.originSearch).
			Route("/origin/search/", "Origins").
			Doc(originSearchDoc).
			Pattern("/origin/search/{url_pattern}/", "api-1-origin-search"),
		endpoint.Handler(ping).
			Route("/ping/", "Miscellaneous").
			Doc(pingDoc).
			NoArgs().
			Hidden().
			Pattern("/ping/", "api-1-ping"),
	}
	for _, e := range endpoints {
		if err := e.Register(u); err != nil {
			return err
		}
	}
	return nil
}

var sha1Re = regexp.MustCompile(`^[0-9a-f]{40}$`)

func checkSHA1(name, v string) error {
	if !sha1Re.MatchString(v) {
		return fmt.Errorf("%w: invalid %s %q", derrors.InvalidArgument, name, v)
	}
	return nil
}

func (a *Archive) statCounters(*http.Request) (any, error) {
	return &Counters{Content: len(a.contents), Origin: len(a.origins), Revision: len(a.revisions)}, nil
}

func (a *Archive) revision(r *http.Request) (any, error) {
	id := r.PathValue("sha1_git")
	if err := checkSHA1("sha1_git", id); err != nil {
		return nil, err
	}
	rev, ok := a.revisions[id]
	if !ok {
		return nil, fmt.Errorf("revision with sha1_git %s: %w", id, derrors.NotFound)
	}
	return rev, nil
}

func (a *Archive) contentRaw(r *http.Request) (any, error) {
	q := r.PathValue("q")
	if err := checkSHA1("sha1", q); err != nil {
		return nil, err
	}
	data, ok := a.contents[q]
	if !ok {
		return nil, fmt.Errorf("content with sha1 %s: %w", q, derrors.NotFound)
	}
	return data, nil
}

// known checks the checksums of the JSON array request body.
func (a *Archive) known(r *http.Request) (any, error) {
	var sums []string
	if err := json.NewDecoder(r.Body).Decode(&sums); err != nil {
		return nil, fmt.Errorf("%w: decoding request body: %v", derrors.InvalidArgument, err)
	}
	res := &KnownResult{SearchRes: []KnownContent{}}
	found := 0
	for _, s := range sums {
		s = strings.ToLower(strings.TrimSpace(s))
		if err := checkSHA1("sha1", s); err != nil {
			return nil, err
		}
		_, ok := a.contents[s]
		if ok {
			found++
		}
		res.SearchRes = append(res.SearchRes, KnownContent{SHA1: s, Found: ok})
	}
	res.SearchStats.NbFiles = len(sums)
	if len(sums) > 0 {
		res.SearchStats.Pct = float64(found) * 100 / float64(len(sums))
	}
	return res, nil
}

const (
	defaultSearchLimit = 70
	maxSearchLimit     = 1000
)

func (a *Archive) originSearch(r *http.Request) (any, error) {
	pattern := r.PathValue("url_pattern")
	limit := defaultSearchLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: invalid limit %q", derrors.InvalidArgument, l)
		}
		limit = min(n, maxSearchLimit)
	}
	match := func(url string) bool {
		return strings.Contains(strings.ToLower(url), strings.ToLower(pattern))
	}
	if re, err := regexp.Compile("(?i)" + pattern); err == nil {
		match = re.MatchString
	}
	res := []Origin{}
	for _, o := range a.origins {
		if match(o.URL) {
			res = append(res, o)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].URL < res[j].URL })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func ping(*http.Request) (any, error) {
	return "pong", nil
}
