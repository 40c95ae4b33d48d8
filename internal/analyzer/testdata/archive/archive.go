// Package archive is a small documented API used to test the analyzer.
package archive

type Person struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Revision struct {
	ID      string    `json:"id"`
	Author  *Person   `json:"author"`
	Parents []string  `json:"parents"`
	Parent  *Revision `json:"parent,omitempty"`
	Size    int64     `json:"size"`
	Hidden  bool      `json:"-"`
	secret  int
}

// @category Archive
// @response Revision
const revisionDoc = `
    .. http:get:: /api/1/revision/(sha1_git)/

        Get information about a revision in the archive.

        :param string sha1_git: hexadecimal representation of the revision
            **sha1_git** identifier
        :>json string id: the revision unique identifier
        :>json object author: information about the author of the revision
        :statuscode 200: no error
        :statuscode 404: requested revision can not be found in the archive
`

// marker is not a docstring.
const marker = ".. http"

const version = 1

type Archive struct{}

// search looks for origins.
//
// .. http:get:: /api/2/origin/search/(url_pattern)/
//
//	Search for software origins whose urls contain a pattern.
//
//	:param string url_pattern: a string pattern
//	:query int limit: the maximum number of found origins to return
//	:>jsonarr string url: the origin url
//	:statuscode 200: no error
//
// @category Origins
// @tags beta, internal
// @response []Person
func (a *Archive) search() {}

// counters returns the archive counters.
//
// @noargs
// @route /stat/
//
// .. http:get:: /api/1/stat/counters/
//
//	Get statistics about the content of the archive.
//
//	:>json number content: current number of content objects
func counters() {}

func undocumented() {}

var _ = (*Archive).search
var _ = counters
var _ = undocumented
