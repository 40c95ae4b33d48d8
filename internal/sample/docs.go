package sample

// Endpoint docstrings, in the Sphinx httpdomain dialect of
// reStructuredText. The @ lines of their comments are read by
// "apidoc scan" and "apidoc openapi".

// @category Miscellaneous
// @noargs
// @response Counters
const statCountersDoc = `
    .. http:get:: /api/1/stat/counters/

        Get statistics about the content of the archive.

        :>json number content: current number of content objects (aka files) in the archive
        :>json number origin: current number of software origins in the archive
        :>json number revision: current number of revision objects (aka commits) in the archive

        :reqheader Accept: the requested response content type,
            either ` + "``application/json``" + ` (default) or ` + "``application/yaml``" + `
        :resheader Content-Type: this depends on :http:header:` + "`Accept`" + `
            header of request

        :statuscode 200: no error

        **Example:**

        .. parsed-literal::

            :swh_web_api:` + "`stat/counters/`" + `
`

// @category Archive
// @response Revision
const revisionDoc = `
    .. http:get:: /api/1/revision/(sha1_git)/

        Get information about a revision in the archive. Revisions are
        identified by **sha1** checksums, compatible with Git commit identifiers.
        See :func:` + "`swh.model.git_objects.revision_git_object`" + ` for details
        about how they are computed.

        :param string sha1_git: hexadecimal representation of the revision
            **sha1_git** identifier

        :reqheader Accept: the requested response content type,
            either ` + "``application/json``" + ` (default) or ` + "``application/yaml``" + `
        :resheader Content-Type: this depends on :http:header:` + "`Accept`" + `
            header of request

        :>json object author: information about the author of the revision
        :>json string date: RFC3339 representation of the revision date
        :>json string id: the revision unique identifier
        :>json string message: the message associated to the revision
        :>json array parents: the parents of the revision, i.e. the previous
            revisions that head directly to it

        :statuscode 200: no error
        :statuscode 400: an invalid **sha1_git** value has been provided
        :statuscode 404: requested revision can not be found in the archive

        **Example:**

        .. parsed-literal::

            :swh_web_api:` + "`revision/aafb16d69fd30ff58afdd69036a26047f3aebdc6/`" + `
`

// @category Archive
// @route /content/raw/
const contentRawDoc = `
    .. http:get:: /api/1/content/(q)/raw/

        Get the raw content of a content object (aka a "blob"), as a byte sequence.

        :param string q: hexadecimal representation of the **sha1** checksum
            of the content

        :resheader Content-Type: application/octet-stream

        :statuscode 200: no error
        :statuscode 400: an invalid **sha1** checksum has been provided
        :statuscode 404: requested content can not be found in the archive

        **Example:**

        .. parsed-literal::

            :swh_web_api:` + "`content/34571b8614fcd89ccd17ca2b1d9e66c5b00a6d03/raw/`" + `
`

// @category Origins
// @response []Origin
const originSearchDoc = `
    .. http:get:: /api/1/origin/search/(url_pattern)/

        Search for software origins whose urls contain a provided string
        pattern or match a provided regular expression.
        The search is performed in a case insensitive way.

        .. warning::

            The pattern is matched against the full origin url.

        :param string url_pattern: a string pattern
        :query int limit: the maximum number of found origins to return
            (bounded to 1000)

        :>jsonarr string url: the origin url
        :>jsonarr string type: the type of the origin

        :statuscode 200: no error
        :statuscode 400: an invalid **limit** value has been provided

        **Example:**

        .. parsed-literal::

            :swh_web_api:` + "`origin/search/python/?limit=2`" + `
`

// @category Archive
// @route /content/known/
// @response KnownResult
const knownDoc = `
    .. http:post:: /api/1/content/known/search/

        Check whether some content(s) (aka files) is present in the archive
        based on its **sha1** checksum.

        :<jsonarr string -: input array of **sha1** checksums

        :>json array search_res: array holding the search result for each provided **sha1**
        :>json object search_stats: some statistics regarding the number of **sha1** provided
            and the percentage of those found in the archive

        :statuscode 200: no error
        :statuscode 400: an invalid **sha1** has been provided
`

const pingDoc = "Check that the API is responding. It answers with the string pong."
