package apidoc

// A bucket is the DocumentationData list a documentation field is
// recorded in.
type bucket int

const (
	bucketNone bucket = iota
	bucketArgs
	bucketParams
	bucketInputObject
	bucketInputArray
	bucketReturnObject
	bucketReturnArray
	bucketStatusCodes
	bucketReqHeaders
	bucketResHeaders
)

// roleBuckets maps the first token of a field name to its bucket. Tokens
// follow the sphinxcontrib-httpdomain 1.6 vocabulary.
var roleBuckets = map[string]bucket{
	"param":     bucketArgs,
	"parameter": bucketArgs,
	"arg":       bucketArgs,
	"argument":  bucketArgs,

	"queryparameter": bucketParams,
	"queryparam":     bucketParams,
	"qparam":         bucketParams,
	"query":          bucketParams,

	"reqjsonobj": bucketInputObject,
	"reqjson":    bucketInputObject,
	"<jsonobj":   bucketInputObject,
	"<json":      bucketInputObject,

	"reqjsonarr": bucketInputArray,
	"<jsonarr":   bucketInputArray,

	"resjsonobj": bucketReturnObject,
	"resjson":    bucketReturnObject,
	">jsonobj":   bucketReturnObject,
	">json":      bucketReturnObject,

	"resjsonarr": bucketReturnArray,
	">jsonarr":   bucketReturnArray,

	"statuscode": bucketStatusCodes,
	"status":     bucketStatusCodes,
	"code":       bucketStatusCodes,

	"<header":       bucketReqHeaders,
	"reqheader":     bucketReqHeaders,
	"requestheader": bucketReqHeaders,

	">header":        bucketResHeaders,
	"resheader":      bucketResHeaders,
	"responseheader": bucketResHeaders,
}

// tokens returns the number of field name tokens after the role that the
// bucket needs: type and name, or a single code or header name.
func (b bucket) tokens() int {
	switch b {
	case bucketStatusCodes, bucketReqHeaders, bucketResHeaders:
		return 1
	}
	return 2
}

func (b bucket) String() string {
	switch b {
	case bucketArgs:
		return "args"
	case bucketParams:
		return "params"
	case bucketInputObject, bucketInputArray:
		return "inputs"
	case bucketReturnObject, bucketReturnArray:
		return "returns"
	case bucketStatusCodes:
		return "status_codes"
	case bucketReqHeaders:
		return "reqheaders"
	case bucketResHeaders:
		return "resheaders"
	}
	return "none"
}
