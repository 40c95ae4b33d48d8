package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"

	"github.com/Zachacious/go-apidoc/internal/cache"
	"github.com/Zachacious/go-apidoc/internal/log"
)

var (
	keyCacheHit  = tag.MustNewKey("cache.hit")
	keyCacheName = tag.MustNewKey("cache.name")
	cacheResults = stats.Int64(
		"go-apidoc/cache_result_count",
		"The result of a cache request.",
		stats.UnitDimensionless,
	)
	cacheErrors = stats.Int64(
		"go-apidoc/cache_errors",
		"Errors retrieving from cache.",
		stats.UnitDimensionless,
	)

	// CacheResultCount is a counter of cache results, by cache name and hit success.
	CacheResultCount = &view.View{
		Name:        "go-apidoc/cache/result_count",
		Measure:     cacheResults,
		Aggregation: view.Count(),
		Description: "cache results, by cache name and whether it was a hit",
		TagKeys:     []tag.Key{keyCacheName, keyCacheHit},
	}
	// CacheErrorCount is a counter of cache errors, by cache name.
	CacheErrorCount = &view.View{
		Name:        "go-apidoc/cache/errors",
		Measure:     cacheErrors,
		Aggregation: view.Count(),
		Description: "cache errors, by cache name",
		TagKeys:     []tag.Key{keyCacheName},
	}
)

func recordCacheResult(ctx context.Context, name string, hit bool) {
	stats.RecordWithTags(ctx, []tag.Mutator{
		tag.Upsert(keyCacheName, name),
		tag.Upsert(keyCacheHit, strconv.FormatBool(hit)),
	}, cacheResults.M(1))
}

func recordCacheError(ctx context.Context, name string) {
	stats.RecordWithTags(ctx, []tag.Mutator{
		tag.Upsert(keyCacheName, name),
	}, cacheErrors.M(1))
}

// A KeyFunc returns the cache key of a request. Requests served in
// different formats from the same URL need different keys.
type KeyFunc func(*http.Request) string

// URLKey keys a request by its URL.
func URLKey(r *http.Request) string { return r.URL.String() }

// A CacheOption configures the Cache middleware.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	syncPut bool
}

// SyncPut makes the middleware write cache entries before the handler
// returns instead of in the background.
func SyncPut() CacheOption {
	return func(o *cacheOptions) { o.syncPut = true }
}

// Cache returns a new Middleware that caches the successful responses to GET
// requests. The name of the cache is used only for metrics. Entries expire
// after ttl. A nil key uses URLKey.
func Cache(name string, c *cache.Cache, ttl time.Duration, key KeyFunc, opts ...CacheOption) Middleware {
	if key == nil {
		key = URLKey
	}
	var o cacheOptions
	for _, opt := range opts {
		opt(&o)
	}
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				h.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			k := key(r)
			// Fall back quickly to uncached serving if redis is unavailable.
			getCtx, cancelGet := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancelGet()
			val, err := c.Get(getCtx, k)
			switch {
			case err != nil:
				log.Errorf(ctx, "cache get %q: %v", k, err)
				recordCacheError(ctx, name)
			case val != nil:
				recordCacheResult(ctx, name, true)
				contentType, body, _ := bytes.Cut(val, []byte("\n"))
				w.Header().Set("Content-Type", string(contentType))
				w.Header().Set("Content-Length", strconv.Itoa(len(body)))
				w.Write(body)
				return
			default:
				recordCacheResult(ctx, name, false)
			}
			rec := &cacheRecorder{ResponseWriter: w, buf: &bytes.Buffer{}}
			h.ServeHTTP(rec, r)
			if rec.bufErr != nil || (rec.statusCode != 0 && rec.statusCode != http.StatusOK) {
				return
			}
			contentType := w.Header().Get("Content-Type")
			if strings.Contains(contentType, "\n") {
				return
			}
			log.Debugf(ctx, "caching response of length %d for %s", rec.buf.Len(), k)
			entry := append([]byte(contentType+"\n"), rec.buf.Bytes()...)
			put := func() {
				setCtx, cancelSet := context.WithTimeout(context.Background(), 1*time.Second)
				defer cancelSet()
				if err := c.Put(setCtx, k, entry, ttl); err != nil {
					recordCacheError(ctx, name)
					log.Errorf(ctx, "cache set %q: %v", k, err)
				}
			}
			if o.syncPut {
				put()
			} else {
				go put()
			}
		})
	}
}

// cacheRecorder is an http.ResponseWriter that collects the response body
// for later writing to the cache, along with any write error and the
// resulting HTTP status code.
type cacheRecorder struct {
	http.ResponseWriter
	statusCode int

	bufErr error
	buf    *bytes.Buffer
}

func (r *cacheRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	if err == nil {
		if _, bufErr := r.buf.Write(b); bufErr != nil {
			r.bufErr = bufErr
		}
	} else {
		r.bufErr = fmt.Errorf("ResponseWriter.Write failed: %v", err)
	}
	return n, err
}

// WriteHeader keeps the largest status code written, so that any handler
// reporting a failure prevents caching.
func (r *cacheRecorder) WriteHeader(statusCode int) {
	if statusCode > r.statusCode {
		r.statusCode = statusCode
	}
	r.ResponseWriter.WriteHeader(statusCode)
}
