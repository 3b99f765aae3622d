package mw

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// page is a rendered HTML page and its entity tag.
type page struct {
	contentType string
	etag        string
	body        []byte
}

// pageBuffer holds the handler's output so the ETag can be set before
// anything reaches the client.
type pageBuffer struct {
	gin.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *pageBuffer) WriteHeader(code int) { w.status = code }

func (w *pageBuffer) WriteHeaderNow() {}

func (w *pageBuffer) Status() int { return w.status }

func (w *pageBuffer) Written() bool { return w.body.Len() > 0 }

func (w *pageBuffer) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *pageBuffer) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

func etagOf(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}

// PageCache keeps rendered HTML pages in memory and serves them with an
// ETag, answering a matching If-None-Match with 304. Only 200 text/html
// responses are kept. It must only wrap routes whose output does not depend
// on credentials.
func PageCache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.URL.Path
		if v, found := store.Get(key); found {
			c.Header("X-Cache", "HIT")
			servePage(c, v.(page))
			c.Abort()
			return
		}

		buf := &pageBuffer{ResponseWriter: c.Writer, status: http.StatusOK}
		c.Writer = buf
		c.Next()
		c.Writer = buf.ResponseWriter

		contentType := buf.Header().Get("Content-Type")
		if buf.status != http.StatusOK || !strings.HasPrefix(contentType, "text/html") {
			c.Writer.WriteHeader(buf.status)
			_, _ = c.Writer.Write(buf.body.Bytes())
			return
		}

		p := page{contentType: contentType, etag: etagOf(buf.body.Bytes()), body: buf.body.Bytes()}
		store.Set(key, p, ttl)
		c.Header("X-Cache", "MISS")
		servePage(c, p)
	}
}

func servePage(c *gin.Context, p page) {
	c.Header("ETag", p.etag)
	if c.GetHeader("If-None-Match") == p.etag {
		c.Writer.WriteHeader(http.StatusNotModified)
		c.Writer.WriteHeaderNow()
		return
	}
	c.Header("Content-Type", p.contentType)
	c.Writer.WriteHeader(http.StatusOK)
	_, _ = c.Writer.Write(p.body)
}
