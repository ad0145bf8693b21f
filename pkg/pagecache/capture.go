package pagecache

import (
	"bytes"
	"net/http"
)

// captureWriter holds the status and body of a downstream response.
// Headers go straight to the real header map.
type captureWriter struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func newCaptureWriter(w http.ResponseWriter) *captureWriter {
	return &captureWriter{
		header: w.Header(),
		status: http.StatusOK,
	}
}

func (c *captureWriter) Header() http.Header {
	return c.header
}

func (c *captureWriter) WriteHeader(status int) {
	if c.wroteHeader {
		return
	}
	c.status = status
	c.wroteHeader = true
}

func (c *captureWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	return c.body.Write(p)
}

// restore writes the held status and body to w unmodified. It sniffs a
// Content-Type the way net/http would, so the store decision sees it.
// When the handler wrote nothing, w stays uncommitted so an outer handler
// (or net/http itself) decides the status.
func (c *captureWriter) restore(w http.ResponseWriter) {
	if !c.wroteHeader {
		return
	}
	if c.body.Len() > 0 && c.header.Get("Content-Type") == "" {
		c.header.Set("Content-Type", http.DetectContentType(c.body.Bytes()))
	}

	w.WriteHeader(c.status)
	if c.body.Len() > 0 {
		w.Write(c.body.Bytes())
	}
}
