package pagecache

import "net/http"

// NoCacheRedirects marks 301 responses with Cache-Control: no-cache so
// browsers do not pin permanent redirects.
func NoCacheRedirects(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&redirectWriter{ResponseWriter: w}, r)
	})
}

type redirectWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *redirectWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		if status == http.StatusMovedPermanently {
			w.Header().Set("Cache-Control", "no-cache")
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *redirectWriter) Write(p []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(p)
}

func (w *redirectWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
