package middleware

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
)

// bufferedWriter holds the status and body of a response so they can be
// discarded when the surrounding transaction fails. Headers go straight to
// the underlying writer's map since nothing is sent before flush.
type bufferedWriter struct {
	gin.ResponseWriter
	status int
	body   bytes.Buffer
}

func newBufferedWriter(w gin.ResponseWriter) *bufferedWriter {
	return &bufferedWriter{ResponseWriter: w}
}

func (bw *bufferedWriter) WriteHeader(code int) {
	if bw.status == 0 && code > 0 {
		bw.status = code
	}
}

func (bw *bufferedWriter) WriteHeaderNow() {
	if bw.status == 0 {
		bw.status = http.StatusOK
	}
}

func (bw *bufferedWriter) Write(b []byte) (int, error) {
	bw.WriteHeaderNow()
	return bw.body.Write(b)
}

func (bw *bufferedWriter) WriteString(s string) (int, error) {
	bw.WriteHeaderNow()
	return bw.body.WriteString(s)
}

func (bw *bufferedWriter) Status() int {
	if bw.status == 0 {
		return http.StatusOK
	}
	return bw.status
}

func (bw *bufferedWriter) Size() int {
	if bw.status == 0 {
		return -1
	}
	return bw.body.Len()
}

func (bw *bufferedWriter) Written() bool { return bw.status != 0 }

// Flush is a no-op; output is released by flush once the outcome is known.
func (bw *bufferedWriter) Flush() {}

// discard drops the buffered response.
func (bw *bufferedWriter) discard() {
	bw.status = 0
	bw.body.Reset()
}

// flush writes the buffered response to the underlying writer.
func (bw *bufferedWriter) flush() {
	if bw.status == 0 {
		return
	}
	bw.ResponseWriter.WriteHeader(bw.status)
	if bw.body.Len() > 0 {
		_, _ = bw.ResponseWriter.Write(bw.body.Bytes())
	}
}
