package http

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/pixelfield/internal/platform/requestctx"
)

// statusRecorder captures the status a route writes so the request log can
// report it. Hijack passes through for the live feed websocket, which takes
// the connection over entirely.
type statusRecorder struct {
	http.ResponseWriter
	status   int
	hijacked bool
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.hijacked = true
	return hijacker.Hijack()
}

// observe emits one log line per request with the identifiers needed to line
// it up against traces and journal entries, and converts panics into 500s.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if recovered := recover(); recovered != nil {
				log.Printf("canvas api: panic recovered method=%s path=%s request_id=%s panic=%v stack=%s",
					r.Method, r.URL.Path, valueOrDash(requestctx.RequestIDFromContext(r.Context())),
					recovered, strings.TrimSpace(string(debug.Stack())))
				recorder.WriteHeader(http.StatusInternalServerError)
			}
			logRequest(r, recorder, time.Since(start))
		}()

		next.ServeHTTP(recorder, r)
	})
}

// logRequest writes the request line. Hijacked connections are skipped; the
// websocket owns them and their lifetime is not a request duration.
func logRequest(r *http.Request, recorder *statusRecorder, elapsed time.Duration) {
	if recorder.hijacked {
		return
	}
	ctx := r.Context()
	line := fmt.Sprintf("canvas api: %s %s status=%d duration=%s actor=%s request_id=%s",
		r.Method, r.URL.Path, recorder.status, elapsed.Round(time.Millisecond),
		valueOrDash(requestctx.ActorFromContext(ctx)),
		valueOrDash(requestctx.RequestIDFromContext(ctx)))
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		line += fmt.Sprintf(" trace_id=%s span_id=%s", sc.TraceID(), sc.SpanID())
	}
	log.Print(line)
}

func valueOrDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
