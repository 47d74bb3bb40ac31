package middleware

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/trace"
)

// Logger is a middleware that logs each HTTP request in JSON format to stdout.
// Required fields:
// - request_id (taken from context locals set by RequestID middleware)
// - method
// - path
// - status
// - latency (in milliseconds, as float)
// - ts (request completion time, RFC3339 in UTC)
// - trace_id (only when the request carries a sampled span)
func Logger() fiber.Handler {
	return LoggerWithWriter(os.Stdout, time.UTC)
}

// LoggerWithWriter is Logger writing to w with timestamps rendered in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	if loc == nil {
		loc = time.UTC
	}
	// Prepare a JSON encoder that writes one JSON object per line.
	enc := json.NewEncoder(w)
	var mu sync.Mutex

	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Process request
		err := c.Next()

		// Collect fields after handler executed to capture final status
		rid, _ := c.Locals(RequestIDLocalKey).(string)
		method := c.Method()
		// Use only the path segment (no query string) to match requirement naming
		path := c.Path()
		status := c.Response().StatusCode()
		latency := float64(time.Since(start).Microseconds()) / 1000

		entry := map[string]any{
			"ts":         time.Now().In(loc).Format(time.RFC3339Nano),
			"request_id": rid,
			"method":     method,
			"path":       path,
			"status":     status,
			"latency":    latency,
		}
		if sc := trace.SpanContextFromContext(c.UserContext()); sc.IsValid() {
			entry["trace_id"] = sc.TraceID().String()
		}

		mu.Lock()
		_ = enc.Encode(entry)
		mu.Unlock()

		return err
	}
}
