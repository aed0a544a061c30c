/*
Package tracing records request spans for the control API.

Each HTTP request gets a span whose trace ID is the request ID, so log
lines, response headers and command spans line up. Spans are handed to a
buffered collector and written as structured log entries; a full buffer
drops spans rather than blocking requests.

# Usage

	tracer := tracing.New("api", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "invoke spawn importer")
	defer tracer.Submit(span)
*/
package tracing
