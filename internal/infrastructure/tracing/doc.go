/*
Package tracing records a span per API request and logs it through zap.

Trace context travels in the X-Trace-ID and X-Span-ID headers. A request
without them starts a new trace; ids come from internal/shared/id.

	tracer := tracing.New("profiledeck", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

Handlers tag the active span with domain context:

	tracing.Tag(c.Request.Context(), "profile_id", id)

Completed spans go through a buffered channel; when it is full the span is
dropped with a warning.
*/
package tracing
