package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HTTP span attributes
const (
	HTTPMethodKey = attribute.Key("http.method")
	HTTPURLKey    = attribute.Key("http.url")
	HTTPStatusKey = attribute.Key("http.status_code")
)

// Redis span attributes
const (
	RedisCommandKey = attribute.Key("redis.command")
	RedisKeyKey     = attribute.Key("redis.key")
)

// Domain span attributes
const (
	RideIDKey            = attribute.Key("ride.id")
	ScooterIDKey         = attribute.Key("scooter.id")
	FareAmountKey        = attribute.Key("fare.amount")
	DurationKey          = attribute.Key("duration.seconds")
	ZoneTypeKey          = attribute.Key("zone.type")
	ZoneCheckSeqKey      = attribute.Key("zone.check_seq")
	LocationLatitudeKey  = attribute.Key("location.latitude")
	LocationLongitudeKey = attribute.Key("location.longitude")
)

// TraceHTTPClient wraps an outgoing HTTP call. fn returns the status code.
func TraceHTTPClient(ctx context.Context, tracerName, method, url string, fn func(context.Context) (int, error)) (int, error) {
	ctx, span := StartSpan(ctx, tracerName, fmt.Sprintf("HTTP %s", method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(HTTPMethodKey.String(method), HTTPURLKey.String(url)),
	)
	defer span.End()

	status, err := fn(ctx)
	if status > 0 {
		span.SetAttributes(HTTPStatusKey.Int(status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if status >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
	}
	return status, err
}

// TraceRedisCommand wraps a Redis command with tracing
func TraceRedisCommand(ctx context.Context, tracerName, command, key string, fn func(context.Context) error) error {
	ctx, span := StartSpan(ctx, tracerName, fmt.Sprintf("redis.%s", command),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(RedisCommandKey.String(command), RedisKeyKey.String(key)),
	)
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// LocationAttributes returns coordinate attributes for a span.
func LocationAttributes(latitude, longitude float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		LocationLatitudeKey.Float64(latitude),
		LocationLongitudeKey.Float64(longitude),
	}
}
