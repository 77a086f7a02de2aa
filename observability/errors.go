package observability

import "errors"

// ErrNilConfig is returned when Validate is called on a nil Config pointer.
var ErrNilConfig = errors.New("observability: config is nil")

// ErrMissingServiceName is returned when no service name is configured.
var ErrMissingServiceName = errors.New("observability: service name is required")

// ErrInvalidExporter is returned for an exporter other than none, stdout, otlp-grpc or otlp-http.
var ErrInvalidExporter = errors.New("observability: unknown metrics exporter")

// ErrMissingEndpoint is returned when an OTLP exporter has no endpoint.
var ErrMissingEndpoint = errors.New("observability: endpoint is required")

// ErrInvalidEndpointFormat is returned when an OTLP endpoint carries a URL scheme.
var ErrInvalidEndpointFormat = errors.New("observability: invalid endpoint format")
