package traceadapter

import (
	"go.opentelemetry.io/otel/attribute"
)

const (
	methodKey     = attribute.Key("vault.method")
	pathKey       = attribute.Key("vault.path")
	statusCodeKey = attribute.Key("vault.status_code")
)

// The request verb, including the service's non-standard LIST.
//
// Type: string
// Required: Yes
// Examples: "GET", "LIST"
func Method(method string) attribute.KeyValue {
	return methodKey.String(method)
}

// The request path below the base address.
//
// Type: string
// Required: Yes
// Examples: "/v1/secret/app", "/v1/sys/health"
func Path(path string) attribute.KeyValue {
	return pathKey.String(path)
}

// The status code of the response, once one arrived.
//
// Type: int
// Required: No
// Examples: 200, 404
func StatusCode(status int) attribute.KeyValue {
	return statusCodeKey.Int(status)
}
