// Package adapter holds the error contract shared by the AI provider
// adapters.
package adapter

import "errors"

// ErrGatewayUnavailable marks failures talking to the embedding or
// completion provider. Handlers map it to a retryable service error so
// callers can tell infrastructure trouble apart from bad input.
var ErrGatewayUnavailable = errors.New("ai provider unavailable")
