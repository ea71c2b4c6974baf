package interfaces

import (
	"net/http"

	"stream-processor/src/logger"
	"stream-processor/src/models"
)

// -----------------------------------------------------------------------------

// IDecoderConstructor defines the function signature for creating a new IDecoder instance.
type IDecoderConstructor func(config *models.MStreamConfig, logger *logger.Logger) (IDecoder, error)

// -----------------------------------------------------------------------------

// IDecoder is the provider-specific decode strategy. It keeps the connection
// manager provider agnostic: endpoint, handshake and field mapping all live here.
type IDecoder interface {
	// GetName returns the provider name
	GetName() string

	// GetEndPoint returns the endpoint without credentials (for display/logging)
	GetEndPoint() string

	// GetEndpointWithCredentials returns the endpoint used to dial, including credentials if any
	GetEndpointWithCredentials() string

	// GetHeaders returns the HTTP headers sent with the websocket handshake (may be nil)
	GetHeaders() http.Header

	// GetSymbols returns the subscribed symbols list
	GetSymbols() []string

	// SubscribeMessages returns the messages to send right after connecting.
	// An empty slice means the provider needs no subscribe handshake.
	SubscribeMessages() ([][]byte, error)

	// ParseMessage decodes one wire message into ticks. A malformed payload returns an error,
	// a well-formed payload without trade events returns no ticks and no error.
	ParseMessage(message []byte) ([]models.MTick, error)
}
