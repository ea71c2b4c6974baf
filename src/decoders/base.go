package decoders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"stream-processor/src/interfaces"
	"stream-processor/src/logger"
	"stream-processor/src/models"
	"stream-processor/src/serializers"
	"stream-processor/src/utils"
)

// -----------------------------------------------------------------------------

// baseDecoder carries what every provider shares: name, config, logger and the
// serializer used for outbound handshake messages.
type baseDecoder struct {
	Name       string
	Logger     *logger.Logger
	Config     *models.MStreamConfig
	Serializer interfaces.ISerializer
}

// -----------------------------------------------------------------------------

func newBaseDecoder(name string, config *models.MStreamConfig, logger *logger.Logger) (baseDecoder, error) {
	if config == nil {
		return baseDecoder{}, fmt.Errorf("%s : stream config cannot be nil", name)
	}
	return baseDecoder{
		Name:       name,
		Logger:     logger,
		Config:     config,
		Serializer: serializers.NewJSONSerializer(),
	}, nil
}

// -----------------------------------------------------------------------------

// GetName returns the provider name
func (b *baseDecoder) GetName() string {
	return b.Name
}

// GetEndPoint returns the endpoint with credentials masked (for display/logging)
func (b *baseDecoder) GetEndPoint() string {
	return utils.MaskAPIKey(b.Config.Endpoint)
}

// GetEndpointWithCredentials returns the configured endpoint unchanged
func (b *baseDecoder) GetEndpointWithCredentials() string {
	return b.Config.Endpoint
}

// GetHeaders returns no extra handshake headers
func (b *baseDecoder) GetHeaders() http.Header {
	return nil
}

// GetSymbols returns the configured symbols list
func (b *baseDecoder) GetSymbols() []string {
	return b.Config.Symbols
}

// -----------------------------------------------------------------------------

// decodeRecords unmarshals a payload holding either one JSON object or an array of them.
func decodeRecords[T any](message []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(message)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty message")
	}

	if trimmed[0] == '[' {
		var records []T
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message array: %w", err)
		}
		return records, nil
	}

	var record T
	if err := json.Unmarshal(trimmed, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return []T{record}, nil
}

// -----------------------------------------------------------------------------

// wantsAllSymbols reports whether the symbol list subscribes to the whole feed.
func wantsAllSymbols(symbols []string) bool {
	if len(symbols) == 0 {
		return true
	}
	for _, s := range symbols {
		if s == "*" {
			return true
		}
	}
	return false
}
