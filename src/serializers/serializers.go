package serializers

import (
	"fmt"

	"stream-processor/src/interfaces"
)

// Supported encodings for the result publisher.
const (
	EncodingJSON = "json"
	EncodingGob  = "gob"
)

// -----------------------------------------------------------------------------

// NewSerializer returns the serializer registered for encoding.
func NewSerializer(encoding string) (interfaces.ISerializer, error) {
	switch encoding {
	case EncodingJSON, "":
		return NewJSONSerializer(), nil
	case EncodingGob:
		return NewBinSerializer(), nil
	default:
		return nil, fmt.Errorf("unsupported encoding: %q", encoding)
	}
}
