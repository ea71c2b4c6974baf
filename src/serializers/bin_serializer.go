package serializers

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"stream-processor/src/interfaces"
)

// -----------------------------------------------------------------------------

// BinSerializer implements interfaces.ISerializer with encoding/gob, for Go consumers
// of the published results.
type BinSerializer struct{}

// -----------------------------------------------------------------------------

// NewBinSerializer creates a new instance of the Gob serializer.
func NewBinSerializer() interfaces.ISerializer {
	return &BinSerializer{}
}

// -----------------------------------------------------------------------------

func (g *BinSerializer) Marshal(obj any) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	if err := enc.Encode(obj); err != nil {
		return nil, fmt.Errorf("gob marshal error: %w", err)
	}

	return buf.Bytes(), nil
}

// -----------------------------------------------------------------------------

// Unmarshal converts a Gob byte array back into the target object.
func (g *BinSerializer) Unmarshal(data []byte, obj any) error {
	dec := gob.NewDecoder(bytes.NewBuffer(data))
	if err := dec.Decode(obj); err != nil {
		return fmt.Errorf("gob unmarshal error: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (g *BinSerializer) ContentType() string {
	return "application/x-gob"
}
