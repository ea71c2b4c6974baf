package interfaces

// -----------------------------------------------------------------------------

// ISerializer defines the contract for marshaling and unmarshaling data.
// Decoders use it for handshake messages and publishers for outbound results.
type ISerializer interface {
	// Marshal converts a Go value into a byte slice.
	Marshal(obj any) ([]byte, error)

	// Unmarshal converts a byte slice back into a Go value.
	Unmarshal(data []byte, obj any) error

	// ContentType names the wire format, e.g. "application/json".
	ContentType() string
}
