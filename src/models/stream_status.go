package models

// -----------------------------------------------------------------------------

// MConnectionState is the lifecycle state of the upstream connection.
type MConnectionState string

const (
	StateDisconnected MConnectionState = "DISCONNECTED"
	StateConnecting   MConnectionState = "CONNECTING"
	StateConnected    MConnectionState = "CONNECTED"
	StateReceiving    MConnectionState = "RECEIVING"
)

// -----------------------------------------------------------------------------

// MStreamStatus represents the runtime status of the streaming pipeline.
// It aggregates information from the decoder, the connection client and the processor.
type MStreamStatus struct {
	SourceName    string           `json:"source_name"`
	Provider      string           `json:"provider"`       // from IDecoder.GetName()
	TransportType string           `json:"transport_type"` // from IConnectionClient.GetType()
	Endpoint      string           `json:"endpoint"`       // masked, never carries credentials
	Symbols       []string         `json:"symbols"`
	State         MConnectionState `json:"state"`
	Running       bool             `json:"running"`
	QueueDepth    int              `json:"queue_depth"`
	QueueCapacity int              `json:"queue_capacity"`
	Results       int              `json:"results"`
	Reconnects    uint64           `json:"reconnects"`
	DecodeErrors  uint64           `json:"decode_errors"`
	DroppedTicks  uint64           `json:"dropped_ticks"`
}
