package decoders

import (
	"stream-processor/src/interfaces"
	"stream-processor/src/logger"
	"stream-processor/src/models"
)

// -----------------------------------------------------------------------------

// Generic decodes feeds that already publish normalized ticks, one object or an
// array of objects keyed timestamp/price/volume/bid/ask. Records carrying a
// "type" other than "trade" are skipped, as are untyped records with neither a
// price nor a timestamp (status, heartbeat, null). No subscription is sent.
type Generic struct {
	baseDecoder
}

// genericRecord uses pointers so absent keys can be told apart from zero values.
type genericRecord struct {
	Type      string   `json:"type"`
	Timestamp *float64 `json:"timestamp"`
	Price     *float64 `json:"price"`
	Volume    *float64 `json:"volume"`
	Bid       *float64 `json:"bid"`
	Ask       *float64 `json:"ask"`
}

func (r genericRecord) isTrade() bool {
	if r.Type != "" {
		return r.Type == "trade"
	}
	return r.Price != nil || r.Timestamp != nil
}

func (r genericRecord) tick() models.MTick {
	return models.MTick{
		Timestamp: valueOrZero(r.Timestamp),
		Price:     valueOrZero(r.Price),
		Volume:    valueOrZero(r.Volume),
		Bid:       valueOrZero(r.Bid),
		Ask:       valueOrZero(r.Ask),
	}
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// -----------------------------------------------------------------------------

func init() {
	if err := Register("generic", NewGeneric); err != nil {
		panic(err)
	}
}

// -----------------------------------------------------------------------------

// NewGeneric creates a new pass-through decoder.
func NewGeneric(config *models.MStreamConfig, logger *logger.Logger) (interfaces.IDecoder, error) {
	base, err := newBaseDecoder("generic", config, logger)
	if err != nil {
		return nil, err
	}
	return &Generic{baseDecoder: base}, nil
}

// -----------------------------------------------------------------------------

func (g *Generic) SubscribeMessages() ([][]byte, error) {
	return nil, nil
}

// -----------------------------------------------------------------------------

func (g *Generic) ParseMessage(message []byte) ([]models.MTick, error) {
	records, err := decodeRecords[genericRecord](message)
	if err != nil {
		return nil, err
	}

	var ticks []models.MTick
	for _, r := range records {
		if !r.isTrade() {
			continue
		}
		ticks = append(ticks, r.tick())
	}
	return ticks, nil
}
