package decoders

import (
	"fmt"
	"net/http"
	"strings"

	"stream-processor/src/interfaces"
	"stream-processor/src/logger"
	"stream-processor/src/models"
)

// -----------------------------------------------------------------------------
// STRUCT DEFINITION
// -----------------------------------------------------------------------------

// Polygon implements interfaces.IDecoder for the Polygon trades websocket.
type Polygon struct {
	baseDecoder
}

// polygonEvent holds the trade fields of a Polygon event; absent keys stay zero.
type polygonEvent struct {
	Event     string  `json:"ev"`
	Symbol    string  `json:"sym"`
	Timestamp float64 `json:"t"`
	Price     float64 `json:"p"`
	Size      float64 `json:"s"`
	Bid       float64 `json:"bp"`
	Ask       float64 `json:"ap"`
}

const polygonTradeEvent = "T"

// -----------------------------------------------------------------------------
// CONSTRUCTOR AND REGISTRATION
// -----------------------------------------------------------------------------

func init() {
	if err := Register("polygon", NewPolygon); err != nil {
		panic(err)
	}
}

// -----------------------------------------------------------------------------

// NewPolygon creates a new Polygon decoder.
// Matches the interfaces.IDecoderConstructor signature.
func NewPolygon(config *models.MStreamConfig, logger *logger.Logger) (interfaces.IDecoder, error) {
	base, err := newBaseDecoder("polygon", config, logger)
	if err != nil {
		return nil, err
	}
	return &Polygon{baseDecoder: base}, nil
}

// -----------------------------------------------------------------------------
// IDecoder IMPLEMENTATION
// -----------------------------------------------------------------------------

// GetHeaders authenticates the handshake with a bearer token when an API key is configured.
func (p *Polygon) GetHeaders() http.Header {
	if p.Config.APIKey == "" {
		return nil
	}
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+p.Config.APIKey)
	return headers
}

// -----------------------------------------------------------------------------

// SubscribeMessages creates the trade subscription: "T.*" for the whole feed,
// otherwise one "T.<SYMBOL>" entry per configured symbol.
func (p *Polygon) SubscribeMessages() ([][]byte, error) {
	params := "T.*"
	if !wantsAllSymbols(p.Config.Symbols) {
		channels := make([]string, 0, len(p.Config.Symbols))
		for _, symbol := range p.Config.Symbols {
			channels = append(channels, "T."+strings.ToUpper(symbol))
		}
		params = strings.Join(channels, ",")
	}

	subMsg, err := p.Serializer.Marshal(map[string]string{
		"action": "subscribe",
		"params": params,
	})
	if err != nil {
		p.Logger.Error("%s : failed to serialize subscription message: %v", p.Name, err)
		return nil, fmt.Errorf("failed to serialize subscription message: %w", err)
	}
	return [][]byte{subMsg}, nil
}

// -----------------------------------------------------------------------------

// ParseMessage decodes a Polygon payload (one event or an array of events).
// Only trade events ("ev":"T") produce ticks; status and other events are ignored.
func (p *Polygon) ParseMessage(message []byte) ([]models.MTick, error) {
	events, err := decodeRecords[polygonEvent](message)
	if err != nil {
		return nil, err
	}

	var ticks []models.MTick
	for _, ev := range events {
		if ev.Event != polygonTradeEvent {
			continue
		}
		ticks = append(ticks, models.MTick{
			Timestamp: ev.Timestamp,
			Price:     ev.Price,
			Volume:    ev.Size,
			Bid:       ev.Bid,
			Ask:       ev.Ask,
		})
	}
	return ticks, nil
}
