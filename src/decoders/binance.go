package decoders

import (
	"encoding/json"
	"fmt"
	"strings"

	"stream-processor/src/interfaces"
	"stream-processor/src/logger"
	"stream-processor/src/models"
	"stream-processor/src/utils"
)

// -----------------------------------------------------------------------------
// STRUCT DEFINITION
// -----------------------------------------------------------------------------

// Binance implements interfaces.IDecoder for Binance trade streams
type Binance struct {
	baseDecoder
}

// -----------------------------------------------------------------------------
// CONSTRUCTOR AND REGISTRATION
// -----------------------------------------------------------------------------

func init() {
	if err := Register("binance", NewBinance); err != nil {
		panic(err)
	}
}

// -----------------------------------------------------------------------------

// NewBinance creates a new Binance decoder.
// Matches the interfaces.IDecoderConstructor signature.
func NewBinance(config *models.MStreamConfig, logger *logger.Logger) (interfaces.IDecoder, error) {
	base, err := newBaseDecoder("binance", config, logger)
	if err != nil {
		return nil, err
	}
	if wantsAllSymbols(config.Symbols) {
		return nil, fmt.Errorf("binance : at least one explicit symbol is required")
	}
	return &Binance{baseDecoder: base}, nil
}

// -----------------------------------------------------------------------------
// IDecoder IMPLEMENTATION
// -----------------------------------------------------------------------------

// SubscribeMessages creates the subscription message for the trade stream of every symbol.
func (b *Binance) SubscribeMessages() ([][]byte, error) {
	streams := make([]string, 0, len(b.Config.Symbols))
	for _, symbol := range b.Config.Symbols {
		streams = append(streams, strings.ToLower(symbol)+"@trade")
	}

	subMsg, err := b.Serializer.Marshal(map[string]any{
		"method": "SUBSCRIBE",
		"params": streams,
		"id":     1,
	})
	if err != nil {
		b.Logger.Error("%s : failed to serialize subscription message for symbols %v: %v", b.Name, b.Config.Symbols, err)
		return nil, fmt.Errorf("failed to serialize subscription message: %w", err)
	}

	return [][]byte{subMsg}, nil
}

// -----------------------------------------------------------------------------

// ParseMessage processes incoming messages from Binance. Raw and combined
// ("stream"/"data" envelope) payloads are accepted; only trade events yield a tick.
func (b *Binance) ParseMessage(message []byte) ([]models.MTick, error) {
	var data map[string]any
	if err := json.Unmarshal(message, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	// Skip subscription confirmations (messages with "result")
	if _, ok := data["result"]; ok {
		return nil, nil
	}

	if inner, ok := data["data"].(map[string]any); ok {
		if _, combined := data["stream"]; combined {
			data = inner
		}
	}

	eventType, _ := data["e"].(string)
	if eventType != "trade" {
		return nil, nil
	}

	return []models.MTick{b.parseTradeEvent(data)}, nil
}

// -----------------------------------------------------------------------------
// PRIVATE METHODS
// -----------------------------------------------------------------------------

// parseTradeEvent maps a trade event: T (trade time, ms), p (price), q (quantity).
// Trade events carry no book, bid and ask stay zero.
func (b *Binance) parseTradeEvent(data map[string]any) models.MTick {
	return models.MTick{
		Timestamp: numberField(data, "T"),
		Price:     numberField(data, "p"),
		Volume:    numberField(data, "q"),
	}
}

// -----------------------------------------------------------------------------

// numberField reads a numeric field sent either as a JSON number or as a decimal string.
// Missing or unreadable values yield 0.
func numberField(data map[string]any, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case string:
		return utils.ParseFloat(v)
	default:
		return 0
	}
}
