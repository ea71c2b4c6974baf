package decoders

import (
	"fmt"
	"net/url"
	"strings"

	"stream-processor/src/interfaces"
	"stream-processor/src/logger"
	"stream-processor/src/models"
)

// -----------------------------------------------------------------------------
// STRUCT DEFINITION
// -----------------------------------------------------------------------------

// Finnhub implements interfaces.IDecoder for the Finnhub trades websocket.
type Finnhub struct {
	baseDecoder
}

type finnhubMessage struct {
	Type string         `json:"type"`
	Data []finnhubTrade `json:"data"`
}

type finnhubTrade struct {
	Symbol    string  `json:"s"`
	Price     float64 `json:"p"`
	Timestamp float64 `json:"t"`
	Volume    float64 `json:"v"`
}

// -----------------------------------------------------------------------------
// CONSTRUCTOR AND REGISTRATION
// -----------------------------------------------------------------------------

func init() {
	if err := Register("finnhub", NewFinnhub); err != nil {
		panic(err)
	}
}

// -----------------------------------------------------------------------------

// NewFinnhub creates a new Finnhub decoder.
func NewFinnhub(config *models.MStreamConfig, logger *logger.Logger) (interfaces.IDecoder, error) {
	base, err := newBaseDecoder("finnhub", config, logger)
	if err != nil {
		return nil, err
	}
	if wantsAllSymbols(config.Symbols) {
		return nil, fmt.Errorf("finnhub : at least one explicit symbol is required")
	}
	return &Finnhub{baseDecoder: base}, nil
}

// -----------------------------------------------------------------------------
// IDecoder IMPLEMENTATION
// -----------------------------------------------------------------------------

// GetEndpointWithCredentials appends the API key as the token query parameter.
func (f *Finnhub) GetEndpointWithCredentials() string {
	if f.Config.APIKey == "" {
		return f.Config.Endpoint
	}
	u, err := url.Parse(f.Config.Endpoint)
	if err != nil {
		return f.Config.Endpoint
	}
	query := u.Query()
	query.Set("token", f.Config.APIKey)
	u.RawQuery = query.Encode()
	return u.String()
}

// -----------------------------------------------------------------------------

// SubscribeMessages returns one subscribe message per symbol, Finnhub does not batch them.
func (f *Finnhub) SubscribeMessages() ([][]byte, error) {
	messages := make([][]byte, 0, len(f.Config.Symbols))
	for _, symbol := range f.Config.Symbols {
		subMsg, err := f.Serializer.Marshal(map[string]string{
			"type":   "subscribe",
			"symbol": strings.ToUpper(symbol),
		})
		if err != nil {
			f.Logger.Error("%s : failed to serialize subscription message for %s: %v", f.Name, symbol, err)
			return nil, fmt.Errorf("failed to serialize subscription message: %w", err)
		}
		messages = append(messages, subMsg)
	}
	return messages, nil
}

// -----------------------------------------------------------------------------

// ParseMessage decodes a {"type":"trade","data":[...]} envelope. Pings and other
// message types yield no ticks.
func (f *Finnhub) ParseMessage(message []byte) ([]models.MTick, error) {
	var msg finnhubMessage
	if err := f.Serializer.Unmarshal(message, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if msg.Type != "trade" {
		return nil, nil
	}

	ticks := make([]models.MTick, 0, len(msg.Data))
	for _, trade := range msg.Data {
		ticks = append(ticks, models.MTick{
			Timestamp: trade.Timestamp,
			Price:     trade.Price,
			Volume:    trade.Volume,
		})
	}
	return ticks, nil
}
