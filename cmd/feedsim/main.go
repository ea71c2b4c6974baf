package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stream-processor/src/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// feedsim serves a local Polygon-style trades websocket so the pipeline can run
// without a market data subscription:
//
//	go run ./cmd/feedsim -addr :9000
//	STREAM_ENDPOINT=ws://127.0.0.1:9000/stocks go run ./cmd/main

type trade struct {
	Event     string  `json:"ev"`
	Symbol    string  `json:"sym"`
	Timestamp int64   `json:"t"`
	Price     float64 `json:"p"`
	Size      float64 `json:"s"`
	Bid       float64 `json:"bp"`
	Ask       float64 `json:"ap"`
}

type status struct {
	Event   string `json:"ev"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func main() {
	addr := flag.String("addr", ":9000", "listen address")
	rate := flag.Int("rate", 200, "trades per second")
	batch := flag.Int("batch", 10, "trades per websocket message")
	symbol := flag.String("symbol", "AAPL", "symbol of the generated trades")
	flag.Parse()

	zapLogger, _ := zap.NewDevelopment()
	log := logger.NewLoggerFromZap(zapLogger, "feedsim")
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/stocks", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		log.Info("client connected from %s (auth %q)", r.RemoteAddr, r.Header.Get("Authorization"))

		if err := serve(ctx, conn, *symbol, *rate, *batch); err != nil {
			log.Warning("client %s: %v", r.RemoteAddr, err)
		}
	})

	server := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info("serving fake trades on ws://%s/stocks", *addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "feedsim: %v\n", err)
		os.Exit(1)
	}
}

// serve waits for the subscribe message, then streams a random walk until the client leaves.
func serve(ctx context.Context, conn *websocket.Conn, symbol string, rate, batch int) error {
	if err := conn.WriteJSON([]status{{Event: "status", Status: "connected", Message: "Connected Successfully"}}); err != nil {
		return err
	}
	if _, _, err := conn.ReadMessage(); err != nil {
		return fmt.Errorf("waiting for subscription: %w", err)
	}
	if err := conn.WriteJSON([]status{{Event: "status", Status: "success", Message: "subscribed to: T.*"}}); err != nil {
		return err
	}

	// drain client frames so close frames are noticed
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := max(time.Millisecond, time.Second*time.Duration(batch)/time.Duration(max(rate, 1)))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	price := 100.0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-closed:
			return nil
		case now := <-ticker.C:
			trades := make([]trade, batch)
			for i := range trades {
				price = max(0.01, price+rand.NormFloat64()*0.05)
				trades[i] = trade{
					Event:     "T",
					Symbol:    symbol,
					Timestamp: now.UnixMilli(),
					Price:     price,
					Size:      float64(1 + rand.IntN(500)),
					Bid:       price - 0.01,
					Ask:       price + 0.01,
				}
			}
			data, err := json.Marshal(trades)
			if err != nil {
				return err
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return err
			}
		}
	}
}
