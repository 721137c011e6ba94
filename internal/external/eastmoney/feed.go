package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/pkg/config"
	"github.com/swfung/dualcannon/pkg/logger"
)

const (
	reconnectDelay    = 5 * time.Second
	maxReconnectDelay = 5 * time.Minute

	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
)

// BarHandler receives each completed minute bar from the feed.
type BarHandler func(symbol string, bar contracts.Bar)

// Feed streams minute bars for subscribed symbols over the provider's
// websocket push endpoint, reconnecting with backoff on drops.
type Feed struct {
	config  *config.Config
	logger  *logger.Logger
	handler BarHandler

	conn   *websocket.Conn
	connMu sync.RWMutex

	subscribed map[string]bool
	symbolsMu  sync.RWMutex

	stopCh       chan struct{}
	doneCh       chan struct{}
	reconnecting bool
	reconnectMu  sync.Mutex
}

// NewFeed creates a minute-bar feed client.
func NewFeed(cfg *config.Config, log *logger.Logger, handler BarHandler) *Feed {
	return &Feed{
		config:     cfg,
		logger:     log,
		handler:    handler,
		subscribed: make(map[string]bool),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start connects and launches the read and ping loops.
func (f *Feed) Start(ctx context.Context) error {
	f.logger.Info("Starting minute bar feed")

	if err := f.connect(ctx); err != nil {
		return fmt.Errorf("initial connection failed: %w", err)
	}

	go f.readLoop(ctx)
	go f.pingLoop(ctx)

	return nil
}

// Stop closes the connection and waits for the read loop to exit.
func (f *Feed) Stop() {
	f.logger.Info("Stopping minute bar feed")

	close(f.stopCh)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
	}
	f.connMu.Unlock()

	<-f.doneCh
}

// Subscribe registers symbols for minute bar pushes. Already-active
// subscriptions are kept.
func (f *Feed) Subscribe(symbols []string) {
	f.connMu.RLock()
	conn := f.conn
	f.connMu.RUnlock()

	if conn == nil {
		return
	}

	for _, symbol := range symbols {
		f.symbolsMu.RLock()
		active := f.subscribed[symbol]
		f.symbolsMu.RUnlock()
		if active {
			continue
		}

		msg := map[string]interface{}{
			"action": "subscribe",
			"topic":  "kline1m",
			"secid":  secID(symbol),
		}
		if err := conn.WriteJSON(msg); err != nil {
			f.logger.WithError(err).WithField("symbol", symbol).Error("Failed to subscribe")
			continue
		}

		f.symbolsMu.Lock()
		f.subscribed[symbol] = true
		f.symbolsMu.Unlock()

		f.logger.WithField("symbol", symbol).Debug("Subscribed to minute bars")
	}
}

func (f *Feed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	endpoint := f.config.Feed.WSEndpoint
	f.logger.WithField("url", endpoint).Debug("Connecting to feed")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	f.conn = conn
	f.conn.SetReadDeadline(time.Now().Add(pongWait))
	f.conn.SetPongHandler(func(string) error {
		f.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	f.logger.Info("Connected to minute bar feed")

	// resubscribe whatever was active before a reconnect
	f.symbolsMu.Lock()
	active := make([]string, 0, len(f.subscribed))
	for symbol := range f.subscribed {
		active = append(active, symbol)
	}
	f.subscribed = make(map[string]bool)
	f.symbolsMu.Unlock()

	if len(active) > 0 {
		go f.Subscribe(active)
	}

	return nil
}

func (f *Feed) readLoop(ctx context.Context) {
	defer close(f.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopCh:
			return
		default:
		}

		f.connMu.RLock()
		conn := f.conn
		f.connMu.RUnlock()

		if conn == nil {
			time.Sleep(1 * time.Second)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-f.stopCh:
				return
			default:
			}
			f.logger.WithError(err).Error("Feed read failed")
			f.handleDisconnect(ctx)
			continue
		}

		if err := f.handleMessage(message); err != nil {
			f.logger.WithError(err).Error("Feed message rejected")
		}
	}
}

// barMessage is the wire shape of one minute bar push.
type barMessage struct {
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"`
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

func (f *Feed) handleMessage(message []byte) error {
	var msg barMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return fmt.Errorf("unmarshal bar message: %w", err)
	}
	if msg.Symbol == "" || msg.Time == "" {
		return nil // heartbeat or ack
	}

	bar := contracts.Bar{
		Date:   msg.Date,
		Time:   msg.Time,
		Open:   msg.Open,
		High:   msg.High,
		Low:    msg.Low,
		Close:  msg.Close,
		Volume: msg.Volume,
	}
	if err := bar.Validate(); err != nil {
		return fmt.Errorf("bar for %s at %s: %w", msg.Symbol, msg.Time, err)
	}

	if f.handler != nil {
		f.handler(contracts.NormalizeSymbol(msg.Symbol), bar)
	}
	return nil
}

func (f *Feed) handleDisconnect(ctx context.Context) {
	f.reconnectMu.Lock()
	if f.reconnecting {
		f.reconnectMu.Unlock()
		return
	}
	f.reconnecting = true
	f.reconnectMu.Unlock()

	defer func() {
		f.reconnectMu.Lock()
		f.reconnecting = false
		f.reconnectMu.Unlock()
	}()

	f.logger.Warn("Feed disconnected, attempting to reconnect")

	delay := reconnectDelay
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopCh:
			return
		case <-time.After(delay):
		}

		if err := f.connect(ctx); err != nil {
			f.logger.WithError(err).WithField("delay", delay).Error("Reconnect failed, retrying")
			delay *= 2
			if delay > maxReconnectDelay {
				delay = maxReconnectDelay
			}
			continue
		}

		f.logger.Info("Reconnected to minute bar feed")
		return
	}
}

func (f *Feed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopCh:
			return
		case <-ticker.C:
			f.connMu.RLock()
			conn := f.conn
			f.connMu.RUnlock()

			if conn == nil {
				continue
			}

			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				f.logger.WithError(err).Error("Failed to send ping")
			}
		}
	}
}
