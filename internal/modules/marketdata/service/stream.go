package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"options_analyzer/internal/modules/config"
	"options_analyzer/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	defaultStreamURL = "wss://stream.data.alpaca.markets/v2"
	authTimeout      = 10 * time.Second
)

type streamQuote struct {
	price float64
	at    time.Time
}

// streamFrame is one element of the JSON array Alpaca sends per message.
type streamFrame struct {
	Type   string    `json:"T"`
	Symbol string    `json:"S"`
	Price  float64   `json:"p"`
	Time   time.Time `json:"t"`
	Msg    string    `json:"msg"`
	Code   int       `json:"code"`
}

// Stream keeps the last trade price per subscribed ticker from the Alpaca
// market data websocket.
type Stream struct {
	url    string
	key    string
	secret string
	dialer *websocket.Dialer

	mu   sync.RWMutex
	last map[string]streamQuote
	subs map[string]struct{}

	connMu sync.Mutex
	conn   *websocket.Conn

	now func() time.Time
}

func NewStream(cfg *config.Config) *Stream {
	u := strings.TrimRight(cfg.Alpaca.StreamURL, "/")
	if u == "" {
		u = defaultStreamURL
	}
	feed := cfg.Alpaca.Feed
	if feed == "" {
		feed = defaultFeed
	}
	return &Stream{
		url:    u + "/" + feed,
		key:    cfg.Alpaca.APIKey,
		secret: cfg.Alpaca.APISecret,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		last:   make(map[string]streamQuote),
		subs:   make(map[string]struct{}),
		now:    time.Now,
	}
}

// Start runs the connect/read loop until ctx is done, reconnecting after a
// second on any error.
func (s *Stream) Start(ctx context.Context) {
	for {
		if err := s.session(ctx); err != nil {
			logger.Warn("[STREAM] %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// Subscribe adds tickers to the trade subscription. Safe to call before Start.
func (s *Stream) Subscribe(tickers ...string) {
	var fresh []string
	s.mu.Lock()
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := s.subs[t]; ok {
			continue
		}
		s.subs[t] = struct{}{}
		fresh = append(fresh, t)
	}
	s.mu.Unlock()

	if len(fresh) == 0 {
		return
	}
	if err := s.write(subscribeMsg(fresh)); err != nil {
		logger.Debug("[STREAM] subscribe deferred until connect: %v", err)
	}
}

// Price returns the last streamed trade price if it is not older than maxAge.
func (s *Stream) Price(ticker string, maxAge time.Duration) (float64, bool) {
	s.mu.RLock()
	q, ok := s.last[ticker]
	s.mu.RUnlock()
	if !ok || q.price <= 0 {
		return 0, false
	}
	if maxAge > 0 && s.now().Sub(q.at) > maxAge {
		return 0, false
	}
	return q.price, true
}

func (s *Stream) session(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := s.authenticate(conn); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	// Subscribe only reaches the conn once it is published, so the snapshot
	// taken under connMu plus any later Subscribe covers every ticker.
	s.connMu.Lock()
	s.conn = conn
	syms := s.subscribed()
	if len(syms) > 0 {
		err = conn.WriteJSON(subscribeMsg(syms))
	}
	s.connMu.Unlock()
	defer func() {
		s.connMu.Lock()
		s.conn = nil
		s.connMu.Unlock()
	}()
	if err != nil {
		return err
	}
	logger.Info("[STREAM] connected %s", s.url)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.handle(msg)
	}
}

// authenticate sends the auth frame and waits for "authenticated". The conn
// is not shared yet, so it is written to directly.
func (s *Stream) authenticate(conn *websocket.Conn) error {
	if err := conn.SetReadDeadline(time.Now().Add(authTimeout)); err != nil {
		return err
	}
	if err := conn.WriteJSON(map[string]string{"action": "auth", "key": s.key, "secret": s.secret}); err != nil {
		return err
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "auth")
		}
		var frames []streamFrame
		if err := sonic.Unmarshal(msg, &frames); err != nil {
			continue
		}
		for _, f := range frames {
			switch {
			case f.Type == "success" && f.Msg == "authenticated":
				return conn.SetReadDeadline(time.Time{})
			case f.Type == "error":
				return errors.Errorf("auth rejected %d: %s", f.Code, f.Msg)
			}
		}
	}
}

func (s *Stream) handle(msg []byte) {
	var frames []streamFrame
	if err := sonic.Unmarshal(msg, &frames); err != nil {
		return
	}

	for _, f := range frames {
		switch f.Type {
		case "t":
			if f.Symbol == "" || f.Price <= 0 {
				continue
			}
			at := f.Time
			if at.IsZero() {
				at = s.now()
			}
			s.mu.Lock()
			if prev, ok := s.last[f.Symbol]; !ok || !at.Before(prev.at) {
				s.last[f.Symbol] = streamQuote{price: f.Price, at: at}
			}
			s.mu.Unlock()
		case "error":
			logger.Warn("[STREAM] server error %d: %s", f.Code, f.Msg)
		case "success":
			logger.Debug("[STREAM] %s", f.Msg)
		}
	}
}

func (s *Stream) subscribed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.subs))
	for t := range s.subs {
		out = append(out, t)
	}
	return out
}

func (s *Stream) write(v any) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return websocket.ErrCloseSent
	}
	return s.conn.WriteJSON(v)
}

func subscribeMsg(tickers []string) map[string]any {
	return map[string]any{"action": "subscribe", "trades": tickers}
}
