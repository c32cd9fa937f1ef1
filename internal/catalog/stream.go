package catalog

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ---------------------------------------------------------------------------
// Pair stream — push notifications for newly created pairs
// ---------------------------------------------------------------------------

// StreamConfig configures the pair stream.
type StreamConfig struct {
	WSEndpoint     string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

// PairStream listens on a catalog WebSocket for pair-created events and
// expires the fetcher cache so the next Refresh fetches fresh data. The
// stream is an optimization: losing the connection only delays discovery
// until the TTL elapses.
type PairStream struct {
	cfg     StreamConfig
	fetcher *Fetcher

	mu   sync.Mutex
	conn *websocket.Conn

	eventsRecv atomic.Int64
	reconnects atomic.Int64
	connected  atomic.Bool
}

// pairEvent is a catalog push message.
type pairEvent struct {
	Type        string `json:"type"` // pair.created
	ChainID     string `json:"chainId"`
	PairAddress string `json:"pairAddress"`
}

// NewPairStream creates a pair stream feeding the given fetcher.
func NewPairStream(cfg StreamConfig, fetcher *Fetcher) *PairStream {
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = time.Second
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &PairStream{cfg: cfg, fetcher: fetcher}
}

// Run connects and listens until ctx is cancelled, reconnecting with
// backoff on failures.
func (s *PairStream) Run(ctx context.Context) {
	delay := s.cfg.ReconnectDelay
	const maxDelay = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			s.disconnect()
			return
		default:
		}

		if err := s.connect(ctx); err != nil {
			log.Warn().Err(err).Msg("stream: connection failed")
			s.reconnects.Add(1)
			select {
			case <-time.After(delay):
				delay *= 2
				if delay > maxDelay {
					delay = maxDelay
				}
			case <-ctx.Done():
				return
			}
			continue
		}

		delay = s.cfg.ReconnectDelay
		s.readLoop(ctx)
	}
}

func (s *PairStream) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.cfg.WSEndpoint, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.connected.Store(true)

	log.Info().Str("endpoint", s.cfg.WSEndpoint).Msg("stream: connected")
	return nil
}

func (s *PairStream) disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connected.Store(false)
}

func (s *PairStream) readLoop(ctx context.Context) {
	pingTicker := time.NewTicker(s.cfg.PingInterval)
	defer pingTicker.Stop()
	defer s.disconnect()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pingTicker.C:
			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn != nil {
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					log.Debug().Err(err).Msg("stream: ping failed")
					return
				}
			}
		default:
		}

		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Info().Msg("stream: connection closed normally")
			} else {
				log.Warn().Err(err).Msg("stream: read error, reconnecting")
			}
			return
		}

		s.handleMessage(message)
	}
}

func (s *PairStream) handleMessage(data []byte) {
	var ev pairEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	if ev.Type != "pair.created" || ev.ChainID != solanaChainID {
		return
	}

	s.eventsRecv.Add(1)
	s.fetcher.ExpireCache()

	log.Info().Str("pair", ev.PairAddress).Msg("stream: new pair, cache expired")
}

// StreamStats are counters exposed on the stats endpoint.
type StreamStats struct {
	Connected  bool  `json:"connected"`
	EventsRecv int64 `json:"events_recv"`
	Reconnects int64 `json:"reconnects"`
}

func (s *PairStream) Stats() StreamStats {
	return StreamStats{
		Connected:  s.connected.Load(),
		EventsRecv: s.eventsRecv.Load(),
		Reconnects: s.reconnects.Load(),
	}
}
