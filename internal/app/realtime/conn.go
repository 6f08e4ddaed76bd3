/*
Package realtime maintains the client's single connection to the game
server's topic-based realtime channel.

This file defines the Conn struct, which owns the websocket connection, the
subscription bookkeeping, and the read/write message loops. Reconnection uses
a fixed delay; there is no custom backoff and no outbound queue across
disconnects.
*/
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mimico/internal/pkg/errs"
	"mimico/internal/pkg/logx"
)

const (
	// timeout duration for writing to the websocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed to wait for a Pong message from the server.
	pongWait = 60 * time.Second

	// frequency at which the client sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of an inbound frame.
	maxMessageSize = 8192

	// fixed delay before a reconnect attempt after a lost connection.
	reconnectDelay = 5 * time.Second

	// capacity of the outbound send queue.
	sendChannelBuffer = 256
)

// Conn owns the single logical connection to the realtime channel.
// All methods are safe for concurrent use.
type Conn struct {
	// url is the websocket endpoint of the realtime channel.
	url string

	// mu protects all mutable state below.
	mu sync.RWMutex

	// token is the credential presented on the next handshake.
	token string

	// conn is the live websocket connection, nil while disconnected.
	conn *websocket.Conn

	// connected reports whether the handshake has completed.
	connected bool

	// dialing is set while a handshake attempt is in flight, so a Connect
	// racing the reconnect timer cannot open a second socket.
	dialing bool

	// closed is set by Disconnect and suppresses automatic reconnection.
	closed bool

	// subs maps subscribed topics to their callbacks; replace-if-present.
	subs map[string]Callback

	// send is the buffered queue of outbound frames for the write loop.
	send chan []byte

	// reconnectTimer drives the fixed-delay reconnect after connection loss.
	reconnectTimer *time.Timer

	// onConnected runs after every successful handshake, including reconnects.
	onConnected func()

	// onError runs on handshake failure.
	onError func(error)

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewConn constructs a Conn for the given websocket URL. No connection is
// established until Connect is called.
func NewConn(wsURL string) *Conn {
	connLogger := logx.Logger().With().
		Str("component", "realtime").
		Str("ws_url", wsURL).
		Logger()

	return &Conn{
		url:    wsURL,
		subs:   make(map[string]Callback),
		logger: connLogger,
	}
}

// SetToken updates the credential used on the next handshake. It does not
// re-authenticate an already-open connection.
func (c *Conn) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
}

// IsConnected reports whether the connection is currently established.
func (c *Conn) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.connected
}

// ActiveTopics returns the currently subscribed topics.
func (c *Conn) ActiveTopics() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	topics := make([]string, 0, len(c.subs))
	for topic := range c.subs {
		topics = append(topics, topic)
	}
	return topics
}

// Connect establishes the connection. Idempotent: when already connected it
// invokes onConnected immediately without a second handshake. onConnected
// also runs after every automatic reconnect so the owner can re-register its
// subscriptions; onError receives handshake failures.
func (c *Conn) Connect(onConnected func(), onError func(error)) {
	c.mu.Lock()
	c.onConnected = onConnected
	c.onError = onError
	c.closed = false

	if c.connected {
		c.mu.Unlock()
		c.logger.Debug().Msg("Connect called while already connected.")
		if onConnected != nil {
			onConnected()
		}
		return
	}
	c.mu.Unlock()

	c.dial()
}

// dial performs one handshake attempt. On failure it reports the error and
// arms the fixed-delay reconnect timer. Only one attempt runs at a time;
// redundant calls return without touching the wire.
func (c *Conn) dial() {
	c.mu.Lock()
	if c.dialing || c.connected || c.closed {
		c.mu.Unlock()
		return
	}
	c.dialing = true
	token := c.token
	wsURL := c.url
	c.mu.Unlock()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	wsConn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	if err != nil {
		c.logger.Error().Err(err).Msg("Realtime handshake failed.")

		c.mu.Lock()
		c.dialing = false
		onError := c.onError
		closed := c.closed
		c.mu.Unlock()

		if onError != nil {
			onError(err)
		}
		if !closed {
			c.scheduleReconnect()
		}
		return
	}

	c.mu.Lock()
	c.dialing = false
	if c.closed {
		// Disconnect won the race; the fresh socket is unwanted.
		c.mu.Unlock()
		wsConn.Close()
		return
	}
	c.conn = wsConn
	c.connected = true
	c.send = make(chan []byte, sendChannelBuffer)
	send := c.send
	onConnected := c.onConnected
	c.mu.Unlock()

	c.logger.Info().Msg("Realtime connection established.")

	go c.readPump(wsConn)
	go c.writePump(wsConn, send)

	if onConnected != nil {
		onConnected()
	}
}

// scheduleReconnect arms the fixed-delay reconnect timer unless Disconnect
// was called.
func (c *Conn) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	c.reconnectTimer = time.AfterFunc(reconnectDelay, c.dial)

	c.logger.Info().Dur("delay", reconnectDelay).Msg("Reconnect scheduled.")
}

// Subscribe registers a callback for a topic. It returns a nil handle and
// logs when disconnected. Re-subscribing to an already-subscribed topic
// replaces the previous callback instead of stacking a duplicate.
func (c *Conn) Subscribe(topic string, callback Callback) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		c.logger.Error().Str("topic", topic).Msg("Subscribe failed: not connected.")
		return nil
	}

	if _, ok := c.subs[topic]; ok {
		c.logger.Debug().Str("topic", topic).Msg("Replacing existing subscription.")
	}
	c.subs[topic] = callback

	return &Subscription{Topic: topic}
}

// Unsubscribe removes the subscription for a topic, if any.
func (c *Conn) Unsubscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.subs, topic)
}

// Publish queues a frame addressed to the given topic. Delivery is not
// guaranteed: when disconnected, or when the send queue is full, the frame is
// dropped with a log. There is no outbound queue across disconnects.
func (c *Conn) Publish(topic string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error().Err(err).Str("topic", topic).Msg("Failed to marshal outbound payload.")
		return
	}

	raw, err := json.Marshal(Frame{Destination: topic, Body: body})
	if err != nil {
		c.logger.Error().Err(err).Str("topic", topic).Msg("Failed to marshal outbound frame.")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.send == nil {
		c.logger.Warn().Str("topic", topic).Msg("Publish dropped: not connected.")
		return
	}

	select {
	case c.send <- raw:
	default:
		c.logger.Warn().
			Str("topic", topic).
			Int("queue_len", len(c.send)).
			Msg("Send queue full, dropping frame.")
	}
}

// Disconnect deactivates the connection, clears all subscription bookkeeping,
// and stops the reconnect timer. Safe to call when already disconnected.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	c.closed = true

	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}

	c.subs = make(map[string]Callback)

	wsConn := c.conn
	wasConnected := c.connected
	c.conn = nil
	c.connected = false

	if c.send != nil {
		close(c.send)
		c.send = nil
	}
	c.mu.Unlock()

	if wsConn != nil {
		wsConn.Close()
	}

	if wasConnected {
		c.logger.Info().Msg("Realtime connection closed.")
	}
}

// readPump reads frames from the websocket connection until it fails, then
// performs connection-loss cleanup.
func (c *Conn) readPump(wsConn *websocket.Conn) {
	defer c.handleConnectionLoss(wsConn)

	wsConn.SetReadLimit(maxMessageSize)

	if err := wsConn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline.")
		return
	}

	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("Error reading frame.")
			}
			break
		}

		c.dispatch(raw)
	}
}

// handleConnectionLoss resets connection state after the read loop exits and
// arms the reconnect timer unless Disconnect was called. Subscriptions are
// cleared; the owner re-registers them when onConnected fires again.
func (c *Conn) handleConnectionLoss(wsConn *websocket.Conn) {
	c.mu.Lock()

	if c.conn != wsConn {
		// A stale pump from a previous connection; release its socket and
		// leave the current state alone.
		c.mu.Unlock()
		wsConn.Close()
		return
	}

	c.conn = nil
	c.connected = false
	c.subs = make(map[string]Callback)

	if c.send != nil {
		close(c.send)
		c.send = nil
	}

	closed := c.closed
	c.mu.Unlock()

	wsConn.Close()

	if !closed {
		c.logger.Warn().Msg("Realtime connection lost.")
		c.scheduleReconnect()
	}
}

// writePump writes queued frames and periodic pings to the websocket
// connection until the queue closes or a write fails.
func (c *Conn) writePump(wsConn *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-send:
			if err := wsConn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline.")
				return
			}

			if !ok {
				if err := wsConn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug().Err(err).Msg("Error writing close message.")
				}
				return
			}

			if err := wsConn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error().Err(err).Msg("Error writing frame.")
				return
			}

		case <-ticker.C:
			if err := wsConn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline on ping.")
				return
			}

			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error().Err(err).Msg("Error writing ping.")
				return
			}
		}
	}
}

// dispatch parses one inbound frame and routes it to the subscribed callback.
// A malformed body is delivered as an error-shaped envelope so one bad
// message never takes down the read loop or the subscription.
func (c *Conn) dispatch(raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.logger.Warn().Err(err).Bytes("frame", raw).Msg("Discarding unparseable frame.")
		return
	}

	if frame.Topic == "" {
		c.logger.Warn().Bytes("frame", raw).Msg("Discarding frame without a topic.")
		return
	}

	c.mu.RLock()
	callback, ok := c.subs[frame.Topic]
	c.mu.RUnlock()

	if !ok {
		c.logger.Debug().Str("topic", frame.Topic).Msg("No subscription for topic.")
		return
	}

	body, err := normalizeBody(frame.Body)
	if err != nil {
		c.logger.Warn().Err(err).Str("topic", frame.Topic).Msg("Inbound body failed normalization.")
		callback(Envelope{
			Topic: frame.Topic,
			Err:   errs.NewError(errs.ErrMessageParseFailed),
			Raw:   frame.Body,
		})
		return
	}

	callback(Envelope{Topic: frame.Topic, Body: body})
}
