package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"overbind/internal/protocol"
	"overbind/internal/remap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API only listens on loopback
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// event is one item queued for every client: a text message or a frame.
type event struct {
	msg   *protocol.Message
	frame *protocol.Packet
}

// outbound is an encoded WebSocket message
type outbound struct {
	kind int
	data []byte
}

// WSManager handles WebSocket connections and broadcasting
type WSManager struct {
	server     *Server
	clients    map[*WebSocketClient]bool
	clientsMu  sync.RWMutex
	broadcast  chan event
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	shutdown   chan struct{}
	stopOnce   sync.Once
	seq        atomic.Uint32
}

// WebSocketClient represents a connected monitor
type WebSocketClient struct {
	manager *WSManager
	conn    *websocket.Conn
	send    chan outbound
	ip      string

	// jsonFrames is set when the client subscribed to text frames
	jsonFrames atomic.Bool
}

func newWSManager(s *Server) *WSManager {
	return &WSManager{
		server:     s,
		clients:    make(map[*WebSocketClient]bool),
		broadcast:  make(chan event, 256),
		register:   make(chan *WebSocketClient),
		unregister: make(chan *WebSocketClient),
		shutdown:   make(chan struct{}),
	}
}

func (m *WSManager) start() {
	for {
		select {
		case client := <-m.register:
			m.clientsMu.Lock()
			m.clients[client] = true
			n := len(m.clients)
			m.clientsMu.Unlock()
			log.Printf("WS: New client registered from %s. Total clients: %d", client.ip, n)

		case client := <-m.unregister:
			m.clientsMu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.send)
				log.Printf("WS: Client unregistered from %s. Total clients: %d", client.ip, len(m.clients))
			}
			m.clientsMu.Unlock()

		case ev := <-m.broadcast:
			m.broadcastEvent(ev)

		case <-m.shutdown:
			m.clientsMu.Lock()
			for client := range m.clients {
				delete(m.clients, client)
				close(client.send)
			}
			m.clientsMu.Unlock()
			return
		}
	}
}

func (m *WSManager) stop() {
	m.stopOnce.Do(func() { close(m.shutdown) })
}

func (m *WSManager) broadcastEvent(ev event) {
	var text, binary []byte
	if ev.msg != nil {
		data, err := json.Marshal(ev.msg)
		if err != nil {
			log.Printf("WS: Failed to marshal broadcast message: %v", err)
			return
		}
		text = data
	}

	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()

	for client := range m.clients {
		out := outbound{kind: websocket.TextMessage, data: text}
		if ev.frame != nil {
			if client.jsonFrames.Load() {
				out.data = frameJSON(ev.frame.Frame)
			} else {
				if binary == nil {
					binary = protocol.EncodePacket(ev.frame)
				}
				out = outbound{kind: websocket.BinaryMessage, data: binary}
			}
		}

		select {
		case client.send <- out:
		default:
			log.Printf("WS: Client %s is too slow, dropping it", client.ip)
			close(client.send)
			delete(m.clients, client)
		}
	}
}

// publish queues an event without blocking the caller
func (m *WSManager) publish(ev event) {
	select {
	case m.broadcast <- ev:
	default:
	}
}

func frameJSON(frame remap.GamepadFrame) []byte {
	data, _ := json.Marshal(protocol.Message{Type: protocol.TypeFrame, Payload: frame})
	return data
}

func (m *WSManager) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WS: Failed to upgrade connection: %v", err)
		return
	}

	client := &WebSocketClient{
		manager: m,
		conn:    conn,
		send:    make(chan outbound, 256),
		ip:      r.RemoteAddr,
	}

	// Greet with the current state before anything is broadcast
	if data, err := json.Marshal(m.statusMessage()); err == nil {
		client.send <- outbound{kind: websocket.TextMessage, data: data}
	}

	select {
	case m.register <- client:
	case <-m.shutdown:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump reads client requests until the connection closes.
func (c *WebSocketClient) readPump() {
	defer func() {
		select {
		case c.manager.unregister <- c:
		case <-c.manager.shutdown:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WS: Read error: %v", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(50 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(message.kind, message.data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WebSocketClient) handleMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("WS: Invalid message format: %v", err)
		return
	}

	switch msg.Type {
	case protocol.TypeSubscribe:
		var payload protocol.SubscribePayload
		jsonBytes, _ := json.Marshal(msg.Payload)
		if err := json.Unmarshal(jsonBytes, &payload); err != nil {
			log.Printf("WS: Invalid subscribe payload: %v", err)
			return
		}
		c.jsonFrames.Store(!payload.Binary)
		log.Printf("WS: Client %s subscribed, binary frames=%v", c.ip, payload.Binary)

	case protocol.TypePing:
		// The send channel may already be closed by the hub
		c.manager.publishTo(c, protocol.Message{Type: protocol.TypePing})

	default:
		log.Printf("WS: Ignoring message type %q from %s", msg.Type, c.ip)
	}
}

// publishTo queues a reply for a single client if it is still registered
func (m *WSManager) publishTo(c *WebSocketClient, msg protocol.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	m.clientsMu.RLock()
	defer m.clientsMu.RUnlock()
	if !m.clients[c] {
		return
	}
	select {
	case c.send <- outbound{kind: websocket.TextMessage, data: data}:
	default:
	}
}

func (m *WSManager) statusMessage() protocol.Message {
	st := m.server.ctl.Status()
	return protocol.Message{
		Type: protocol.TypeStatus,
		Payload: protocol.StatusPayload{
			Running:      st.Running,
			MasherActive: st.MasherActive,
			Platform:     st.Platform,
			LastError:    st.LastError,
		},
	}
}

// BroadcastFrame sends a frame packet to every client
func (m *WSManager) BroadcastFrame(frame remap.GamepadFrame) {
	m.publish(event{frame: &protocol.Packet{
		Type:      protocol.PacketFrame,
		Seq:       m.seq.Add(1),
		Timestamp: time.Now().UnixMilli(),
		Frame:     frame,
	}})
}

// BroadcastMasher sends the masher flag to every client
func (m *WSManager) BroadcastMasher(active bool) {
	m.publish(event{msg: &protocol.Message{
		Type:    protocol.TypeMasher,
		Payload: protocol.MasherPayload{Active: active},
	}})
}

// BroadcastStatus sends the interceptor status to every client
func (m *WSManager) BroadcastStatus() {
	msg := m.statusMessage()
	m.publish(event{msg: &msg})
}
