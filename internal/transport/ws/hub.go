package ws

import (
	"encoding/json"
	"sync"

	"github.com/reallygood83/counselingautomation/internal/logger"
)

// MessageType defines the type of WebSocket message
type MessageType string

// MsgSubscribed acknowledges a new connection; analysis progress types live in the service package
const MsgSubscribed MessageType = "subscribed"

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans analysis progress out to the teachers watching a survey
type Hub struct {
	// surveyID -> connections
	conns map[string]map[*Connection]struct{}

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage

	log *logger.Logger
}

// Connection represents a WebSocket connection
type Connection struct {
	SurveyID     string
	TeacherEmail string
	Send         chan []byte
	Hub          *Hub
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	SurveyID string
	Message  *Message
}

// NewHub creates a new WebSocket hub
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	h := &Hub{
		conns:      make(map[string]map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		log:        log,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.SurveyID] == nil {
				h.conns[conn.SurveyID] = make(map[*Connection]struct{})
			}
			h.conns[conn.SurveyID][conn] = struct{}{}
			h.mu.Unlock()
			h.log.Info("teacher subscribed", "surveyId", conn.SurveyID, "teacherEmail", conn.TeacherEmail)

		case conn := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.conns[conn.SurveyID]; ok {
				if _, ok := set[conn]; ok {
					delete(set, conn)
					close(conn.Send)
					if len(set) == 0 {
						delete(h.conns, conn.SurveyID)
					}
					h.log.Info("teacher unsubscribed", "surveyId", conn.SurveyID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Message)
			if err != nil {
				h.log.Warn("broadcast marshal failed", "surveyId", msg.SurveyID, "error", err)
				continue
			}
			h.mu.RLock()
			for conn := range h.conns[msg.SurveyID] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Subscribers returns how many connections watch a survey
func (h *Hub) Subscribers(surveyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[surveyID])
}

// BroadcastToSurvey sends a message to every teacher watching the survey (implements service.Broadcaster)
func (h *Hub) BroadcastToSurvey(surveyID string, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Warn("broadcast payload marshal failed", "surveyId", surveyID, "type", msgType, "error", err)
		return
	}
	h.broadcast <- &BroadcastMessage{
		SurveyID: surveyID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}
