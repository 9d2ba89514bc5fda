package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type     string `json:"type"` // "message" or "new_session"
	UserID   string `json:"user_id"`
	Content  string `json:"content"`
	Priority string `json:"priority,omitempty"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type      string `json:"type"` // "response" or "error"
	Content   string `json:"content"`
	RequestID string `json:"request_id,omitempty"`
	Layer     string `json:"layer,omitempty"`
}

func (g *Gateway) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			g.sendChatError(conn, "invalid message format")
			continue
		}
		if req.UserID == "" {
			g.sendChatError(conn, "user_id is required")
			continue
		}

		switch req.Type {
		case "message":
			if req.Content == "" {
				g.sendChatError(conn, "content is required")
				continue
			}
			result := g.Dispatch(r.Context(), Request{
				UserID:   req.UserID,
				Text:     req.Content,
				Priority: req.Priority,
			})
			g.sendChat(conn, chatResponse{
				Type:      "response",
				Content:   result.Response,
				RequestID: result.RequestID,
				Layer:     string(result.Layer),
			})
		case "new_session":
			g.sendChat(conn, chatResponse{
				Type:    "response",
				Content: g.NewSession(r.Context(), req.UserID),
			})
		default:
			g.sendChatError(conn, "unknown message type: "+req.Type)
		}
	}
}

func (g *Gateway) sendChat(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		g.logger.Warn("websocket write failed", "error", err)
	}
}

func (g *Gateway) sendChatError(conn *websocket.Conn, message string) {
	g.sendChat(conn, chatResponse{Type: "error", Content: message})
}
