package websocket

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log"
	"time"

	"swapmarket/pkg/errors"
)

const (
	MessageTypePing                 = "ping"
	MessageTypePong                 = "pong"
	MessageTypeSelectOffer          = "select_offer"
	MessageTypeSendMessage          = "send_message"
	MessageTypeMessage              = "message"
	MessageTypeOfferUpdate          = "offer_update"
	MessageTypeOffersSnapshot       = "offers_snapshot"
	MessageTypeConversationSnapshot = "conversation_snapshot"
	MessageTypeError                = "error"
)

type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// inboundMessage keeps Data raw until the type is known.
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type SelectOfferData struct {
	OfferID string `json:"offer_id"`
}

type SendMessageData struct {
	Content string `json:"content"`
}

type OfferUpdateData struct {
	OfferID        string  `json:"offer_id"`
	Status         string  `json:"status"`
	CashAdjustment float64 `json:"cash_adjustment"`
	Action         string  `json:"action"`
	ActorID        string  `json:"actor_id"`
}

type ErrorData struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func newWSMessage(messageType string, data interface{}) WSMessage {
	return WSMessage{
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// HandleClientMessage processes one incoming websocket message.
func (m *Manager) HandleClientMessage(ctx context.Context, client *Client, messageBytes []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		log.Printf("WebSocket: Failed to unmarshal message from client %s: %v", client.UserID, err)
		m.sendErrorToClient(client, "Invalid message format")
		return
	}

	switch msg.Type {
	case MessageTypePing:
		m.sendToClient(client, newWSMessage(MessageTypePong, map[string]string{"status": "alive"}))

	case MessageTypeSelectOffer:
		m.handleSelectOffer(ctx, client, msg.Data)

	case MessageTypeSendMessage:
		m.handleSendMessage(ctx, client, msg.Data)

	default:
		log.Printf("WebSocket: Unknown message type '%s' from client %s", msg.Type, client.UserID)
		m.sendErrorToClient(client, "Unknown message type")
	}
}

func (m *Manager) handleSelectOffer(ctx context.Context, client *Client, raw json.RawMessage) {
	var data SelectOfferData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			m.sendErrorToClient(client, "Invalid select_offer format")
			return
		}
	}

	if data.OfferID != "" {
		if _, err := m.offers.GetOffer(ctx, client.UserID, data.OfferID); err != nil {
			m.sendAppError(client, err)
			return
		}
	}

	client.view.Select(data.OfferID)
}

func (m *Manager) handleSendMessage(ctx context.Context, client *Client, raw json.RawMessage) {
	var data SendMessageData
	if err := json.Unmarshal(raw, &data); err != nil {
		m.sendErrorToClient(client, "Invalid send_message format")
		return
	}

	message, err := client.view.Send(ctx, data.Content)
	if err != nil {
		m.sendAppError(client, err)
		return
	}

	m.sendToClient(client, newWSMessage(MessageTypeMessage, message))
}

func (m *Manager) sendToClient(client *Client, message WSMessage) {
	if message.Timestamp == "" {
		message.Timestamp = time.Now().Format(time.RFC3339)
	}
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("WebSocket: Failed to marshal %s for client %s: %v", message.Type, client.UserID, err)
		return
	}
	if !client.trySend(data) {
		log.Printf("WebSocket: dropped %s for client %s", message.Type, client.UserID)
	}
}

func (m *Manager) sendErrorToClient(client *Client, text string) {
	m.sendToClient(client, newWSMessage(MessageTypeError, ErrorData{Message: text}))
}

func (m *Manager) sendAppError(client *Client, err error) {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		m.sendToClient(client, newWSMessage(MessageTypeError, ErrorData{Code: appErr.Code, Message: appErr.Message}))
		return
	}
	log.Printf("WebSocket: request from %s failed: %v", client.UserID, err)
	m.sendErrorToClient(client, "Request failed")
}
