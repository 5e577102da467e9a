package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memrepo "swapmarket/internal/adapter/repository"
	"swapmarket/internal/domain/entity"
	"swapmarket/internal/usecase"
)

type harness struct {
	manager *Manager
	offers  *usecase.OfferUseCase
	chat    *usecase.ChatUseCase
	server  *httptest.Server
	offer   *entity.Offer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := memrepo.NewMemoryStore()
	store.PutUser(&entity.User{ID: "alice", Username: "alice"})
	store.PutUser(&entity.User{ID: "bob", Username: "bob"})
	store.PutProduct(&entity.Product{ID: "a1", UserID: "alice", Title: "Camera", Price: 100, Quantity: 1})
	store.PutProduct(&entity.Product{ID: "b1", UserID: "bob", Title: "Bike", Price: 300, Quantity: 1})

	offerRepo := memrepo.NewMemoryOfferRepository(store)
	messageRepo := memrepo.NewMemoryMessageRepository(store)
	productRepo := memrepo.NewMemoryProductRepository(store)
	userRepo := memrepo.NewMemoryUserRepository(store)

	aggregator := usecase.NewOfferAggregatorUseCase(offerRepo, productRepo, userRepo, usecase.AggregatorConfig{Concurrency: 2, UserCacheSize: 8})

	h := &harness{manager: NewManager(time.Hour)}
	h.chat = usecase.NewChatUseCase(offerRepo, messageRepo, nil, h.manager)
	h.offers = usecase.NewOfferUseCase(offerRepo, productRepo, userRepo, h.manager)
	h.manager.SetSources(aggregator, h.chat)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h.manager.Start(ctx)

	upgrader := gorillaws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.manager.Serve(r.Context(), conn, r.URL.Query().Get("uid"))
	}))
	t.Cleanup(h.server.Close)

	offer, err := h.offers.CreateOffer(context.Background(), "alice", usecase.CreateOfferInput{
		ToUserID:       "bob",
		OfferedItems:   []usecase.OfferItemInput{{ItemID: "a1"}},
		RequestedItems: []usecase.OfferItemInput{{ItemID: "b1"}},
	})
	require.NoError(t, err)
	h.offer = offer

	return h
}

func (h *harness) dial(t *testing.T, userID string) *gorillaws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/?uid=" + userID
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return h.manager.Connected(userID) }, 2*time.Second, 5*time.Millisecond)
	return conn
}

type received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// readUntil skips messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *gorillaws.Conn, messageType string) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg received
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == messageType {
			return msg
		}
	}
}

func send(t *testing.T, conn *gorillaws.Conn, messageType string, data interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": messageType, "data": data}))
}

func TestPingPong(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "alice")

	send(t, conn, MessageTypePing, nil)
	readUntil(t, conn, MessageTypePong)
}

func TestInitialOffersSnapshot(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "alice")

	msg := readUntil(t, conn, MessageTypeOffersSnapshot)

	var snapshot usecase.ViewSnapshot
	require.NoError(t, json.Unmarshal(msg.Data, &snapshot))
	require.Len(t, snapshot.Sent, 1)
	assert.Equal(t, h.offer.ID, snapshot.Sent[0].Offer.ID)
}

func TestSelectOfferAndSendMessage(t *testing.T) {
	h := newHarness(t)
	alice := h.dial(t, "alice")
	bob := h.dial(t, "bob")

	send(t, alice, MessageTypeSelectOffer, SelectOfferData{OfferID: h.offer.ID})
	msg := readUntil(t, alice, MessageTypeConversationSnapshot)
	var snapshot usecase.ViewSnapshot
	require.NoError(t, json.Unmarshal(msg.Data, &snapshot))
	assert.Equal(t, h.offer.ID, snapshot.OfferID)

	send(t, alice, MessageTypeSendMessage, SendMessageData{Content: "still available?"})
	echo := readUntil(t, alice, MessageTypeMessage)
	var mine entity.Message
	require.NoError(t, json.Unmarshal(echo.Data, &mine))
	assert.Equal(t, "still available?", mine.Message)

	pushed := readUntil(t, bob, MessageTypeMessage)
	var theirs entity.Message
	require.NoError(t, json.Unmarshal(pushed.Data, &theirs))
	assert.Equal(t, mine.ID, theirs.ID)
	assert.Equal(t, "bob", theirs.ToUserID)
}

func TestSendWithoutSelectionFails(t *testing.T) {
	h := newHarness(t)
	alice := h.dial(t, "alice")

	send(t, alice, MessageTypeSendMessage, SendMessageData{Content: "hello"})
	msg := readUntil(t, alice, MessageTypeError)

	var data ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "BAD_REQUEST", data.Code)
}

func TestSelectUnknownOffer(t *testing.T) {
	h := newHarness(t)
	alice := h.dial(t, "alice")

	send(t, alice, MessageTypeSelectOffer, SelectOfferData{OfferID: "missing"})
	msg := readUntil(t, alice, MessageTypeError)

	var data ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "NOT_FOUND", data.Code)
}

func TestOfferUpdateReachesBothParties(t *testing.T) {
	h := newHarness(t)
	alice := h.dial(t, "alice")
	bob := h.dial(t, "bob")

	_, err := h.offers.Accept(context.Background(), "bob", h.offer.ID)
	require.NoError(t, err)

	for _, conn := range []*gorillaws.Conn{alice, bob} {
		msg := readUntil(t, conn, MessageTypeOfferUpdate)
		var data OfferUpdateData
		require.NoError(t, json.Unmarshal(msg.Data, &data))
		assert.Equal(t, h.offer.ID, data.OfferID)
		assert.Equal(t, "accepted", data.Status)
		assert.Equal(t, "bob", data.ActorID)
	}
}

func TestUnknownMessageType(t *testing.T) {
	h := newHarness(t)
	alice := h.dial(t, "alice")

	send(t, alice, "dance", nil)
	readUntil(t, alice, MessageTypeError)
}
