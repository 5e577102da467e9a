package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapmarket/internal/domain/entity"
)

func TestChatHandlers(t *testing.T) {
	env := newTestEnv(t)
	offer := env.createOffer(t)

	code, out := env.call(t, env.chat.SendMessage, http.MethodPost, `{"content":"  is the bike still around?  "}`, "alice", "id", offer.ID)
	require.Equal(t, http.StatusCreated, code)
	var msg entity.Message
	require.NoError(t, json.Unmarshal(out.Data, &msg))
	assert.Equal(t, "bob", msg.ToUserID)
	assert.Equal(t, "is the bike still around?", msg.Message)

	code, out = env.call(t, env.chat.SendMessage, http.MethodPost, `{"content":"   "}`, "alice", "id", offer.ID)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "BAD_REQUEST", out.Error.Code)

	code, _ = env.call(t, env.chat.GetMessages, http.MethodGet, "", "carol", "id", offer.ID)
	assert.Equal(t, http.StatusForbidden, code)

	code, out = env.call(t, env.chat.GetMessages, http.MethodGet, "", "bob", "id", offer.ID)
	require.Equal(t, http.StatusOK, code)
	var messages []*entity.Message
	require.NoError(t, json.Unmarshal(out.Data, &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, msg.ID, messages[0].ID)
}

func TestListAllMessagesHandler(t *testing.T) {
	env := newTestEnv(t)
	offer := env.createOffer(t)

	for _, text := range []string{"one", "two", "three"} {
		code, _ := env.call(t, env.chat.SendMessage, http.MethodPost, `{"content":"`+text+`"}`, "bob", "id", offer.ID)
		require.Equal(t, http.StatusCreated, code)
	}

	code, out := env.call(t, env.chat.ListAllMessages, http.MethodGet, "", "admin")
	require.Equal(t, http.StatusOK, code)

	var page struct {
		Items []*entity.Message `json:"items"`
		Total int64             `json:"total"`
		Page  int               `json:"page"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &page))
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 1, page.Page)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "three", page.Items[0].Message)
}
