package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"swapmarket/internal/domain/entity"
	"swapmarket/pkg/errors"
)

type fakeOfferSource struct {
	mu      sync.Mutex
	fail    bool
	sent    []*OfferSummary
	fetched map[string]int
}

func newFakeOfferSource() *fakeOfferSource {
	return &fakeOfferSource{fetched: make(map[string]int)}
}

func (s *fakeOfferSource) ListSent(ctx context.Context, userID string) ([]*OfferSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched["sent"]++
	if s.fail {
		return nil, errors.Internal("offline", nil)
	}
	return s.sent, nil
}

func (s *fakeOfferSource) ListReceived(ctx context.Context, userID string) ([]*OfferSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errors.Internal("offline", nil)
	}
	return []*OfferSummary{}, nil
}

func (s *fakeOfferSource) GetOffer(ctx context.Context, userID, offerID string) (*OfferSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched[offerID]++
	if s.fail {
		return nil, errors.Internal("offline", nil)
	}
	return &OfferSummary{Offer: &entity.Offer{ID: offerID, Status: entity.OfferPending}}, nil
}

func (s *fakeOfferSource) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *fakeOfferSource) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetched[key]
}

type mockConversationSource struct {
	mock.Mock
}

func (m *mockConversationSource) GetMessages(ctx context.Context, userID, offerID string) ([]*entity.Message, error) {
	args := m.Called(ctx, userID, offerID)
	messages, _ := args.Get(0).([]*entity.Message)
	return messages, args.Error(1)
}

func (m *mockConversationSource) SendMessage(ctx context.Context, userID, offerID, text string) (*entity.Message, error) {
	args := m.Called(ctx, userID, offerID, text)
	message, _ := args.Get(0).(*entity.Message)
	return message, args.Error(1)
}

func TestOfferViewRepeatedPollsKeepSameMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := f.oneForOne(t)
	chat := f.chat()
	_, err := chat.SendMessage(ctx, "alice", offer.ID, "hi")
	require.NoError(t, err)
	_, err = chat.SendMessage(ctx, "bob", offer.ID, "hello")
	require.NoError(t, err)

	view := NewOfferView("alice", f.aggregator(nil), chat, time.Hour, nil)
	view.Select(offer.ID)

	require.NoError(t, view.RefreshConversation(ctx))
	_, first := view.Conversation()
	require.NoError(t, view.RefreshConversation(ctx))
	_, second := view.Conversation()

	assert.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestOfferViewEmptySendDoesNothing(t *testing.T) {
	chat := &mockConversationSource{}
	view := NewOfferView("alice", newFakeOfferSource(), chat, time.Hour, nil)
	view.Select("offer-1")

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := view.Send(context.Background(), text)
		assert.Equal(t, ErrEmptyMessage, err)
	}

	_, messages := view.Conversation()
	assert.Empty(t, messages)
	chat.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOfferViewSendWithoutSelection(t *testing.T) {
	view := NewOfferView("alice", newFakeOfferSource(), &mockConversationSource{}, time.Hour, nil)

	_, err := view.Send(context.Background(), "hello")
	assert.Equal(t, ErrNoConversation, err)
}

func TestOfferViewSendAppendsUntilNextPoll(t *testing.T) {
	ctx := context.Background()
	sent := &entity.Message{ID: "m2", OfferID: "offer-1", Message: "deal?"}
	chat := &mockConversationSource{}
	chat.On("SendMessage", mock.Anything, "alice", "offer-1", "deal?").Return(sent, nil)
	chat.On("GetMessages", mock.Anything, "alice", "offer-1").Return([]*entity.Message{{ID: "m1", Message: "hi"}}, nil)

	view := NewOfferView("alice", newFakeOfferSource(), chat, time.Hour, nil)
	view.Select("offer-1")
	require.NoError(t, view.RefreshConversation(ctx))

	_, err := view.Send(ctx, "  deal?  ")
	require.NoError(t, err)

	_, messages := view.Conversation()
	require.Len(t, messages, 2)
	assert.Equal(t, "m2", messages[1].ID)

	// the server list supersedes the local append
	require.NoError(t, view.RefreshConversation(ctx))
	_, messages = view.Conversation()
	require.Len(t, messages, 1)
	assert.Equal(t, "m1", messages[0].ID)
}

func TestOfferViewFailedPollKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	source := newFakeOfferSource()
	source.sent = []*OfferSummary{{Offer: &entity.Offer{ID: "o1"}}}
	view := NewOfferView("alice", source, &mockConversationSource{}, time.Hour, nil)

	require.NoError(t, view.RefreshOffers(ctx))
	sent, _ := view.Offers()
	require.Len(t, sent, 1)

	source.setFail(true)
	assert.Error(t, view.RefreshOffers(ctx))

	sent, received := view.Offers()
	assert.Len(t, sent, 1)
	assert.Empty(t, received)
}

func TestOfferViewEmitsSnapshots(t *testing.T) {
	source := newFakeOfferSource()
	chat := &mockConversationSource{}
	chat.On("GetMessages", mock.Anything, "alice", "o1").Return([]*entity.Message{}, nil)

	snapshots := make(chan ViewSnapshot, 16)
	view := NewOfferView("alice", source, chat, time.Hour, func(s ViewSnapshot) {
		select {
		case snapshots <- s:
		default:
		}
	})
	view.Start(context.Background())
	defer view.Close()

	view.Select("o1")

	kinds := map[SnapshotKind]bool{}
	deadline := time.After(2 * time.Second)
	for len(kinds) < 2 {
		select {
		case s := <-snapshots:
			kinds[s.Kind] = true
			if s.Kind == ConversationSnapshot {
				assert.Equal(t, "o1", s.OfferID)
			}
		case <-deadline:
			t.Fatalf("got snapshots %v", kinds)
		}
	}
}

func TestOfferViewSelectStopsPreviousConversation(t *testing.T) {
	source := newFakeOfferSource()
	chat := &mockConversationSource{}
	chat.On("GetMessages", mock.Anything, "alice", mock.Anything).Return([]*entity.Message{}, nil)

	view := NewOfferView("alice", source, chat, time.Millisecond, nil)
	view.Start(context.Background())
	defer view.Close()

	view.Select("o1")
	require.Eventually(t, func() bool { return source.count("o1") >= 2 }, 2*time.Second, time.Millisecond)

	view.Select("o2")
	stopped := source.count("o1")
	require.Eventually(t, func() bool { return source.count("o2") >= 2 }, 2*time.Second, time.Millisecond)

	assert.Equal(t, stopped, source.count("o1"))
	selected, _ := view.Conversation()
	assert.Equal(t, "o2", selected)
}

func TestOfferViewCloseStopsPolling(t *testing.T) {
	source := newFakeOfferSource()
	chat := &mockConversationSource{}
	chat.On("GetMessages", mock.Anything, "alice", "o1").Return([]*entity.Message{}, nil)

	view := NewOfferView("alice", source, chat, time.Millisecond, nil)
	view.Start(context.Background())
	view.Select("o1")
	require.Eventually(t, func() bool { return source.count("o1") >= 1 && source.count("sent") >= 1 }, 2*time.Second, time.Millisecond)

	view.Close()
	lists, conv := source.count("sent"), source.count("o1")
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, lists, source.count("sent"))
	assert.Equal(t, conv, source.count("o1"))

	// no-ops once closed
	view.Select("o2")
	view.Close()
	assert.Zero(t, source.count("o2"))
}
