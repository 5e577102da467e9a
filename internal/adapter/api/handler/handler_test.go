package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"swapmarket/internal/adapter/api"
	memrepo "swapmarket/internal/adapter/repository"
	"swapmarket/internal/domain/entity"
	"swapmarket/internal/domain/repository"
	"swapmarket/internal/infrastructure/ratelimit"
	"swapmarket/internal/usecase"
)

type testEnv struct {
	e          *echo.Echo
	offerRepo  repository.OfferRepository
	offers     *OfferHandler
	chat       *ChatHandler
	reviews    *ReviewHandler
	offerCases *usecase.OfferUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memrepo.NewMemoryStore()
	store.PutUser(&entity.User{ID: "alice", FirstName: "Alice", Username: "alice"})
	store.PutUser(&entity.User{ID: "bob", FirstName: "Bob", Username: "bob"})
	store.PutUser(&entity.User{ID: "carol", FirstName: "Carol", Username: "carol"})
	store.PutProduct(&entity.Product{ID: "a1", UserID: "alice", Title: "Camera", Price: 100, Quantity: 1})
	store.PutProduct(&entity.Product{ID: "a2", UserID: "alice", Title: "Lens", Price: 50, Quantity: 2})
	store.PutProduct(&entity.Product{ID: "b1", UserID: "bob", Title: "Bike", Price: 300, Quantity: 1})

	offerRepo := memrepo.NewMemoryOfferRepository(store)
	productRepo := memrepo.NewMemoryProductRepository(store)
	userRepo := memrepo.NewMemoryUserRepository(store)
	messageRepo := memrepo.NewMemoryMessageRepository(store)
	reviewRepo := memrepo.NewMemoryReviewRepository(store)

	offerUseCase := usecase.NewOfferUseCase(offerRepo, productRepo, userRepo, nil)
	aggregator := usecase.NewOfferAggregatorUseCase(offerRepo, productRepo, userRepo, usecase.AggregatorConfig{Concurrency: 2, UserCacheSize: 8})

	e := echo.New()
	e.Validator = api.NewValidator()

	return &testEnv{
		e:          e,
		offerRepo:  offerRepo,
		offers:     NewOfferHandler(offerUseCase, aggregator),
		chat:       NewChatHandler(usecase.NewChatUseCase(offerRepo, messageRepo, ratelimit.NewRateLimiter(), nil)),
		reviews:    NewReviewHandler(usecase.NewReviewUseCase(reviewRepo, offerRepo, userRepo, aggregator)),
		offerCases: offerUseCase,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Count   *int64          `json:"count"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// call runs h with uid in the context. params alternates names and values.
func (env *testEnv) call(t *testing.T, h echo.HandlerFunc, method, body, uid string, params ...string) (int, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	if uid != "" {
		c.Set("uid", uid)
	}

	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)

	require.NoError(t, h(c))

	var out envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func (env *testEnv) createOffer(t *testing.T) *entity.Offer {
	t.Helper()
	code, out := env.call(t, env.offers.CreateOffer, http.MethodPost,
		`{"to_user_id":"bob","items":[{"item_id":"b1"}],"my_items":[{"item_id":"a1"},{"item_id":"a2","quantity":2}]}`, "alice")
	require.Equal(t, http.StatusCreated, code)

	var offer entity.Offer
	require.NoError(t, json.Unmarshal(out.Data, &offer))
	return &offer
}
