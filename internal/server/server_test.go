package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"fraudscore/internal/artifacts"
	"fraudscore/internal/cache"
	"fraudscore/internal/domain"
	"fraudscore/internal/mq"
	mqmemory "fraudscore/internal/mq/memory"
	"fraudscore/internal/scoring"
	"fraudscore/internal/server"
	"fraudscore/internal/service"
	"fraudscore/internal/storage/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *server.Hub) {
	t.Helper()

	broker := mqmemory.NewBroker()
	t.Cleanup(broker.Close)

	scorer, err := scoring.NewScorer(artifacts.NewTestBundle(), cache.NewMemory(), nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	worker := mq.NewWorker(mqmemory.NewWorkerTransport(broker), scoring.NewHandler(scorer), 2, nil)
	go func() { _ = worker.Run(ctx) }()

	client := mq.NewClient(mqmemory.NewClientTransport(broker), nil)
	t.Cleanup(func() { _ = client.Close() })

	hub := server.NewHub(nil)
	svc := service.NewTransactionService(
		memory.NewUserStore(), memory.NewMerchantStore(), memory.NewTransactionStore(),
		client, hub, 5*time.Second, nil,
	)

	ts := httptest.NewServer(server.New(svc, hub, nil).Routes())
	t.Cleanup(ts.Close)
	return ts, hub
}

func postTransaction(t *testing.T, ts *httptest.Server, in *domain.TransactionInput) *http.Response {
	t.Helper()
	body, err := json.Marshal(in)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/api/v1/transactions", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func sampleInput(transNum string) *domain.TransactionInput {
	return &domain.TransactionInput{
		TransDateTransTime: "2024-03-15 14:30:00",
		CCNum:              artifacts.FixtureKnownEntity,
		Merchant:           "fraud_Kirlin and Sons",
		Category:           "grocery_pos",
		Amt:                42.5,
		First:              "Ann",
		Last:               "Doe",
		Gender:             "F",
		Street:             "1 Main St",
		City:               "Albany",
		State:              "NY",
		Zip:                12203,
		Lat:                42.65,
		Long:               -73.75,
		CityPop:            98000,
		Job:                "Engineer",
		DOB:                "1985-06-15",
		TransNum:           transNum,
		UnixTime:           1710512400,
		MerchLat:           42.7,
		MerchLong:          -73.8,
	}
}

func TestPostTransactionReturnsScoredRow(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postTransaction(t, ts, sampleInput("tx-api-1"))
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out server.TransactionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "tx-api-1", out.TransNum)
	require.NotNil(t, out.FraudProb)
	require.GreaterOrEqual(t, *out.FraudProb, 0.0)
	require.LessOrEqual(t, *out.FraudProb, 1.0)
}

func TestGetTransaction(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postTransaction(t, ts, sampleInput("tx-api-2"))
	var created server.TransactionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	got, err := http.Get(ts.URL + "/api/v1/transactions/" + strconv.FormatInt(created.ID, 10))
	require.NoError(t, err)
	defer got.Body.Close()
	require.Equal(t, http.StatusOK, got.StatusCode)

	var out server.TransactionResponse
	require.NoError(t, json.NewDecoder(got.Body).Decode(&out))
	require.Equal(t, created.ID, out.ID)
	require.Equal(t, "tx-api-2", out.TransNum)
}

func TestGetUnknownTransactionIs404(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/transactions/999999")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPostDuplicateIs409(t *testing.T) {
	ts, _ := newTestServer(t)

	first := postTransaction(t, ts, sampleInput("tx-api-dup"))
	first.Body.Close()
	require.Equal(t, http.StatusCreated, first.StatusCode)

	second := postTransaction(t, ts, sampleInput("tx-api-dup"))
	defer second.Body.Close()
	require.Equal(t, http.StatusConflict, second.StatusCode)
}

func TestPostInvalidInputIs400(t *testing.T) {
	ts, _ := newTestServer(t)

	in := sampleInput("tx-api-bad")
	in.CCNum = ""
	resp := postTransaction(t, ts, in)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebsocketFeedReceivesScores(t *testing.T) {
	ts, hub := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/scores"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	resp := postTransaction(t, ts, sampleInput("tx-api-ws"))
	resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var update server.ScoreUpdate
	require.NoError(t, json.Unmarshal(payload, &update))
	require.Equal(t, "tx-api-ws", update.TransNum)
	require.GreaterOrEqual(t, update.FraudProb, 0.0)
	require.LessOrEqual(t, update.FraudProb, 1.0)
}
