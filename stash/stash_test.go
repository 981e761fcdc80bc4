package stash

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zkstash "github.com/zkstash/zkstash-go"
	"github.com/zkstash/zkstash-go/settlement"
	"github.com/zkstash/zkstash-go/types"
	"github.com/zkstash/zkstash-go/wallet"
)

const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type noopSettler struct{}

func (noopSettler) Settle(ctx context.Context, option *types.PaymentOption) (*settlement.Receipt, error) {
	return &settlement.Receipt{TxRef: "0x0", Network: types.NetworkBaseSepolia}, nil
}

func newTestAPI(t *testing.T, handler http.HandlerFunc) *API {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	w, err := wallet.NewEVMWallet(testPrivateKey)
	require.NoError(t, err)

	client, err := zkstash.New(srv.URL, w,
		zkstash.WithHTTPClient(srv.Client()),
		zkstash.WithSettlement(noopSettler{}),
	)
	require.NoError(t, err)
	return NewAPI(client)
}

func TestCreateMemories(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/memories", r.URL.Path)
		fmt.Fprint(w, `{"success":true,"created":[{"id":"m1","kind":"preference"}],"updated":[]}`)
	})

	res, err := api.CreateMemories(context.Background(), &CreateMemoriesRequest{
		AgentID: "travel-agent",
		Conversation: []ConversationMessage{
			{Role: "user", Content: "I prefer window seats."},
		},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, res.Created, 1)
	assert.Equal(t, "m1", res.Created[0].ID)
}

func TestCreateMemories_Validation(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	// Missing agent.
	_, err := api.CreateMemories(context.Background(), &CreateMemoriesRequest{
		Conversation: []ConversationMessage{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrConfig, types.CodeOf(err))

	// Neither conversation nor memories.
	_, err = api.CreateMemories(context.Background(), &CreateMemoriesRequest{AgentID: "a"})
	require.Error(t, err)
	assert.Equal(t, types.ErrConfig, types.CodeOf(err))

	// Bad role.
	_, err = api.CreateMemories(context.Background(), &CreateMemoriesRequest{
		AgentID:      "a",
		Conversation: []ConversationMessage{{Role: "operator", Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrConfig, types.CodeOf(err))
}

func TestSearchMemories(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/memories/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "dietary restrictions", q.Get("query"))
		assert.Equal(t, "travel-agent", q.Get("agentId"))
		assert.Equal(t, "5", q.Get("limit"))
		assert.Empty(t, q.Get("threadId"))
		fmt.Fprint(w, `{"success":true,"memories":[{"id":"m1","kind":"preference"}],"searchedAt":"2026-01-01T00:00:00Z"}`)
	})

	res, err := api.SearchMemories(context.Background(), &SearchMemoriesRequest{
		Query:   "dietary restrictions",
		AgentID: "travel-agent",
		Limit:   5,
	})
	require.NoError(t, err)
	require.Len(t, res.Memories, 1)
	assert.Equal(t, "preference", res.Memories[0].Kind)
}

func TestSearchMemories_RequiresQuery(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := api.SearchMemories(context.Background(), &SearchMemoriesRequest{AgentID: "a"})
	require.Error(t, err)
	assert.Equal(t, types.ErrConfig, types.CodeOf(err))
}

func TestGetMemories(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/memories", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "travel-agent", q.Get("agentId"))
		assert.Equal(t, "user-42", q.Get("subjectId"))
		fmt.Fprint(w, `{"success":true,"memories":[]}`)
	})

	res, err := api.GetMemories(context.Background(), "travel-agent", "user-42")
	require.NoError(t, err)
	assert.True(t, res.Success)

	_, err = api.GetMemories(context.Background(), "", "")
	require.Error(t, err)
	assert.Equal(t, types.ErrConfig, types.CodeOf(err))
}
