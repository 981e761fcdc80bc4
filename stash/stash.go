// Package stash exposes the memory API as typed operations on top of the
// payment-aware client.
package stash

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"

	zkstash "github.com/zkstash/zkstash-go"
	"github.com/zkstash/zkstash-go/types"
)

var validate = validator.New()

// API wraps a payment-aware client and speaks the memory endpoints.
type API struct {
	client *zkstash.Client
}

// NewAPI returns an API backed by the given client.
func NewAPI(client *zkstash.Client) *API {
	return &API{client: client}
}

// Client returns the underlying payment-aware client.
func (a *API) Client() *zkstash.Client {
	return a.client
}

// CreateMemories submits a conversation for extraction or writes memories
// directly. One of Conversation or Memories must be non-empty.
func (a *API) CreateMemories(ctx context.Context, req *CreateMemoriesRequest) (*CreateMemoriesResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, types.NewError(types.ErrConfig, "invalid create request: "+err.Error())
	}
	if len(req.Conversation) == 0 && len(req.Memories) == 0 {
		return nil, types.NewError(types.ErrConfig, "either conversation or memories must be provided")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, types.NewError(types.ErrConfig, "marshal create request: "+err.Error())
	}

	res, err := a.client.Post(ctx, "/memories", body)
	if err != nil {
		return nil, err
	}

	var out CreateMemoriesResponse
	if err := json.Unmarshal(res.Body, &out); err != nil {
		return nil, types.NewError(types.ErrServerError, "decode create response: "+err.Error())
	}
	return &out, nil
}

// SearchMemories runs a ranked search over stored memories.
func (a *API) SearchMemories(ctx context.Context, req *SearchMemoriesRequest) (*SearchMemoriesResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, types.NewError(types.ErrConfig, "invalid search request: "+err.Error())
	}

	q := url.Values{}
	q.Set("query", req.Query)
	if req.AgentID != "" {
		q.Set("agentId", req.AgentID)
	}
	if req.SubjectID != "" {
		q.Set("subjectId", req.SubjectID)
	}
	if req.ThreadID != "" {
		q.Set("threadId", req.ThreadID)
	}
	if req.Kind != "" {
		q.Set("kind", req.Kind)
	}
	if req.Tags != "" {
		q.Set("tags", req.Tags)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Mode != "" {
		q.Set("mode", req.Mode)
	}
	if req.Scope != "" {
		q.Set("scope", req.Scope)
	}

	res, err := a.client.Get(ctx, "/memories/search?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var out SearchMemoriesResponse
	if err := json.Unmarshal(res.Body, &out); err != nil {
		return nil, types.NewError(types.ErrServerError, "decode search response: "+err.Error())
	}
	return &out, nil
}

// GetMemories lists memories for an agent, optionally scoped to a subject.
func (a *API) GetMemories(ctx context.Context, agentID, subjectID string) (*ListMemoriesResponse, error) {
	if agentID == "" {
		return nil, types.NewError(types.ErrConfig, "agentId is required")
	}

	q := url.Values{}
	q.Set("agentId", agentID)
	if subjectID != "" {
		q.Set("subjectId", subjectID)
	}

	res, err := a.client.Get(ctx, "/memories?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var out ListMemoriesResponse
	if err := json.Unmarshal(res.Body, &out); err != nil {
		return nil, types.NewError(types.ErrServerError, "decode list response: "+err.Error())
	}
	return &out, nil
}
