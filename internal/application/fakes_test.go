package application

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"archie-shopify-app-core/internal/domain"
	"archie-shopify-app-core/internal/ports"
)

var errBoom = errors.New("boom")

// fakeStorage is an in-memory SessionStorage with per-operation failure switches
type fakeStorage struct {
	mu        sync.Mutex
	sessions  map[string]*domain.Session
	storeErr  error
	loadErr   error
	deleteErr error
	stored    []string
	deleted   []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{sessions: map[string]*domain.Session{}}
}

func (f *fakeStorage) Store(_ context.Context, session *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return f.storeErr
	}
	f.sessions[session.ID] = domain.CloneSession(session, session.ID)
	f.stored = append(f.stored, session.ID)
	return nil
}

func (f *fakeStorage) Load(_ context.Context, id string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	session, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	return domain.CloneSession(session, id), nil
}

func (f *fakeStorage) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.sessions, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStorage) get(id string) *domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id]
}

type graphQLCall struct {
	shop        string
	accessToken string
	query       string
	variables   map[string]interface{}
}

// fakeShopifyClient records calls and answers from canned values
type fakeShopifyClient struct {
	callbackValid bool
	token         *ports.AccessTokenResponse
	exchangeErr   error
	exchanges     []string

	graphQL func(call graphQLCall, resp interface{}) error
	calls   []graphQLCall
}

func newFakeShopifyClient() *fakeShopifyClient {
	return &fakeShopifyClient{
		callbackValid: true,
		token: &ports.AccessTokenResponse{
			AccessToken: "shpat_token",
			Scope:       "write_products,read_orders",
		},
	}
}

func (f *fakeShopifyClient) VerifyCallback(url.Values) bool {
	return f.callbackValid
}

func (f *fakeShopifyClient) ExchangeToken(_ context.Context, shop string, code string) (*ports.AccessTokenResponse, error) {
	f.exchanges = append(f.exchanges, shop+":"+code)
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	token := *f.token
	return &token, nil
}

func (f *fakeShopifyClient) GraphQL(_ context.Context, shop, accessToken, query string, variables map[string]interface{}, resp interface{}) error {
	call := graphQLCall{shop: shop, accessToken: accessToken, query: query, variables: variables}
	f.calls = append(f.calls, call)
	if f.graphQL == nil {
		return errors.New("unexpected graphql call")
	}
	return f.graphQL(call, resp)
}

// fakeDecoder returns fixed claims or an error
type fakeDecoder struct {
	claims *ports.SessionTokenClaims
	err    error
	tokens []string
}

func (f *fakeDecoder) Decode(token string) (*ports.SessionTokenClaims, error) {
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}
