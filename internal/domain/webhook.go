package domain

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Webhook request headers
const (
	HeaderHmac   = "X-Shopify-Hmac-Sha256"
	HeaderTopic  = "X-Shopify-Topic"
	HeaderDomain = "X-Shopify-Shop-Domain"
)

// DeliveryMethod selects where Shopify delivers a webhook subscription
type DeliveryMethod string

const (
	DeliveryHTTP        DeliveryMethod = "http"
	DeliveryEventBridge DeliveryMethod = "eventbridge"
	DeliveryPubSub      DeliveryMethod = "pubsub"
)

// WebhookEvent is a verified webhook delivery
type WebhookEvent struct {
	Topic   string // normalised, e.g. ORDERS_CREATE
	Shop    string
	Payload []byte
}

// WebhookHandler processes verified webhook events
type WebhookHandler interface {
	Handle(ctx context.Context, event *WebhookEvent) error
}

// WebhookHandlerFunc adapts a function to WebhookHandler
type WebhookHandlerFunc func(ctx context.Context, event *WebhookEvent) error

// Handle calls f(ctx, event)
func (f WebhookHandlerFunc) Handle(ctx context.Context, event *WebhookEvent) error {
	return f(ctx, event)
}

// WebhookRegistryEntry binds a delivery path to the handler of a topic
type WebhookRegistryEntry struct {
	Path    string
	Handler WebhookHandler
}

// NormalizeTopic converts a header topic ("orders/create") to its registry key ("ORDERS_CREATE")
func NormalizeTopic(topic string) string {
	return strings.ReplaceAll(strings.ToUpper(topic), "/", "_")
}

// WebhookRegistry maps topics to handlers. It is built at startup and read concurrently
// while webhooks are dispatched.
type WebhookRegistry struct {
	mu      sync.RWMutex
	entries map[string]WebhookRegistryEntry
}

// NewWebhookRegistry creates an empty registry
func NewWebhookRegistry() *WebhookRegistry {
	return &WebhookRegistry{
		entries: make(map[string]WebhookRegistryEntry),
	}
}

// AddHandler sets the entry for topic, replacing any previous one
func (r *WebhookRegistry) AddHandler(topic string, entry WebhookRegistryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[NormalizeTopic(topic)] = entry
}

// AddHandlers sets several entries at once
func (r *WebhookRegistry) AddHandlers(entries map[string]WebhookRegistryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for topic, entry := range entries {
		r.entries[NormalizeTopic(topic)] = entry
	}
}

// Handler returns the entry registered for topic
func (r *WebhookRegistry) Handler(topic string) (WebhookRegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[NormalizeTopic(topic)]
	return entry, ok
}

// Topics returns all registered topics, sorted
func (r *WebhookRegistry) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	topics := make([]string, 0, len(r.entries))
	for topic := range r.entries {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// IsWebhookPath reports whether any entry is delivered to path
func (r *WebhookRegistry) IsWebhookPath(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.entries {
		if entry.Path == path {
			return true
		}
	}
	return false
}
