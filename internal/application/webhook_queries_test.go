package application

import (
	"strings"
	"testing"

	"archie-shopify-app-core/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCheckQueryParses(t *testing.T) {
	for _, pubSub := range []bool{true, false} {
		query := buildCheckQuery("ORDERS_CREATE", pubSub)
		require.NoError(t, checkDocument(query, "webhookSubscriptions"))
		assert.Equal(t, pubSub, strings.Contains(query, "WebhookPubSubEndpoint"))
	}
}

func TestBuildMutation(t *testing.T) {
	tests := []struct {
		name      string
		method    domain.DeliveryMethod
		address   string
		webhookID string
		wantName  string
		wantVars  map[string]interface{}
	}{
		{
			name:     "http create",
			method:   domain.DeliveryHTTP,
			address:  "https://app.example.com/webhooks",
			wantName: "webhookSubscriptionCreate",
			wantVars: map[string]interface{}{"callbackUrl": "https://app.example.com/webhooks"},
		},
		{
			name:      "http update",
			method:    domain.DeliveryHTTP,
			address:   "https://app.example.com/webhooks",
			webhookID: "gid://shopify/WebhookSubscription/1",
			wantName:  "webhookSubscriptionUpdate",
			wantVars: map[string]interface{}{
				"id":          "gid://shopify/WebhookSubscription/1",
				"callbackUrl": "https://app.example.com/webhooks",
			},
		},
		{
			name:     "eventbridge create",
			method:   domain.DeliveryEventBridge,
			address:  "arn:aws:events:us-east-1::event-source/x",
			wantName: "eventBridgeWebhookSubscriptionCreate",
			wantVars: map[string]interface{}{"arn": "arn:aws:events:us-east-1::event-source/x"},
		},
		{
			name:      "pubsub update",
			method:    domain.DeliveryPubSub,
			address:   "pubsub://my-project:my-topic",
			webhookID: "gid://shopify/WebhookSubscription/3",
			wantName:  "pubSubWebhookSubscriptionUpdate",
			wantVars: map[string]interface{}{
				"id":            "gid://shopify/WebhookSubscription/3",
				"pubSubProject": "my-project",
				"pubSubTopic":   "my-topic",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, query, vars, err := buildMutation("ORDERS_CREATE", tt.address, tt.method, tt.webhookID)
			require.NoError(t, err)

			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantVars, vars)
			require.NoError(t, checkDocument(query, name))
			assert.NotContains(t, query, tt.address)
		})
	}
}

func TestBuildMutationUnknownMethod(t *testing.T) {
	_, _, _, err := buildMutation("ORDERS_CREATE", "x", "sqs", "")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSplitPubSubAddress(t *testing.T) {
	project, topic, err := splitPubSubAddress("pubsub://my-project:my-topic")
	require.NoError(t, err)
	assert.Equal(t, "my-project", project)
	assert.Equal(t, "my-topic", topic)

	project, topic, err = splitPubSubAddress("my-project:my-topic")
	require.NoError(t, err)
	assert.Equal(t, "my-project", project)
	assert.Equal(t, "my-topic", topic)

	for _, bad := range []string{"", "my-project", "pubsub://:topic", "project:"} {
		_, _, err := splitPubSubAddress(bad)
		assert.ErrorIs(t, err, domain.ErrMissingArgument, bad)
	}
}

func TestCheckDocument(t *testing.T) {
	assert.NoError(t, checkDocument(`query { shop { id } }`, "shop"))
	assert.ErrorIs(t, checkDocument(`query { shop { id }`, "shop"), domain.ErrConfiguration)
	assert.ErrorIs(t, checkDocument(`query { shop { id } app { id } }`, "shop"), domain.ErrConfiguration)
	assert.ErrorIs(t, checkDocument(`query { app { id } }`, "shop"), domain.ErrConfiguration)
	assert.ErrorIs(t, checkDocument(`query a { shop { id } } query b { shop { id } }`, "shop"), domain.ErrConfiguration)
}
