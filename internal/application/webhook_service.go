package application

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"archie-shopify-app-core/internal/domain"
	"archie-shopify-app-core/internal/ports"

	"github.com/rs/zerolog"
)

// RegisterOptions describes one webhook subscription to reconcile
type RegisterOptions struct {
	Path           string
	Topic          string
	AccessToken    string
	Shop           string
	DeliveryMethod domain.DeliveryMethod
}

// RegisterResult reports the outcome for a topic. Result is nil when the subscription
// already pointed at the right address and nothing was sent.
type RegisterResult struct {
	Success bool
	Result  *WebhookMutationPayload
}

// RegisterReturn maps topics to their registration outcome
type RegisterReturn map[string]RegisterResult

// WebhookService registers webhook subscriptions and dispatches incoming deliveries
// to the handlers of a registry
type WebhookService struct {
	config   domain.AppConfig
	registry *domain.WebhookRegistry
	client   ports.ShopifyClient
	logger   zerolog.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	config domain.AppConfig,
	registry *domain.WebhookRegistry,
	client ports.ShopifyClient,
	logger zerolog.Logger,
) (*WebhookService, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: webhook registry is required", domain.ErrConfiguration)
	}
	return &WebhookService{
		config:   config,
		registry: registry,
		client:   client,
		logger:   logger,
	}, nil
}

// Registry returns the registry the service dispatches to
func (s *WebhookService) Registry() *domain.WebhookRegistry {
	return s.registry
}

func (s *WebhookService) pubSubSupported() bool {
	return domain.VersionCompatible(domain.PubSubMinAPIVersion, s.config.APIVersion)
}

func (s *WebhookService) validateDeliveryMethod(method domain.DeliveryMethod) error {
	switch method {
	case domain.DeliveryHTTP, domain.DeliveryEventBridge:
		return nil
	case domain.DeliveryPubSub:
		if !s.pubSubSupported() {
			return fmt.Errorf("%w: Pub/Sub webhooks are not supported in API version %q", domain.ErrConfiguration, s.config.APIVersion)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown delivery method %q", domain.ErrConfiguration, method)
}

// Register makes sure the shop has a subscription for the topic pointing at the requested
// address. An existing subscription with the same address is left untouched; a different
// one is updated in place.
func (s *WebhookService) Register(ctx context.Context, opts RegisterOptions) (RegisterReturn, error) {
	if opts.DeliveryMethod == "" {
		opts.DeliveryMethod = domain.DeliveryHTTP
	}
	if err := s.validateDeliveryMethod(opts.DeliveryMethod); err != nil {
		return nil, err
	}
	if s.client == nil {
		return nil, fmt.Errorf("%w: shopify client is required to register webhooks", domain.ErrConfiguration)
	}
	if opts.AccessToken == "" && !s.config.IsPrivateApp {
		return nil, fmt.Errorf("%w: access token is required to register webhooks", domain.ErrMissingArgument)
	}

	topic := domain.NormalizeTopic(opts.Topic)
	if !topicPattern.MatchString(topic) {
		return nil, fmt.Errorf("%w: invalid webhook topic %q", domain.ErrMissingArgument, opts.Topic)
	}

	address := opts.Path
	switch opts.DeliveryMethod {
	case domain.DeliveryHTTP:
		address = "https://" + s.config.HostName + opts.Path
	case domain.DeliveryPubSub:
		project, pubSubTopic, err := splitPubSubAddress(opts.Path)
		if err != nil {
			return nil, err
		}
		address = pubSubAddress(project, pubSubTopic)
	}

	logger := s.logger.With().
		Str("shop", opts.Shop).
		Str("topic", topic).
		Str("deliveryMethod", string(opts.DeliveryMethod)).
		Logger()

	checkQuery := buildCheckQuery(topic, s.pubSubSupported())
	if err := checkDocument(checkQuery, "webhookSubscriptions"); err != nil {
		return nil, err
	}

	var check webhookCheckResponse
	if err := s.client.GraphQL(ctx, opts.Shop, opts.AccessToken, checkQuery, nil, &check); err != nil {
		logger.Error().Err(err).Msg("Failed to check webhook subscription")
		return nil, fmt.Errorf("failed to check webhook subscription for %s: %w", topic, err)
	}

	var webhookID string
	if edges := check.WebhookSubscriptions.Edges; len(edges) > 0 {
		node := edges[0].Node
		webhookID = node.ID
		if node.address() == address {
			logger.Info().Msg("Webhook subscription already registered")
			return RegisterReturn{topic: {Success: true}}, nil
		}
	}

	name, mutation, variables, err := buildMutation(topic, address, opts.DeliveryMethod, webhookID)
	if err != nil {
		return nil, err
	}
	if err := checkDocument(mutation, name); err != nil {
		return nil, err
	}

	var resp map[string]*WebhookMutationPayload
	if err := s.client.GraphQL(ctx, opts.Shop, opts.AccessToken, mutation, variables, &resp); err != nil {
		logger.Error().Err(err).Msg("Failed to register webhook subscription")
		return nil, fmt.Errorf("failed to register webhook subscription for %s: %w", topic, err)
	}

	payload := resp[name]
	success := payload != nil && payload.WebhookSubscription != nil
	if success {
		logger.Info().Bool("update", webhookID != "").Msg("Registered webhook subscription")
	} else {
		event := logger.Warn()
		if payload != nil && len(payload.UserErrors) > 0 {
			event = event.Str("userError", payload.UserErrors[0].Message)
		}
		event.Msg("Webhook subscription was not registered")
	}

	return RegisterReturn{topic: {Success: success, Result: payload}}, nil
}

// RegisterAll registers every topic of the registry for a shop, in topic order.
// The first hard failure stops the run and is returned with the results gathered so far.
func (s *WebhookService) RegisterAll(ctx context.Context, shop, accessToken string, method domain.DeliveryMethod) (RegisterReturn, error) {
	results := RegisterReturn{}
	for _, topic := range s.registry.Topics() {
		entry, ok := s.registry.Handler(topic)
		if !ok {
			continue
		}
		ret, err := s.Register(ctx, RegisterOptions{
			Path:           entry.Path,
			Topic:          topic,
			AccessToken:    accessToken,
			Shop:           shop,
			DeliveryMethod: method,
		})
		if err != nil {
			return results, err
		}
		for t, r := range ret {
			results[t] = r
		}
	}
	return results, nil
}

// Process verifies a webhook delivery against the raw body and runs the topic's handler.
// Nothing is dispatched unless the signature matches.
func (s *WebhookService) Process(ctx context.Context, header http.Header, body []byte) error {
	if len(body) == 0 {
		return domain.ErrWebhookEmptyBody
	}

	hmacHeader := header.Get(domain.HeaderHmac)
	topic := header.Get(domain.HeaderTopic)
	shop := header.Get(domain.HeaderDomain)

	var missing []string
	if hmacHeader == "" {
		missing = append(missing, domain.HeaderHmac)
	}
	if topic == "" {
		missing = append(missing, domain.HeaderTopic)
	}
	if shop == "" {
		missing = append(missing, domain.HeaderDomain)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: Missing one or more of the required HTTP headers to process webhooks: [%s]",
			domain.ErrWebhookMissingHeaders, strings.Join(missing, ", "))
	}

	if !hmac.Equal([]byte(WebhookSignature(s.config.APISecretKey, body)), []byte(hmacHeader)) {
		s.logger.Warn().Str("topic", topic).Str("shop", shop).Msg("Webhook signature verification failed")
		return fmt.Errorf("%w: could not validate request for topic %s", domain.ErrWebhookSignature, topic)
	}

	graphqlTopic := domain.NormalizeTopic(topic)
	entry, ok := s.registry.Handler(graphqlTopic)
	if !ok {
		return fmt.Errorf("%w: no webhook is registered for topic %s", domain.ErrWebhookUnregisteredTopic, topic)
	}

	event := &domain.WebhookEvent{
		Topic:   graphqlTopic,
		Shop:    shop,
		Payload: body,
	}
	if err := entry.Handler.Handle(ctx, event); err != nil {
		return fmt.Errorf("webhook handler for %s failed: %w", graphqlTopic, err)
	}

	s.logger.Info().Str("topic", graphqlTopic).Str("shop", shop).Msg("Dispatched webhook")
	return nil
}

// WebhookSignature returns the base64 HMAC-SHA256 of body keyed by secret
func WebhookSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
