package application

import (
	"fmt"
	"regexp"
	"strings"

	"archie-shopify-app-core/internal/domain"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

var topicPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// webhookCheckResponse is the data of the subscription check query
type webhookCheckResponse struct {
	WebhookSubscriptions struct {
		Edges []struct {
			Node webhookSubscriptionNode `json:"node"`
		} `json:"edges"`
	} `json:"webhookSubscriptions"`
}

type webhookSubscriptionNode struct {
	ID       string `json:"id"`
	Endpoint struct {
		Typename      string `json:"__typename"`
		CallbackURL   string `json:"callbackUrl"`
		Arn           string `json:"arn"`
		PubSubProject string `json:"pubSubProject"`
		PubSubTopic   string `json:"pubSubTopic"`
	} `json:"endpoint"`
}

// address returns the node's delivery address in the same form Register builds it
func (n webhookSubscriptionNode) address() string {
	switch n.Endpoint.Typename {
	case "WebhookHttpEndpoint":
		return n.Endpoint.CallbackURL
	case "WebhookEventBridgeEndpoint":
		return n.Endpoint.Arn
	case "WebhookPubSubEndpoint":
		return pubSubAddress(n.Endpoint.PubSubProject, n.Endpoint.PubSubTopic)
	}
	return ""
}

// UserError is a validation error reported by a GraphQL mutation
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// WebhookMutationPayload is the payload of a subscription create or update mutation
type WebhookMutationPayload struct {
	UserErrors          []UserError `json:"userErrors"`
	WebhookSubscription *struct {
		ID string `json:"id"`
	} `json:"webhookSubscription"`
}

func pubSubAddress(project, topic string) string {
	return "pubsub://" + project + ":" + topic
}

// splitPubSubAddress parses "pubsub://project:topic" or "project:topic"
func splitPubSubAddress(address string) (string, string, error) {
	parts := strings.SplitN(strings.TrimPrefix(address, "pubsub://"), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: pub/sub address must be project:topic, got %q", domain.ErrMissingArgument, address)
	}
	return parts[0], parts[1], nil
}

func buildCheckQuery(topic string, pubSubSupported bool) string {
	pubSubFragment := ""
	if pubSubSupported {
		pubSubFragment = `
          ... on WebhookPubSubEndpoint {
            pubSubProject
            pubSubTopic
          }`
	}
	return fmt.Sprintf(`query webhookSubscriptionCheck {
  webhookSubscriptions(first: 1, topics: %s) {
    edges {
      node {
        id
        endpoint {
          __typename
          ... on WebhookHttpEndpoint {
            callbackUrl
          }
          ... on WebhookEventBridgeEndpoint {
            arn
          }%s
        }
      }
    }
  }
}`, topic, pubSubFragment)
}

func mutationName(method domain.DeliveryMethod, update bool) (string, error) {
	var prefix string
	switch method {
	case domain.DeliveryHTTP:
		prefix = "webhookSubscription"
	case domain.DeliveryEventBridge:
		prefix = "eventBridgeWebhookSubscription"
	case domain.DeliveryPubSub:
		prefix = "pubSubWebhookSubscription"
	default:
		return "", fmt.Errorf("%w: unknown delivery method %q", domain.ErrConfiguration, method)
	}
	if update {
		return prefix + "Update", nil
	}
	return prefix + "Create", nil
}

// buildMutation returns the create or update document for a subscription together with its
// variables. Addresses travel as variables; the topic is an enum literal.
func buildMutation(topic, address string, method domain.DeliveryMethod, webhookID string) (string, string, map[string]interface{}, error) {
	name, err := mutationName(method, webhookID != "")
	if err != nil {
		return "", "", nil, err
	}

	variables := map[string]interface{}{}
	var declarations []string
	identifier := "topic: " + topic
	if webhookID != "" {
		declarations = append(declarations, "$id: ID!")
		identifier = "id: $id"
		variables["id"] = webhookID
	}

	var subscription string
	switch method {
	case domain.DeliveryHTTP:
		declarations = append(declarations, "$callbackUrl: URL!")
		subscription = "{callbackUrl: $callbackUrl}"
		variables["callbackUrl"] = address
	case domain.DeliveryEventBridge:
		declarations = append(declarations, "$arn: ARN!")
		subscription = "{arn: $arn}"
		variables["arn"] = address
	case domain.DeliveryPubSub:
		project, pubSubTopic, err := splitPubSubAddress(address)
		if err != nil {
			return "", "", nil, err
		}
		declarations = append(declarations, "$pubSubProject: String!", "$pubSubTopic: String!")
		subscription = "{pubSubProject: $pubSubProject, pubSubTopic: $pubSubTopic}"
		variables["pubSubProject"] = project
		variables["pubSubTopic"] = pubSubTopic
	}

	query := fmt.Sprintf(`mutation webhookSubscription(%s) {
  %s(%s, webhookSubscription: %s) {
    userErrors {
      field
      message
    }
    webhookSubscription {
      id
    }
  }
}`, strings.Join(declarations, ", "), name, identifier, subscription)

	return name, query, variables, nil
}

// checkDocument parses a generated document and makes sure its single operation selects
// the expected root field
func checkDocument(query string, rootField string) error {
	doc, err := parser.ParseQuery(&ast.Source{Name: rootField, Input: query})
	if err != nil {
		return fmt.Errorf("%w: malformed GraphQL document for %s: %v", domain.ErrConfiguration, rootField, err)
	}
	if len(doc.Operations) != 1 || len(doc.Operations[0].SelectionSet) != 1 {
		return fmt.Errorf("%w: GraphQL document for %s must hold one operation with one root field", domain.ErrConfiguration, rootField)
	}
	field, ok := doc.Operations[0].SelectionSet[0].(*ast.Field)
	if !ok || field.Name != rootField {
		return fmt.Errorf("%w: GraphQL document does not select %s", domain.ErrConfiguration, rootField)
	}
	return nil
}
