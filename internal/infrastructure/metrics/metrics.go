package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// TopicUnverified labels deliveries rejected before their topic could be trusted
const TopicUnverified = "unverified"

// Metrics holds the counters of the OAuth and webhook endpoints
type Metrics struct {
	OAuthBegin          *prometheus.CounterVec
	OAuthCallback       *prometheus.CounterVec
	WebhookReceived     *prometheus.CounterVec
	WebhookRegistration *prometheus.CounterVec
}

// New creates the counters and registers them on reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		OAuthBegin: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopify_oauth_begin_total",
			Help: "OAuth flows started, by result.",
		}, []string{"result"}),
		OAuthCallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopify_oauth_callback_total",
			Help: "OAuth callbacks handled, by result.",
		}, []string{"result"}),
		WebhookReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopify_webhook_received_total",
			Help: "Webhook deliveries received, by topic and result.",
		}, []string{"topic", "result"}),
		WebhookRegistration: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopify_webhook_registration_total",
			Help: "Webhook subscription registrations, by topic and result.",
		}, []string{"topic", "result"}),
	}

	for _, c := range []prometheus.Collector{m.OAuthBegin, m.OAuthCallback, m.WebhookReceived, m.WebhookRegistration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Result maps an error to a result label
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
