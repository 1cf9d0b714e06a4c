package billing

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrymomot/familykit/pkg/subscription"
)

const metricsNamespace = "familykit"

// Metrics holds the billing collectors.
type Metrics struct {
	processorCalls    *prometheus.CounterVec
	processorDuration *prometheus.HistogramVec
	decisions         *prometheus.CounterVec
	webhooks          *prometheus.CounterVec
}

// NewMetrics registers the billing collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		processorCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "processor",
			Name:      "calls_total",
			Help:      "Payment processor calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		processorDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "processor",
			Name:      "call_duration_seconds",
			Help:      "Payment processor call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "entitlements",
			Name:      "decisions_total",
			Help:      "Entitlement decisions by action and result.",
		}, []string{"action", "allowed", "reason"}),
		webhooks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "webhooks",
			Name:      "received_total",
			Help:      "Processor webhooks by outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveDecision counts an entitlement decision.
func (m *Metrics) ObserveDecision(d subscription.Decision) {
	m.decisions.WithLabelValues(string(d.Action), strconv.FormatBool(d.Allowed), string(d.Reason)).Inc()
}

func (m *Metrics) observeWebhook(err error) {
	outcome := "applied"
	switch {
	case err == nil:
	case errors.Is(err, subscription.ErrInvalidEvent):
		outcome = "rejected"
	default:
		outcome = "failed"
	}
	m.webhooks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeCall(op string, start time.Time, err error) {
	m.processorDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	m.processorCalls.WithLabelValues(op, callOutcome(err)).Inc()
}

func callOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "unknown"
	default:
		return "error"
	}
}

// instrumentedProcessor records latency and outcome of every processor call.
type instrumentedProcessor struct {
	next    subscription.Processor
	metrics *Metrics
}

// InstrumentProcessor wraps p with call metrics.
func InstrumentProcessor(p subscription.Processor, m *Metrics) subscription.Processor {
	if m == nil {
		return p
	}
	return &instrumentedProcessor{next: p, metrics: m}
}

func (p *instrumentedProcessor) CreateCheckout(ctx context.Context, req subscription.CheckoutRequest) (*subscription.CheckoutSession, error) {
	start := time.Now()
	s, err := p.next.CreateCheckout(ctx, req)
	p.metrics.observeCall("create_checkout", start, err)
	return s, err
}

func (p *instrumentedProcessor) SetCancelAtPeriodEnd(ctx context.Context, providerSubID string, cancel bool) (*subscription.RemoteSubscription, error) {
	start := time.Now()
	r, err := p.next.SetCancelAtPeriodEnd(ctx, providerSubID, cancel)
	p.metrics.observeCall("set_cancel_at_period_end", start, err)
	return r, err
}

func (p *instrumentedProcessor) GetSubscription(ctx context.Context, providerSubID string) (*subscription.RemoteSubscription, error) {
	start := time.Now()
	r, err := p.next.GetSubscription(ctx, providerSubID)
	p.metrics.observeCall("get_subscription", start, err)
	return r, err
}

func (p *instrumentedProcessor) ListInvoices(ctx context.Context, providerSubID string, limit int) ([]subscription.Payment, error) {
	start := time.Now()
	r, err := p.next.ListInvoices(ctx, providerSubID, limit)
	p.metrics.observeCall("list_invoices", start, err)
	return r, err
}

// ParseWebhook is local signature verification, so it is not timed.
func (p *instrumentedProcessor) ParseWebhook(ctx context.Context, payload []byte, signature string) (*subscription.ProcessorEvent, error) {
	return p.next.ParseWebhook(ctx, payload, signature)
}
