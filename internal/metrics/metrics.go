package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FactCheckRequests counts check requests by outcome.
	FactCheckRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fact_check_requests_total",
		Help: "Total fact check requests",
	}, []string{"tool", "status"})

	// TokensConsumed counts quota units debited.
	TokensConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tokens_consumed_total",
		Help: "Tokens consumed",
	}, []string{"tool"})

	// FreeTrialUsed counts free trial consumptions.
	FreeTrialUsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "free_trial_used_total",
		Help: "Free trials used",
	}, []string{"tool"})

	// PaymentSuccess counts credited payments.
	PaymentSuccess = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_success_total",
		Help: "Successful payments",
	}, []string{"tool", "product_sku"})

	// PaymentRevenueCents accumulates revenue from credited payments.
	PaymentRevenueCents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_revenue_cents_total",
		Help: "Total revenue in cents",
	}, []string{"tool"})

	// WebhookSkipped counts webhook events acknowledged without side
	// effects. Skipped events are not failures, but they must be visible.
	WebhookSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_skipped_total",
		Help: "Webhook events acknowledged without granting tokens",
	}, []string{"tool", "reason"})
)

// Handler exposes the Prometheus registry on a gin route.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
