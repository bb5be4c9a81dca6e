package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutSessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_sessions_created_total",
		Help: "Total number of gateway checkout sessions created",
	})

	CheckoutFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Total number of failed checkout session creations",
	}, []string{"reason"})

	CheckoutMirrorWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_mirror_write_failures_total",
		Help: "Local checkout session mirror writes that failed after a gateway session was created",
	})

	PurchasesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purchases_recorded_total",
		Help: "Total number of purchase rows recorded",
	})

	PurchasesDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purchases_duplicate_total",
		Help: "Purchase recordings resolved as already existing",
	})

	ReconcileFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_failures_total",
		Help: "Total number of failed session reconciliations",
	}, []string{"reason"})

	ReconcileLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reconcile_latency_seconds",
		Help:    "Latency of session reconciliation",
		Buckets: prometheus.DefBuckets,
	})

	EntitlementChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entitlement_checks_total",
		Help: "Total number of entitlement checks",
	}, []string{"result"})

	DiscountValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discount_validations_total",
		Help: "Total number of discount code validations",
	}, []string{"result"})

	EmailsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confirmation_emails_sent_total",
		Help: "Total number of purchase confirmation emails sent",
	})

	EmailsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confirmation_emails_failed_total",
		Help: "Total number of purchase confirmation emails that failed to send",
	})

	NewsletterSignupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsletter_signups_total",
		Help: "Total number of newsletter signups",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
