package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersPlacedTotal counts order placement attempts by result.
	OrdersPlacedTotal *prometheus.CounterVec
	// OrderValue records the charged total of placed orders.
	OrderValue prometheus.Observer
	// RewardPointsTotal sums reward points moved through the ledger by reason.
	RewardPointsTotal *prometheus.CounterVec
	// CouponApplicationsTotal counts coupon evaluations by result.
	CouponApplicationsTotal *prometheus.CounterVec
	// CacheLookupsTotal counts cache reads by cache name and hit/miss.
	CacheLookupsTotal *prometheus.CounterVec
	// RateLimitRejectionsTotal counts requests refused by a limiter.
	RateLimitRejectionsTotal *prometheus.CounterVec
	// EmailTasksTotal counts email tasks by type and processing outcome.
	EmailTasksTotal *prometheus.CounterVec
	// EventsPublishedTotal counts domain event fan-out by topic, notifier and result.
	EventsPublishedTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers storefront Prometheus collectors.
// Only the first call has an effect.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersPlacedTotal = registerCounterVec(reg, prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Count of order placement attempts by result.",
		}, "result")
		OrderValue = registerHistogramVec(reg, prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_value",
			Help:      "Distribution of charged order totals.",
			Buckets:   []float64{100, 250, 500, 750, 1000, 1500, 2500, 5000},
		}).WithLabelValues()
		RewardPointsTotal = registerCounterVec(reg, prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reward_points_total",
			Help:      "Reward points credited or debited by reason.",
		}, "reason")
		CouponApplicationsTotal = registerCounterVec(reg, prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_applications_total",
			Help:      "Coupon evaluations by result.",
		}, "result")
		CacheLookupsTotal = registerCounterVec(reg, prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache and result.",
		}, "cache", "result")
		RateLimitRejectionsTotal = registerCounterVec(reg, prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by a rate limiter.",
		}, "limiter")
		EmailTasksTotal = registerCounterVec(reg, prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_tasks_total",
			Help:      "Email tasks by type and outcome.",
		}, "type", "result")
		EventsPublishedTotal = registerCounterVec(reg, prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain event notifications by topic, notifier and result.",
		}, "topic", "notifier", "result")
	})
}

// The helpers below are no-ops until MustRegisterDomainMetrics has run, so
// packages can record unconditionally in tests.

func incCounter(vec *prometheus.CounterVec, labels ...string) {
	if vec != nil {
		vec.WithLabelValues(labels...).Inc()
	}
}

// RecordOrderPlaced records an order placement outcome and, on success, its total.
func RecordOrderPlaced(result string, total float64) {
	incCounter(OrdersPlacedTotal, result)
	if result == "success" && OrderValue != nil {
		OrderValue.Observe(total)
	}
}

// RecordRewardPoints adds |points| to the reward ledger counter for reason.
func RecordRewardPoints(reason string, points int) {
	if RewardPointsTotal == nil || points == 0 {
		return
	}
	if points < 0 {
		points = -points
	}
	RewardPointsTotal.WithLabelValues(reason).Add(float64(points))
}

// RecordCouponApplication records whether a coupon was applied or why it was not.
func RecordCouponApplication(result string) {
	incCounter(CouponApplicationsTotal, result)
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	incCounter(CacheLookupsTotal, cache, result)
}

// RecordRateLimitRejection records a request refused by limiter.
func RecordRateLimitRejection(limiter string) {
	incCounter(RateLimitRejectionsTotal, limiter)
}

// RecordEmailTask records the outcome of an email task.
func RecordEmailTask(taskType, result string) {
	incCounter(EmailTasksTotal, taskType, result)
}

// RecordEventPublished records a notifier outcome for a domain event.
func RecordEventPublished(topic, notifier string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	incCounter(EventsPublishedTotal, topic, notifier, result)
}
