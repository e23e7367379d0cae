// Package metrics exposes Prometheus collectors for the HTTP layer and the points ledger.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector the service registers.
var Registry = prometheus.NewRegistry()

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loyalty",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "loyalty",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	pointsAwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "loyalty",
		Subsystem: "ledger",
		Name:      "points_awarded_total",
		Help:      "Points credited to members.",
	})

	pointsRedeemed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "loyalty",
		Subsystem: "ledger",
		Name:      "points_redeemed_total",
		Help:      "Points debited by approved redemptions.",
	})

	redemptionOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loyalty",
		Subsystem: "ledger",
		Name:      "redemptions_total",
		Help:      "Redemption transitions by outcome.",
	}, []string{"outcome"})
)

func init() {
	Registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		pointsAwarded,
		pointsRedeemed,
		redemptionOutcomes,
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// GinMiddleware records request counts and latency keyed by the matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// PointsAwarded counts a credit.
func PointsAwarded(points int64) {
	pointsAwarded.Add(float64(points))
}

// RedemptionRequested counts a newly created request.
func RedemptionRequested() {
	redemptionOutcomes.WithLabelValues("requested").Inc()
}

// RedemptionApproved counts an approval and its debit.
func RedemptionApproved(points int64) {
	redemptionOutcomes.WithLabelValues("approved").Inc()
	pointsRedeemed.Add(float64(points))
}

// RedemptionRejected counts a rejection.
func RedemptionRejected() {
	redemptionOutcomes.WithLabelValues("rejected").Inc()
}
