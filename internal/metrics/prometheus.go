package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes the aggregator to Prometheus scrapes. Collecting never
// sweeps the active-user tracker.
type Collector struct {
	agg *Aggregator

	requests        *prometheus.Desc
	greetingChanges *prometheus.Desc
	purchaseSuccess *prometheus.Desc
	purchaseFailure *prometheus.Desc
	revenue         *prometheus.Desc
	authSuccess     *prometheus.Desc
	authFailure     *prometheus.Desc
	activeUsers     *prometheus.Desc
	pizzaLatency    *prometheus.Desc
	serviceLatency  *prometheus.Desc
}

func NewCollector(agg *Aggregator, namespace string) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		agg:             agg,
		requests:        desc("requests_total", "Requests by endpoint.", "endpoint"),
		greetingChanges: desc("greeting_changes_total", "Greeting updates."),
		purchaseSuccess: desc("pizza_purchase_success_total", "Orders fulfilled by the factory."),
		purchaseFailure: desc("pizza_purchase_failure_total", "Orders the factory rejected."),
		revenue:         desc("pizza_purchase_revenue_total", "Revenue from fulfilled orders."),
		authSuccess:     desc("auth_success_total", "Successful logins and registrations."),
		authFailure:     desc("auth_failure_total", "Rejected logins."),
		activeUsers:     desc("active_users", "Tracked sessions; expired entries are evicted on each report tick."),
		pizzaLatency:    desc("pizza_purchase_latency_ms", "Latency of the last factory call."),
		serviceLatency:  desc("service_latency_ms", "Latency of the last request."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.greetingChanges
	ch <- c.purchaseSuccess
	ch <- c.purchaseFailure
	ch <- c.revenue
	ch <- c.authSuccess
	ch <- c.authFailure
	ch <- c.activeUsers
	ch <- c.pizzaLatency
	ch <- c.serviceLatency
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.agg.Snapshot()
	for _, endpoint := range snap.Endpoints() {
		ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(snap.Requests[endpoint]), endpoint)
	}
	ch <- prometheus.MustNewConstMetric(c.greetingChanges, prometheus.CounterValue, float64(snap.GreetingChanges))
	ch <- prometheus.MustNewConstMetric(c.purchaseSuccess, prometheus.CounterValue, float64(snap.PurchaseSuccess))
	ch <- prometheus.MustNewConstMetric(c.purchaseFailure, prometheus.CounterValue, float64(snap.PurchaseFailure))
	ch <- prometheus.MustNewConstMetric(c.revenue, prometheus.CounterValue, snap.Revenue())
	ch <- prometheus.MustNewConstMetric(c.authSuccess, prometheus.CounterValue, float64(snap.AuthSuccess))
	ch <- prometheus.MustNewConstMetric(c.authFailure, prometheus.CounterValue, float64(snap.AuthFailure))
	ch <- prometheus.MustNewConstMetric(c.activeUsers, prometheus.GaugeValue, float64(snap.ActiveUsers))
	ch <- prometheus.MustNewConstMetric(c.pizzaLatency, prometheus.GaugeValue, snap.PizzaLatencyMS)
	ch <- prometheus.MustNewConstMetric(c.serviceLatency, prometheus.GaugeValue, snap.ServiceLatencyMS)
}
