package collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus collector the exporter publishes. All
// collectors live on an engine-owned registry so independent engine
// instances never share state.
type Metrics struct {
	// Core EIP metrics
	EIPsConfigured prometheus.Gauge
	EIPsAssigned   prometheus.Gauge
	EIPsUnassigned prometheus.Gauge
	EIPUtilization prometheus.Gauge

	// CPIC status metrics
	CPICSuccess prometheus.Gauge
	CPICPending prometheus.Gauge
	CPICError   prometheus.Gauge

	CPICPendingDuration *prometheus.GaugeVec
	CPICErrorDuration   *prometheus.GaugeVec

	// Per-node metrics
	NodeCPICSuccess *prometheus.GaugeVec
	NodeCPICPending *prometheus.GaugeVec
	NodeCPICError   *prometheus.GaugeVec
	NodeEIPAssigned *prometheus.GaugeVec
	NodeCapacity    *prometheus.GaugeVec
	NodeUtilization *prometheus.GaugeVec
	NodesAvailable  prometheus.Gauge
	NodesWithErrors prometheus.Gauge

	// Distribution and fairness metrics
	DistributionStdDev prometheus.Gauge
	DistributionGini   prometheus.Gauge
	MaxPerNode         prometheus.Gauge
	MinPerNode         prometheus.Gauge

	// Reconciliation metrics
	MismatchTotal        *prometheus.GaugeVec
	RequestsWithMismatch prometheus.Gauge
	OvercommitExcess     prometheus.Gauge
	RequestsCritical     prometheus.Gauge

	// Historical trend metrics
	ChangesLastHour    prometheus.Gauge
	RecoveriesLastHour prometheus.Gauge
	AssignmentRate     prometheus.Gauge

	// API performance metrics
	APIResponseTime *prometheus.GaugeVec
	APISuccessRate  *prometheus.GaugeVec
	APICallsTotal   *prometheus.CounterVec

	// Health indicators
	HealthScore    prometheus.Gauge
	StabilityScore prometheus.Gauge

	// Monitoring system metrics
	Info           *prometheus.GaugeVec
	ScrapeErrors   prometheus.Counter
	LastScrape     prometheus.Gauge
	ScrapeDuration prometheus.Gauge
}

// NewMetrics creates and registers every collector on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EIPsConfigured: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eips_configured_total",
			Help: "Total number of configured EIPs",
		}),
		EIPsAssigned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eips_assigned_total",
			Help: "Total number of assigned EIPs",
		}),
		EIPsUnassigned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eips_unassigned_total",
			Help: "Total number of unassigned EIPs",
		}),
		EIPUtilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eip_utilization_percent",
			Help: "Percentage of EIPs currently assigned",
		}),

		CPICSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cpic_success_total",
			Help: "Total number of successful CPIC resources",
		}),
		CPICPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cpic_pending_total",
			Help: "Total number of pending CPIC resources",
		}),
		CPICError: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cpic_error_total",
			Help: "Total number of error CPIC resources",
		}),

		CPICPendingDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cpic_pending_duration_seconds",
			Help: "Time CPIC resources spend in pending state",
		}, []string{"resource_name"}),
		CPICErrorDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cpic_error_duration_seconds",
			Help: "Time CPIC resources spend in error state",
		}, []string{"resource_name"}),

		NodeCPICSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "node_cpic_success_total",
			Help: "CPIC success count per node",
		}, []string{"node"}),
		NodeCPICPending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "node_cpic_pending_total",
			Help: "CPIC pending count per node",
		}, []string{"node"}),
		NodeCPICError: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "node_cpic_error_total",
			Help: "CPIC error count per node",
		}, []string{"node"}),
		NodeEIPAssigned: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "node_eip_assigned_total",
			Help: "EIP assigned count per node",
		}, []string{"node"}),
		NodeCapacity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "node_eip_capacity_total",
			Help: "Maximum EIP capacity per node",
		}, []string{"node"}),
		NodeUtilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "node_eip_utilization_percent",
			Help: "EIP utilization percentage per node",
		}, []string{"node"}),
		NodesAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eip_nodes_available_total",
			Help: "Number of EIP-enabled nodes available",
		}),
		NodesWithErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eip_nodes_with_errors_total",
			Help: "Number of EIP-enabled nodes with CPIC errors",
		}),

		DistributionStdDev: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eip_distribution_stddev",
			Help: "Standard deviation of EIP distribution across nodes",
		}),
		DistributionGini: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eip_distribution_gini_coefficient",
			Help: "Gini coefficient of EIP distribution (0=perfect equality, 1=perfect inequality)",
		}),
		MaxPerNode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eip_max_per_node",
			Help: "Maximum EIPs assigned to any single node",
		}),
		MinPerNode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eip_min_per_node",
			Help: "Minimum EIPs assigned to any single node",
		}),

		MismatchTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eip_reconcile_mismatch_total",
			Help: "Cross-resource mismatches detected, by kind",
		}, []string{"kind"}),
		RequestsWithMismatch: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eip_requests_with_mismatch_total",
			Help: "Number of EIP requests with at least one mismatch",
		}),
		OvercommitExcess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eip_overcommit_excess_total",
			Help: "Summed excess of requested addresses over available capacity",
		}),
		RequestsCritical: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eip_requests_critical_total",
			Help: "Number of EIP requests with no working assignment",
		}),

		ChangesLastHour: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eip_changes_last_hour",
			Help: "Number of EIP state changes in the last hour",
		}),
		RecoveriesLastHour: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cpic_recoveries_last_hour",
			Help: "Number of CPIC error recoveries in the last hour",
		}),
		AssignmentRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eip_assignment_rate_per_minute",
			Help: "Rate of EIP assignment changes per minute",
		}),

		APIResponseTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "api_response_time_seconds",
			Help: "API response time for EIP operations",
		}, []string{"operation"}),
		APISuccessRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "api_success_rate_percent",
			Help: "Success rate of API calls",
		}, []string{"operation"}),
		APICallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_calls_total",
			Help: "Total number of API calls made",
		}, []string{"operation", "status"}),

		HealthScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cluster_eip_health_score",
			Help: "Overall EIP cluster health score (0-100)",
		}),
		StabilityScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cluster_eip_stability_score",
			Help: "EIP stability score based on change frequency",
		}),

		Info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eip_monitoring_info",
			Help: "EIP monitoring information",
		}, []string{"version", "instance_id"}),
		ScrapeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eip_scrape_errors_total",
			Help: "Total number of scrape errors",
		}),
		LastScrape: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eip_last_scrape_timestamp_seconds",
			Help: "Unix timestamp of last fully successful scrape",
		}),
		ScrapeDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eip_scrape_duration_seconds",
			Help: "Time taken to complete the last poll cycle",
		}),
	}

	reg.MustRegister(
		m.EIPsConfigured, m.EIPsAssigned, m.EIPsUnassigned, m.EIPUtilization,
		m.CPICSuccess, m.CPICPending, m.CPICError,
		m.CPICPendingDuration, m.CPICErrorDuration,
		m.NodeCPICSuccess, m.NodeCPICPending, m.NodeCPICError,
		m.NodeEIPAssigned, m.NodeCapacity, m.NodeUtilization,
		m.NodesAvailable, m.NodesWithErrors,
		m.DistributionStdDev, m.DistributionGini, m.MaxPerNode, m.MinPerNode,
		m.MismatchTotal, m.RequestsWithMismatch, m.OvercommitExcess, m.RequestsCritical,
		m.ChangesLastHour, m.RecoveriesLastHour, m.AssignmentRate,
		m.APIResponseTime, m.APISuccessRate, m.APICallsTotal,
		m.HealthScore, m.StabilityScore,
		m.Info, m.ScrapeErrors, m.LastScrape, m.ScrapeDuration,
	)
	return m
}

// resetPerResource clears every labeled gauge so resources that vanished
// from the cluster do not linger in the exposition.
func (m *Metrics) resetPerResource() {
	m.CPICPendingDuration.Reset()
	m.CPICErrorDuration.Reset()
	m.NodeCPICSuccess.Reset()
	m.NodeCPICPending.Reset()
	m.NodeCPICError.Reset()
	m.NodeEIPAssigned.Reset()
	m.NodeCapacity.Reset()
	m.NodeUtilization.Reset()
	m.MismatchTotal.Reset()
}
