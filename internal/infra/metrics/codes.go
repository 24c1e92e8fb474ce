package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		codesIssuedTotal,
		codeGenerationFailuresTotal,
		issuanceBatchesTotal,
		distributionTotal,
		codesDeletedTotal,
	)
}

var (
	codesIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codes_issued_total",
			Help: "Redemption codes durably issued, by category.",
		},
		[]string{"category"},
	)

	codeGenerationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "code_generation_failures_total",
			Help: "Failed single-code generations, by reason.",
		},
		[]string{"reason"}, // 'exhausted', 'store', 'invalid'
	)

	issuanceBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "issuance_batches_total",
			Help: "Bulk issuance batches, by outcome.",
		},
		[]string{"outcome"},
	)

	distributionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distribution_total",
			Help: "Distribution side-effect calls, by status.",
		},
		[]string{"status"}, // 'sent', 'failed'
	)

	codesDeletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codes_deleted_total",
			Help: "Codes removed by administrative delete, by state at deletion.",
		},
		[]string{"state"}, // 'used', 'unused'
	)
)

func IncCodeIssued(category string) {
	codesIssuedTotal.WithLabelValues(norm(category)).Inc()
}

func IncGenerationFailure(reason string) {
	codeGenerationFailuresTotal.WithLabelValues(norm(reason)).Inc()
}

func IncBatch(outcome string) {
	issuanceBatchesTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncDistribution(status string) {
	distributionTotal.WithLabelValues(norm(status)).Inc()
}

func AddCodesDeleted(used, unused int) {
	codesDeletedTotal.WithLabelValues("used").Add(float64(used))
	codesDeletedTotal.WithLabelValues("unused").Add(float64(unused))
}
