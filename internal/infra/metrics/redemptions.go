package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(redemptionsTotal, qrPayloadsTotal) }

var (
	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redemptions_total",
			Help: "Redemption attempts, by outcome.",
		},
		[]string{"outcome"}, // 'redeemed', 'not_found', 'already_redeemed', 'expired', 'rate_limited', 'error'
	)

	qrPayloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_payloads_total",
			Help: "QR payload encode/decode operations.",
		},
		[]string{"op", "status"},
	)
)

func IncRedemption(outcome string) {
	redemptionsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncQRPayload(op, status string) {
	qrPayloadsTotal.WithLabelValues(norm(op), norm(status)).Inc()
}
