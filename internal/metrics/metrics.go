// Package metrics は認証フローの Prometheus 指標を提供します。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "authgate"

var backendDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// AuthMetrics はログイン/ログアウトの結果とバックエンド呼び出しの所要時間を記録します。
// nil でも安全に呼び出せます。
type AuthMetrics struct {
	Logins          *prometheus.CounterVec
	Logouts         *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec
}

// New は reg に登録された AuthMetrics を作成します。
func New(reg prometheus.Registerer) *AuthMetrics {
	factory := promauto.With(reg)
	return &AuthMetrics{
		Logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "login_total",
				Help:      "Login attempts grouped by outcome",
			},
			[]string{"outcome"},
		),
		Logouts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logout_total",
				Help:      "Logout attempts grouped by outcome",
			},
			[]string{"outcome"},
		),
		BackendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_login_duration_seconds",
				Help:      "Latency of backend login calls grouped by outcome",
				Buckets:   backendDurationBuckets,
			},
			[]string{"outcome"},
		),
	}
}

// RegisterPool はバックエンド接続プールの使用数を公開します。
func RegisterPool(reg prometheus.Registerer, inUse func() int64, capacity int64) {
	factory := promauto.With(reg)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backend_pool_in_use",
		Help:      "Backend connections currently checked out",
	}, func() float64 { return float64(inUse()) })
	factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backend_pool_capacity",
		Help:      "Maximum concurrent backend connections",
	}).Set(float64(capacity))
}

// IncLogin はログイン結果を1件記録します。
func (m *AuthMetrics) IncLogin(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}

// IncLogout はログアウト結果を1件記録します。
func (m *AuthMetrics) IncLogout(outcome string) {
	if m == nil {
		return
	}
	m.Logouts.WithLabelValues(outcome).Inc()
}

// ObserveBackend はバックエンド呼び出しの所要時間を記録します。
func (m *AuthMetrics) ObserveBackend(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.BackendDuration.WithLabelValues(outcome).Observe(d.Seconds())
}
