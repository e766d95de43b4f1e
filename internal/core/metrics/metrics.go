// Package metrics 解析流程的 Prometheus 指標
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RetriesTotal 外部呼叫重試次數
	RetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nutrient_resolver",
		Name:      "external_call_retries_total",
		Help:      "Retries of external calls by error class.",
	}, []string{"class"})

	// ExternalCallDuration 外部呼叫耗時
	ExternalCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nutrient_resolver",
		Name:      "external_call_duration_seconds",
		Help:      "Duration of external AI calls.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"kind", "outcome"})

	// CatalogMatchesTotal 品項比對結果來源
	CatalogMatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nutrient_resolver",
		Name:      "catalog_matches_total",
		Help:      "Items by nutrient source (catalog, custom, package, external, none).",
	}, []string{"source"})

	// LookupsTotal 解析佇列的外部查詢結果
	LookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nutrient_resolver",
		Name:      "lookups_total",
		Help:      "External nutrient lookups by outcome.",
	}, []string{"outcome"})

	// ActiveSessions 進行中的工作階段
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nutrient_resolver",
		Name:      "active_sessions",
		Help:      "Editing sessions currently held in memory.",
	})

	// HTTPRequestsTotal API 請求數
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nutrient_resolver",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
)
