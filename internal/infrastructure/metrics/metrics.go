package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Auction metrics
	AuctionsCreated prometheus.Counter

	// Bid metrics
	BidsPlaced   prometheus.Counter
	BidsRejected *prometheus.CounterVec
	BidAmount    prometheus.Histogram
	BidDuration  prometheus.Histogram

	// Settlement metrics
	Settlements        *prometheus.CounterVec
	SettlementErrors   *prometheus.CounterVec
	SettlementDuration prometheus.Histogram

	// Ledger metrics
	Reservations  prometheus.Counter
	RefundsIssued prometheus.Counter
	RefundAmount  prometheus.Histogram
	Deposits      prometheus.Counter

	// Outbox metrics
	EventsPublished *prometheus.CounterVec

	// API metrics
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	HTTPInFlight     prometheus.Gauge
	RateLimitHits    *prometheus.CounterVec
	IdempotentReplay prometheus.Counter

	// Authentication metrics
	AuthFailures *prometheus.CounterVec
}

// New creates and registers all metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		// Auction metrics
		AuctionsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "goauction_auctions_created_total",
			Help: "Total number of auctions created",
		}),

		// Bid metrics
		BidsPlaced: f.NewCounter(prometheus.CounterOpts{
			Name: "goauction_bids_placed_total",
			Help: "Total number of accepted bids",
		}),
		BidsRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goauction_bids_rejected_total",
				Help: "Total number of rejected bids by reason",
			},
			[]string{"reason"},
		),
		BidAmount: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "goauction_bid_amount",
			Help:    "Accepted bid amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		BidDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "goauction_bid_duration_seconds",
			Help:    "Duration of bid placement",
			Buckets: prometheus.DefBuckets,
		}),

		// Settlement metrics
		Settlements: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goauction_settlements_total",
				Help: "Total number of settled auctions by trigger",
			},
			[]string{"trigger"},
		),
		SettlementErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goauction_settlement_errors_total",
				Help: "Total number of failed settlements by reason",
			},
			[]string{"reason"},
		),
		SettlementDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "goauction_settlement_duration_seconds",
			Help:    "Duration of settlements",
			Buckets: prometheus.DefBuckets,
		}),

		// Ledger metrics
		Reservations: f.NewCounter(prometheus.CounterOpts{
			Name: "goauction_reservations_total",
			Help: "Total number of bid collateral reservations",
		}),
		RefundsIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "goauction_refunds_total",
			Help: "Total number of refunds issued to outbid users",
		}),
		RefundAmount: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "goauction_refund_amount",
			Help:    "Refunded amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		Deposits: f.NewCounter(prometheus.CounterOpts{
			Name: "goauction_deposits_total",
			Help: "Total number of wallet deposits",
		}),

		// Outbox metrics
		EventsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goauction_events_published_total",
				Help: "Total outbox events published by type",
			},
			[]string{"event_type"},
		),

		// API metrics
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goauction_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goauction_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "goauction_http_in_flight_requests",
			Help: "Current number of HTTP requests being served",
		}),
		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goauction_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"client"},
		),
		IdempotentReplay: f.NewCounter(prometheus.CounterOpts{
			Name: "goauction_idempotent_replays_total",
			Help: "Total responses replayed from the idempotency store",
		}),

		// Authentication metrics
		AuthFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goauction_auth_failures_total",
				Help: "Total authentication failures",
			},
			[]string{"reason"},
		),
	}
}
