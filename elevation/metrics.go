package elevation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	grantsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sudolite_elevation_grants_total",
		Help: "Total number of successful admin elevations",
	})

	deniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sudolite_elevation_denied_total",
		Help: "Total number of denied elevate/leave actions",
	}, []string{"reason"})

	expiriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sudolite_elevation_expiries_total",
		Help: "Total number of elevations revoked after the window lapsed",
	})

	demotionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sudolite_permanent_admin_demotions_total",
		Help: "Total number of untracked admin accounts demoted by the guard",
	})

	refreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sudolite_elevation_refresh_failures_total",
		Help: "Total number of failed elevation timestamp refresh writes",
	})
)
