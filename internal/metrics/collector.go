// Package metrics exposes the simulation's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/events"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "matchsim"

// Collector implements the service observer interfaces on top of Prometheus
// counters.  Build one per process with NewCollector.
type Collector struct {
	reg prometheus.Registerer

	tickDuration prometheus.Histogram
	matches      prometheus.Counter
	goals        *prometheus.CounterVec
	reprices     *prometheus.CounterVec
	betsPlaced   *prometheus.CounterVec
	staked       prometheus.Counter
	betsSettled  *prometheus.CounterVec
	paidOut      prometheus.Counter
}

// NewCollector creates and registers the collectors on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reg: reg,
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock cost of one simulation tick.",
			Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .0167},
		}),
		matches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_completed_total",
			Help:      "Matches played to full time.",
		}),
		goals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "goals_total",
			Help:      "Goals scored, by team.",
		}, []string{"team"}),
		reprices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "odds_reprices_total",
			Help:      "Odds board re-pricing passes, by model.",
		}, []string{"model"}),
		betsPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bets_placed_total",
			Help:      "Accepted bets, by market.",
		}, []string{"market"}),
		staked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stake_total",
			Help:      "Sum of accepted stakes.",
		}),
		betsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bets_settled_total",
			Help:      "Settled bets, by final status.",
		}, []string{"status"}),
		paidOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payout_total",
			Help:      "Sum credited back to the balance by settlement and refunds.",
		}),
	}
	reg.MustRegister(
		c.tickDuration, c.matches, c.goals, c.reprices,
		c.betsPlaced, c.staked, c.betsSettled, c.paidOut,
	)
	return c
}

// Attach counts goals and completed matches from the bus.
func (c *Collector) Attach(bus *events.Bus) (detach func()) {
	unGoal := bus.Subscribe(events.KindGoal, func(e events.Event) {
		c.goals.WithLabelValues(string(e.(events.Goal).Goal.Team)).Inc()
	})
	unEnd := bus.Subscribe(events.KindMatchEnd, func(events.Event) {
		c.matches.Inc()
	})
	return func() {
		unGoal()
		unEnd()
	}
}

// ObserveTick records the cost of one tick.
func (c *Collector) ObserveTick(d time.Duration) {
	c.tickDuration.Observe(d.Seconds())
}

// ObserveReprice counts one board re-pricing.
func (c *Collector) ObserveReprice(live bool) {
	model := "prematch"
	if live {
		model = "live"
	}
	c.reprices.WithLabelValues(model).Inc()
}

// BetPlaced counts an accepted bet.
func (c *Collector) BetPlaced(b *domain.Bet) {
	c.betsPlaced.WithLabelValues(string(b.Market)).Inc()
	c.staked.Add(b.Stake.InexactFloat64())
}

// BetSettled counts a bet leaving the pending state.
func (c *Collector) BetSettled(b *domain.Bet) {
	c.betsSettled.WithLabelValues(string(b.Status)).Inc()
	if b.Payout != nil {
		c.paidOut.Add(b.Payout.InexactFloat64())
	}
}

// RegisterGauge exposes a value sampled at scrape time, such as the ledger
// balance or the number of WebSocket clients.
func (c *Collector) RegisterGauge(name, help string, fn func() float64) {
	c.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}
