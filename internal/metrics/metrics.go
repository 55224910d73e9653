package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Subscribers counts live snapshot subscriptions per collection.
	Subscribers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "collectionsdb",
		Name:      "snapshot_subscribers",
		Help:      "Live snapshot subscriptions by collection path.",
	}, []string{"collection"})

	// Publishes counts snapshots published per collection.
	Publishes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collectionsdb",
		Name:      "snapshot_publishes_total",
		Help:      "Snapshots published by collection path.",
	}, []string{"collection"})

	// Actions counts dispatcher outcomes per action and level.
	Actions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collectionsdb",
		Name:      "actions_total",
		Help:      "Dispatched actions by collection, action and outcome level.",
	}, []string{"collection", "action", "level"})
)

// Register adds the collectors to reg. Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{Subscribers, Publishes, Actions} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}
