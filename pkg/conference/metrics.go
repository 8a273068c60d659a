package conference

import "github.com/prometheus/client_golang/prometheus"

var (
	roomsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "turnroom_rooms",
			Help: "Current number of open rooms.",
		},
	)
	participantsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "turnroom_participants",
			Help: "Current number of connected participants in all rooms.",
		},
	)
	turnsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "turnroom_turns_total",
			Help: "Total speaking grants by the reason of the turn change.",
		},
		[]string{"reason"},
	)
	relayCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "turnroom_relay_packets_total",
			Help: "Total relayed signaling packets by type and result.",
		},
		[]string{"packet", "result"},
	)
	panicsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "turnroom_event_panics_total",
			Help: "Total room events that ended with a recovered panic.",
		},
	)
)

func init() {
	prometheus.MustRegister(roomsGauge, participantsGauge, turnsCounter, relayCounter, panicsCounter)
}

const (
	reasonJoin     = "join"
	reasonComplete = "complete"
	reasonExpire   = "expire"
	reasonLeave    = "leave"
)

func countTurn(reason string) { turnsCounter.WithLabelValues(reason).Inc() }

func countRelay(packet string, delivered bool) {
	result := "dropped"
	if delivered {
		result = "delivered"
	}
	relayCounter.WithLabelValues(packet, result).Inc()
}
