package observe

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	messagesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simp_messages_sent_total",
			Help: "Total messages sent by kind",
		},
		[]string{"kind"}, // control|chat
	)

	messagesReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simp_messages_received_total",
			Help: "Total messages received by kind",
		},
		[]string{"kind"},
	)

	retransmitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simp_retransmits_total",
		Help: "Total messages resent after a receive timeout",
	})

	receiveTimeoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simp_receive_timeouts_total",
		Help: "Total receive timeouts observed",
	})

	handshakesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simp_handshakes_completed_total",
		Help: "Total completed handshakes",
	})

	sessionsClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simp_sessions_closed_total",
			Help: "Total sessions closed by reason",
		},
		[]string{"reason"}, // fin|err|quit|decode|interrupt
	)
)

func init() {
	prometheus.MustRegister(
		messagesSentTotal,
		messagesReceivedTotal,
		retransmitsTotal,
		receiveTimeoutsTotal,
		handshakesTotal,
		sessionsClosedTotal,
	)
}

func IncSent(kind string)     { messagesSentTotal.WithLabelValues(kind).Inc() }
func IncReceived(kind string) { messagesReceivedTotal.WithLabelValues(kind).Inc() }
func IncRetransmit()          { retransmitsTotal.Inc() }
func IncReceiveTimeout()      { receiveTimeoutsTotal.Inc() }
func IncHandshake()           { handshakesTotal.Inc() }

func IncSessionClosed(reason string) { sessionsClosedTotal.WithLabelValues(reason).Inc() }
