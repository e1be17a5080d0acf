package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chatsync"

// Metrics 引擎运行指标，nil 接收者上的调用均为空操作
type Metrics struct {
	framesReceived    *prometheus.CounterVec
	framesDropped     *prometheus.CounterVec
	reconnectAttempts prometheus.Counter
	messagesSent      *prometheus.CounterVec
	unreadTotal       prometheus.Gauge
}

// New 创建指标并注册到 reg，reg 为空时不注册
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Inbound frames dispatched to a subscription, by topic.",
		}, []string{"topic"}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Inbound frames dropped before reaching a handler, by reason.",
		}, []string{"reason"}),
		reconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts_total",
			Help:      "Socket reconnection attempts.",
		}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound chat messages, by result.",
		}, []string{"result"}),
		unreadTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unread_total",
			Help:      "Current total unread message count.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.framesReceived, m.framesDropped, m.reconnectAttempts, m.messagesSent, m.unreadTotal)
	}
	return m
}

func (m *Metrics) FrameReceived(topic string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(topic).Inc()
}

func (m *Metrics) FrameDropped(reason string) {
	if m == nil {
		return
	}
	m.framesDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) ReconnectAttempt() {
	if m == nil {
		return
	}
	m.reconnectAttempts.Inc()
}

func (m *Metrics) MessageSent(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.messagesSent.WithLabelValues(result).Inc()
}

func (m *Metrics) SetUnread(n int) {
	if m == nil {
		return
	}
	m.unreadTotal.Set(float64(n))
}

// 丢帧原因
const (
	DropMalformedFrame   = "malformed_frame"
	DropNoSubscription   = "no_subscription"
	DropMalformedPayload = "malformed_payload"
	DropHandlerPanic     = "handler_panic"
)
