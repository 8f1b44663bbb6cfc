package smtp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pure-golang/mailer/mail"
)

const statusOK = "ok"

var (
	sendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mail_smtp_send_duration_seconds",
			Help:    "Duration of SMTP deliveries including connection setup",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"encryption", "status"},
	)

	sentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_smtp_sent_total",
			Help: "SMTP delivery attempts by outcome",
		},
		[]string{"encryption", "status"},
	)
)

func init() {
	prometheus.MustRegister(sendDuration)
	prometheus.MustRegister(sentTotal)
}

// recordSend stores the outcome of one delivery. status is "ok" or the error kind.
func recordSend(enc mail.Encryption, err error, started time.Time) {
	status := statusOK
	if err != nil {
		status = string(mail.KindOf(err))
	}
	sendDuration.WithLabelValues(enc.String(), status).Observe(time.Since(started).Seconds())
	sentTotal.WithLabelValues(enc.String(), status).Inc()
}
