package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reserenv",
			Name:      "commands_total",
			Help:      "Slash commands by command name and outcome.",
		},
		[]string{"command", "outcome"},
	)

	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reserenv",
			Name:      "command_duration_seconds",
			Help:      "Slash command handling latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	remindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reserenv",
			Name:      "reminders_sent_total",
			Help:      "Reminder messages successfully delivered.",
		},
	)

	reminderFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reserenv",
			Name:      "reminder_failures_total",
			Help:      "Reminder sends that failed.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(commands, commandDuration, remindersSent, reminderFailures)
	})
}

// IncCommand increments the counter for a command/outcome pair.
func IncCommand(command, outcome string) {
	commands.WithLabelValues(command, outcome).Inc()
}

// ObserveCommand records handling latency for a command.
func ObserveCommand(command string, seconds float64) {
	commandDuration.WithLabelValues(command).Observe(seconds)
}

// IncReminderSent counts one delivered reminder.
func IncReminderSent() {
	remindersSent.Inc()
}

// IncReminderFailure counts one failed reminder send.
func IncReminderFailure() {
	reminderFailures.Inc()
}
