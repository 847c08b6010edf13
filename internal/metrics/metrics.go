package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	WebhookProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fest_webhook_processed_total", Help: "Webhook deliveries that caused a ledger transition"},
	)
	WebhookDuplicate = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fest_webhook_duplicate_total", Help: "Webhook deliveries for already-terminal orders"},
	)
	WebhookUnmatched = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fest_webhook_unmatched_total", Help: "Webhook deliveries with no matching ledger row"},
	)
	WebhookRejected = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fest_webhook_rejected_total", Help: "Webhook deliveries failing signature verification"},
	)
	PIDIssued = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fest_pid_issued_total", Help: "Participant identifiers issued"},
	)
	ReceiptProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fest_receipt_processed_total", Help: "Receipt jobs completed"},
	)
	ReceiptFailed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fest_receipt_failed_total", Help: "Receipt job attempts that failed"},
	)
	ReceiptDLQ = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fest_receipt_dlq_total", Help: "Receipt jobs moved to the dead-letter queue"},
	)
	SyncProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fest_search_sync_processed_total", Help: "Outbox events indexed into search"},
	)
	SyncFailed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fest_search_sync_failed_total", Help: "Outbox events that failed to index"},
	)
	SyncDLQ = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fest_search_sync_dlq_total", Help: "Outbox events inserted into the search DLQ"},
	)
)

func Register() {
	prometheus.MustRegister(
		WebhookProcessed, WebhookDuplicate, WebhookUnmatched, WebhookRejected,
		PIDIssued,
		ReceiptProcessed, ReceiptFailed, ReceiptDLQ,
		SyncProcessed, SyncFailed, SyncDLQ,
	)
}
