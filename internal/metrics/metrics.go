package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	workflowName = "workflow_name"
	recordType   = "record_type"
)

var (
	// IngestedRecords counts records accepted by the ingester.
	IngestedRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_ingested_records_count",
		Help: "Number of inbound records persisted and enqueued",
	}, []string{recordType})

	// Executions counts workflow executions started per workflow.
	Executions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_executions_count",
		Help: "Number of workflow executions started",
	}, []string{workflowName})

	// ExecutionErrors counts executions ending in a failure terminal or an
	// unhandled step error.
	ExecutionErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_execution_error_count",
		Help: "Number of workflow executions that failed",
	}, []string{workflowName})

	// ExecutionLatency observes end-to-end execution duration.
	ExecutionLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notifier_execution_latency_seconds",
		Help:    "Workflow execution duration in seconds",
		Buckets: []float64{0.01, 0.1, 1, 5, 10, 60, 300},
	}, []string{workflowName})

	// DispatchedEmails counts successful mail dispatches.
	DispatchedEmails = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_dispatched_emails_count",
		Help: "Number of emails handed to the mail collaborator",
	}, []string{recordType})

	// ConsumerErrors counts queue consumer loop errors.
	ConsumerErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_consumer_error_count",
		Help: "Number of errors in the queue consumer loop",
	}, []string{workflowName})

	// QueueDepth tracks queued messages awaiting acknowledgment.
	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "notifier_queue_depth",
		Help: "Number of queued messages, including in-flight deliveries",
	}, []string{"queue"})
)

func init() {
	prometheus.MustRegister(
		IngestedRecords,
		Executions,
		ExecutionErrors,
		ExecutionLatency,
		DispatchedEmails,
		ConsumerErrors,
		QueueDepth,
	)
}
