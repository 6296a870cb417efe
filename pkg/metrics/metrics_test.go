package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func familyNames(reg *prometheus.Registry) map[string]bool {
	names := map[string]bool{}
	mfs, err := reg.Gather()
	So(err, ShouldBeNil)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	return names
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(
			WithNamespace("test"),
			WithSubsystem("unit"),
			WithHistogramBuckets([]float64{1, 10, 100}),
			WithConstLabels(map[string]string{"env": "test"}),
			WithPrometheusRegistry(registry),
		)
		So(manager, ShouldNotBeNil)

		Convey("When collectors are touched", func() {
			manager.eventsApplied.WithLabelValues("question_attempt").Inc()
			manager.queueSize.Set(3)

			Convey("Then they are exposed with the configured names", func() {
				names := familyNames(registry)
				So(names["test_unit_events_applied_total"], ShouldBeTrue)
				So(names["test_unit_queue_size"], ShouldBeTrue)
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global registry", t, func() {
		RecordEventReceived("test_completed")
		RecordEventRejected("invalid")
		RecordEventDuplicate("test_completed")
		RecordEventApplied("test_completed")
		RecordEventFailed("test_completed")
		RecordApplyLatency("test_completed", 1.5)
		UpdateQueueSize(2)
		UpdateQueueCapacity(10)
		UpdateQueueUtilization(0.2)
		RecordQueueEnqueue()
		RecordQueueDequeue()
		RecordQueueEnqueueError("queue_full")
		UpdateWorkerCount(4)
		RecordWorkerProcessingLatency(2)
		RecordStoreLatency("update", "test", 0.3)
		RecordHTTPRequest("/v1/events", "POST", "202")
		RecordHTTPRequestDuration("/v1/events", "POST", "202", 4)
		RecordErrorByEndpoint("/v1/events", "POST", "client_error")
		RecordErrorByComponent("worker", "apply_error")
		SampleRuntime()
		SampleRuntime()

		Convey("Then every family is gathered", func() {
			names := familyNames(GetRegistry())
			for _, n := range []string{
				"prepscore_aggregator_events_received_total",
				"prepscore_aggregator_events_rejected_total",
				"prepscore_aggregator_events_duplicate_total",
				"prepscore_aggregator_events_applied_total",
				"prepscore_aggregator_events_failed_total",
				"prepscore_aggregator_apply_latency_milliseconds",
				"prepscore_aggregator_queue_enqueue_errors_total",
				"prepscore_aggregator_store_latency_milliseconds",
				"prepscore_aggregator_http_requests_total",
				"prepscore_aggregator_errors_by_component_total",
				"prepscore_aggregator_system_memory_usage_bytes",
				"prepscore_aggregator_system_goroutine_count",
			} {
				So(names[n], ShouldBeTrue)
			}
		})

		Convey("Then the queue error also counts against the queue component", func() {
			mfs, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			found := false
			for _, mf := range mfs {
				if mf.GetName() != "prepscore_aggregator_errors_by_component_total" {
					continue
				}
				for _, m := range mf.GetMetric() {
					for _, lp := range m.GetLabel() {
						if lp.GetName() == "component" && lp.GetValue() == "queue" {
							found = m.GetCounter().GetValue() >= 1
						}
					}
				}
			}
			So(found, ShouldBeTrue)
		})
	})
}
