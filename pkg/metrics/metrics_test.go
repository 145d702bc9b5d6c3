package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(
			WithNamespace("test"),
			WithHistogramBuckets([]float64{1, 2}),
			WithMetricsEnabled(false),
			WithCustomLabels(map[string]string{"course": "cs101"}),
			WithPrometheusRegistry(registry),
		)

		Convey("Then the manager reflects them", func() {
			So(m.namespace, ShouldEqual, "test")
			So(m.histogramBuckets, ShouldResemble, []float64{1, 2})
			So(m.enabled, ShouldBeFalse)
		})

		Convey("And collectors are registered under the namespace with the labels", func() {
			m.codesIssued.Inc()
			families, err := registry.Gather()
			So(err, ShouldBeNil)
			var found *dto.MetricFamily
			for _, f := range families {
				if f.GetName() == "test_codes_issued_total" {
					found = f
				}
			}
			So(found, ShouldNotBeNil)
			So(found.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "course")
			So(found.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "cs101")
		})
	})

	Convey("Given empty option values", t, func() {
		m := NewManager(WithNamespace(""), WithHistogramBuckets(nil), WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("Then defaults are kept", func() {
			So(m.namespace, ShouldEqual, "peereval")
			So(m.histogramBuckets, ShouldResemble, defaultHTTPBuckets)
		})
	})
}

func TestInit(t *testing.T) {
	Convey("Given the global manager is rebuilt from configuration", t, func() {
		previousManager, previousRegistry := globalManager, customRegistry
		defer func() { globalManager, customRegistry = previousManager, previousRegistry }()

		Init(WithNamespace("course"), WithCustomLabels(map[string]string{"term": "fall"}))
		RecordSubmission("saved")

		Convey("Then recorders write to the new registry under the new namespace", func() {
			So(GetRegistry(), ShouldNotEqual, previousRegistry)
			So(testutil.ToFloat64(globalManager.submissions.WithLabelValues("saved")), ShouldEqual, 1)
			n, err := testutil.GatherAndCount(GetRegistry(), "course_submissions_total")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})

		Convey("When metrics are disabled", func() {
			Init(WithMetricsEnabled(false))
			RecordSubmission("saved")

			Convey("Then nothing is recorded", func() {
				So(testutil.ToFloat64(globalManager.submissions.WithLabelValues("saved")), ShouldEqual, 0)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording passcode events", func() {
			before := testutil.ToFloat64(globalManager.codesIssued)
			RecordCodeIssued()
			RecordDeliveryFailure()
			RecordIssuanceThrottled()
			RecordVerification("ok")
			RecordVerification("mismatch")

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(globalManager.codesIssued), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.verifications.WithLabelValues("mismatch")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording submission events", func() {
			RecordSubmission("saved")
			RecordReconcileDuration(120 * time.Millisecond)
			RecordStoreReadFallback()
			RecordWriteQuirk()
			UpdateDatasetRows(42)
			UpdateRosterSize(7)

			Convey("Then gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.datasetRows), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.rosterSize), ShouldEqual, 7)
			})
		})

		Convey("When recording HTTP events", func() {
			So(func() {
				RecordHTTPRequest("session_code", "POST", "202")
				RecordHTTPRequestDuration("session_code", "POST", "202", 12)
				RecordErrorByEndpoint("evaluation", "POST", "server_error")
				RecordErrorByType("server_error", "high")
			}, ShouldNotPanic)

			Convey("Then the registry exposes them", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				var names []string
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "peereval_http_requests_total")
			})
		})
	})
}
