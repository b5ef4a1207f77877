package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			metricsEnabledOpt := WithMetricsEnabled(true)
			refreshIntervalOpt := WithRefreshInterval(5 * time.Second)

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(metricsEnabledOpt, ShouldNotBeNil)
				So(refreshIntervalOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		So(globalManager, ShouldNotBeNil)

		Convey("When recording evaluation flow metrics", func() {
			So(func() {
				RecordSessionStarted()
				RecordSessionOpened("restored")
				RecordSessionOpened("fresh")
				UpdateSessionsActive(2)
				RecordDecision("surpasses")
				RecordGradeFinalized("F")
				RecordReevaluation()
				RecordDuplicateSubmission()
			}, ShouldNotPanic)
		})

		Convey("When recording durability metrics", func() {
			So(func() {
				RecordDirtyMark()
				RecordSaveTrigger("debounce")
				RecordSaveTrigger("periodic")
				RecordSaveTrigger("manual")
				RecordIntervalChange()
				UpdateAutosaveInterval(30)
				RecordSave("full", "ok")
				RecordSave("compact", "quota")
				RecordSaveDuration(4.2)
				RecordSaveRetry()
				UpdateRetryQueueDepth(1)
				RecordQueueFlush("flushed")
				UpdateHistorySize(3)
			}, ShouldNotPanic)
		})

		Convey("When recording store and HTTP metrics", func() {
			So(func() {
				RecordStoreOp("put", "ok")
				RecordStoreLatency(0.8)
				UpdateStoreBytes(2048)
				RecordHTTPRequest("/v1/sessions", "POST", "200")
				RecordHTTPRequestDuration("/v1/sessions", "POST", "200", 3.5)
				RecordErrorByEndpoint("/v1/sessions", "POST", "client_error")
				RecordErrorByType("client_error", "medium")
				RecordErrorLatency("http", "client_error", 1.0)
			}, ShouldNotPanic)
		})

		Convey("When fetching the registry", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
