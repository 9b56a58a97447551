package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager()

			Convey("Then it should be created with defaults", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "upshot")
				So(manager.subsystem, ShouldEqual, "proxy")
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test_namespace")
				So(manager.subsystem, ShouldEqual, "test_subsystem")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)
			})

			Convey("And metrics should be registered on the given registry", func() {
				manager.hitsRecorded.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_hits_recorded_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty option values are passed", func() {
			manager := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithRefreshInterval(0))

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "upshot")
				So(manager.subsystem, ShouldEqual, "proxy")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		SetEnabled(true)

		Convey("When recording proxy metrics", func() {
			hits := testutil.ToFloat64(globalManager.hitsRecorded)
			invalid := testutil.ToFloat64(globalManager.invalidKeys)
			served := testutil.ToFloat64(globalManager.imagesServed)
			bytes := testutil.ToFloat64(globalManager.bytesServed)
			retries := testutil.ToFloat64(globalManager.fetchRetries)
			failures := testutil.ToFloat64(globalManager.fetchAttempts.WithLabelValues(OutcomeFailure))

			RecordHit()
			RecordInvalidKey()
			RecordImageServed(128)
			RecordFetchRetry()
			RecordFetchAttempt(OutcomeFailure, 12)

			Convey("Then the counters should move", func() {
				So(testutil.ToFloat64(globalManager.hitsRecorded), ShouldEqual, hits+1)
				So(testutil.ToFloat64(globalManager.invalidKeys), ShouldEqual, invalid+1)
				So(testutil.ToFloat64(globalManager.imagesServed), ShouldEqual, served+1)
				So(testutil.ToFloat64(globalManager.bytesServed), ShouldEqual, bytes+128)
				So(testutil.ToFloat64(globalManager.fetchRetries), ShouldEqual, retries+1)
				So(testutil.ToFloat64(globalManager.fetchAttempts.WithLabelValues(OutcomeFailure)), ShouldEqual, failures+1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateStoreTotals(3, 42)
			UpdateWriterQueueSize(7)
			UpdateWriterQueueCapacity(1024)

			Convey("Then they should hold the last value", func() {
				So(testutil.ToFloat64(globalManager.storeKeys), ShouldEqual, float64(3))
				So(testutil.ToFloat64(globalManager.storeHits), ShouldEqual, float64(42))
				So(testutil.ToFloat64(globalManager.writerQueueLen), ShouldEqual, float64(7))
				So(testutil.ToFloat64(globalManager.writerQueueCap), ShouldEqual, float64(1024))
			})
		})

		Convey("When reading the refresh interval", func() {
			Convey("Then the global manager default is returned", func() {
				So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When recording is disabled", func() {
			SetEnabled(false)
			defer SetEnabled(true)
			before := testutil.ToFloat64(globalManager.hitsRecorded)
			RecordHit()

			Convey("Then nothing should change", func() {
				So(testutil.ToFloat64(globalManager.hitsRecorded), ShouldEqual, before)
			})
		})

		Convey("When recording HTTP and error metrics", func() {
			So(func() {
				RecordHTTPRequest("image", "GET", "200")
				RecordHTTPRequestDuration("image", "GET", "200", 3.5)
				RecordErrorByComponent("store", "write_failed")
				RecordErrorByType("not_found", "medium")
				RecordErrorByEndpoint("image", "GET", "not_found")
				RecordErrorLatency("http", "not_found", 3001)
				RecordStoreLatency("increment", 0.4)
				RecordHitFailure()
				RecordImageNotFound()
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)

			Convey("Then the registry should expose them", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				joined := strings.Join(names, ",")
				So(joined, ShouldContainSubstring, "upshot_proxy_http_requests_total")
				So(joined, ShouldContainSubstring, "upshot_proxy_errors_by_component_total")
				So(joined, ShouldContainSubstring, "upshot_proxy_store_latency_milliseconds")
			})
		})
	})
}
