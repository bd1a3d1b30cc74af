package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When a manager is created with custom options", func() {
			m := NewManager(
				WithNames("test", "unit"),
				WithHistogramBuckets(1, 10),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then its metrics are registered under the namespace", func() {
				m.tournamentsFinalized.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_unit_tournaments_finalized_total"], ShouldBeTrue)
				So(testutil.ToFloat64(m.tournamentsFinalized), ShouldEqual, 1)
			})
		})

		Convey("When two managers share a registry", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When engine metrics are recorded", func() {
			before := testutil.ToFloat64(globalManager.challengeResolutions.WithLabelValues("ok"))
			RecordChallengeResolution("ok")
			RecordPlacementAllocation("G")
			RecordTournamentFinalized()
			RecordTournamentDuplicate()
			RecordRecompute("club")
			RecordRecomputeLatency(3)
			RecordRecomputeError()
			RecordStandingsSize(42)
			RecordRankMovements(1, 0, 2, 3)
			RecordRecommendationLatency("clubs", 0.4)

			Convey("Then counters move", func() {
				So(testutil.ToFloat64(globalManager.challengeResolutions.WithLabelValues("ok")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.rankMovements.WithLabelValues("down")), ShouldBeGreaterThanOrEqualTo, 3)
			})
		})

		Convey("When infrastructure metrics are recorded", func() {
			So(func() {
				RecordLockWait(1)
				RecordLockError()
				UpdateRepositoryResultsTotal(10)
				UpdateRepositoryScopesTotal(2)
				IncrementRepositorySnapshotSwaps()
				RecordRepositoryUpdateLatency(1)
				RecordRepositoryQueryLatency(1)
				UpdateQueueSize(5)
				UpdateQueueCapacity(10)
				UpdateQueueUtilization(0.5)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(2)
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(1)
				UpdateWorkerIdleCount(3)
				RecordWorkerProcessingLatency(2)
				RecordWorkerError()
				RecordWorkerRetry()
				RecordHTTPRequest("/v1/tiers", "GET", "200")
				RecordHTTPRequestDuration("/v1/tiers", "GET", "200", 1.5)
				RecordHTTPRateLimited("/v1/tiers")
				RecordErrorByComponent("api", "bad_request")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)

			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 5)
			So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
		})

		Convey("Then the registry exposes them", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
