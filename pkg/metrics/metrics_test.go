package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created and enabled", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Enabled(), ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithMetricPrefix("x"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithMetricsEnabled(false),
				WithRefreshInterval(3*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the custom names", func() {
				So(manager.Enabled(), ShouldBeFalse)
				So(manager.RefreshInterval(), ShouldEqual, 3*time.Second)
				manager.sessionsStarted.Inc()
				v, err := Sum(registry, "test_unit_x_sessions_started_total")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 1)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		reg := GetRegistry()

		Convey("When recording session metrics", func() {
			before, _ := Sum(reg, "hoops_reconcile_sessions_started_total")
			RecordSessionStarted()
			RecordSessionEnded()
			RecordSessionConflict()
			RecordSessionStateError("NO_ACTIVE_SESSION")
			after, err := Sum(reg, "hoops_reconcile_sessions_started_total")

			Convey("Then the counters advance", func() {
				So(err, ShouldBeNil)
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When recording reconciliation metrics", func() {
			before, _ := Sum(reg, "hoops_reconcile_scores_accepted_total")
			RecordScoresAccepted("batch", 3)
			RecordScoreRejected("single", "UNKNOWN_TARGET")
			RecordPointsCommitted(15)
			RecordPointsCommitted(-1)
			RecordOperationLatency("add_score", "ok", 2.5)
			RecordLeaderboardSubmit()
			RecordLeaderboardReset()
			after, err := Sum(reg, "hoops_reconcile_scores_accepted_total")

			Convey("Then accepted events are summed across paths", func() {
				So(err, ShouldBeNil)
				So(after-before, ShouldEqual, 3)
			})
		})

		Convey("When recording dependency and notification metrics", func() {
			So(func() {
				RecordDependencyLatency("player_state", "get", 1)
				RecordDependencyError("leaderboard", "add")
				RecordWriteConflict()
				UpdateNotifyQueueSize(4)
				UpdateNotifyQueueCapacity(10)
				RecordNotifyEnqueued()
				RecordNotifyDropped("queue_full")
				RecordNotifyDelivered("all", "update-leaderboard", 0.3)
				RecordNotifyFailed("player", "reward")
				UpdateNotifyWorkers(2)
				UpdateLeaderboardPlayers("scores", 12)
				UpdateCatalogTargets(5)
				RecordCatalogReload()
				RecordHTTPRequest("scores", "POST", "200")
				RecordHTTPRequestDuration("scores", "POST", "200", 1.2)
				RecordHTTPDuplicate()
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
			}, ShouldNotPanic)

			v, err := Sum(reg, "hoops_reconcile_notify_queue_size")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 4)
		})

		Convey("When summing an unknown metric", func() {
			_, err := Sum(reg, "hoops_reconcile_nope")

			Convey("Then ErrMetricNotFound is returned", func() {
				So(errors.Is(err, ErrMetricNotFound), ShouldBeTrue)
			})
		})
	})
}
