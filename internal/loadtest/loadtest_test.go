package loadtest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rankpredictor/internal/adapters/http/api"
	"github.com/okian/rankpredictor/internal/adapters/http/site"
	"github.com/okian/rankpredictor/internal/adapters/repository"
	service "github.com/okian/rankpredictor/internal/app"
	"github.com/okian/rankpredictor/internal/domain/rankmodel"
	"github.com/okian/rankpredictor/internal/trainingdata"
	"github.com/okian/rankpredictor/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newServer(ctx context.Context) (*httptest.Server, func()) {
	st, err := repository.Open(ctx, "file:loadtest?mode=memory&cache=shared")
	if err != nil {
		panic(err)
	}
	ds, err := trainingdata.New(trainingdata.WithAttempts(3)).Dataset(ctx, 40)
	if err != nil {
		panic(err)
	}
	m, _, err := rankmodel.Train(ctx, ds)
	if err != nil {
		panic(err)
	}
	svc := service.New(service.WithStore(st), service.WithModel(rankmodel.NewHolder(m)))

	mux := http.NewServeMux()
	api.NewServer(svc).Register(ctx, mux)
	site.Register(ctx, mux, site.NewHandler(svc))
	srv := httptest.NewServer(mux)
	return srv, func() {
		srv.Close()
		_ = st.Close()
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running server", t, func() {
		ctx := context.Background()
		srv, done := newServer(ctx)
		defer done()

		Convey("Every student completes the round trip", func() {
			stats, err := Run(ctx, &Config{BaseURL: srv.URL, Students: 6, Workers: 3, Timeout: 10 * time.Second, Seed: 3})
			So(err, ShouldBeNil)
			So(stats.StudentsCreated, ShouldEqual, 6)
			So(stats.AttemptsSubmitted, ShouldEqual, 6*6)
			So(stats.PredictionsMade, ShouldEqual, 6)
			So(stats.ReportsFetched, ShouldEqual, 6)
			So(stats.Failed, ShouldEqual, 0)
			So(stats.Duration, ShouldBeGreaterThan, 0)
		})
	})

	Convey("Given an unreachable server", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		_, err := Run(context.Background(), &Config{BaseURL: srv.URL, Students: 1, Workers: 1, Timeout: time.Second})
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "health check")
	})
}

func TestVerifyResults(t *testing.T) {
	Convey("Given student results", t, func() {
		Convey("Consistent results pass", func() {
			err := verifyResults([]studentResult{
				{UserID: "a", Rank: 100, Confidence: 0.8, Colleges: []string{"x", "y"}},
				{UserID: "b", Rank: 900, Confidence: 0.6, Colleges: []string{"y"}},
			})
			So(err, ShouldBeNil)
		})

		Convey("A worse rank with more colleges fails", func() {
			err := verifyResults([]studentResult{
				{UserID: "a", Rank: 100, Confidence: 0.8, Colleges: []string{"x"}},
				{UserID: "b", Rank: 900, Confidence: 0.6, Colleges: []string{"x", "y"}},
			})
			So(err, ShouldNotBeNil)
		})

		Convey("Out of bounds confidence fails", func() {
			So(verifyResults([]studentResult{{UserID: "a", Rank: 5, Confidence: 0.99}}), ShouldNotBeNil)
		})

		Convey("Failed students are reported", func() {
			boom := errors.New("boom")
			err := verifyResults([]studentResult{{UserID: "a", Err: boom}})
			So(errors.Is(err, boom), ShouldBeTrue)
		})
	})
}
