package trainingdata

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rankpredictor/internal/domain/features"
	"github.com/okian/rankpredictor/internal/domain/rankmodel"
)

func TestGenerator(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		g := New(WithSeed(7), WithQuestions(12), WithAttempts(4))

		Convey("Students are reproducible", func() {
			a, b := g.Student(3), New(WithSeed(7), WithQuestions(12), WithAttempts(4)).Student(3)
			So(a, ShouldResemble, b)
			So(g.Student(4).ID, ShouldNotEqual, a.ID)
		})

		Convey("Every attempt is valid and feeds feature extraction", func() {
			for _, s := range g.Students(10) {
				So(s.Attempts, ShouldHaveLength, 4)
				for _, a := range s.Attempts {
					So(a.Validate(), ShouldBeNil)
					So(a.Responses, ShouldHaveLength, 12)
					So(a.TotalScore, ShouldBeBetweenOrEqual, 0, 100)
				}
				So(s.History(), ShouldHaveLength, 3)
				_, err := features.Extract(s.Latest(), s.History())
				So(err, ShouldBeNil)
			}
		})

		Convey("Exam results are ranked best score first", func() {
			results := g.ExamResults(2023, 50)
			So(results, ShouldHaveLength, 50)
			for i := 1; i < len(results); i++ {
				So(results[i].Score, ShouldBeLessThanOrEqualTo, results[i-1].Score)
				So(results[i].Rank, ShouldBeGreaterThan, results[i-1].Rank)
			}
			So(results[0].Year, ShouldEqual, 2023)
		})

		Convey("Dataset yields a trainable set", func() {
			ds, err := g.Dataset(context.Background(), 40)
			So(err, ShouldBeNil)
			So(ds.Len(), ShouldEqual, 40)
			So(ds.Validate(), ShouldBeNil)

			m, _, err := rankmodel.Train(context.Background(), ds)
			So(err, ShouldBeNil)
			So(m.Info().Rows, ShouldEqual, 40)
		})

		Convey("Dataset honours cancellation", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := g.Dataset(ctx, 5)
			So(err, ShouldNotBeNil)
		})
	})
}
