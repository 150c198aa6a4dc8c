package features_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/rankpredictor/internal/domain/features"
	"github.com/okian/rankpredictor/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleAttempt() model.QuizAttempt {
	return model.QuizAttempt{
		TotalScore: 85,
		TotalTime:  105,
		Responses: []model.QuizResponse{
			{QuestionID: 1, SelectedOptionID: 2, CorrectOptionID: 2, Topic: "Physics", Difficulty: "Easy", TimeTaken: 60},
			{QuestionID: 2, SelectedOptionID: 3, CorrectOptionID: 4, Topic: "Chemistry", Difficulty: "Medium", TimeTaken: 45},
		},
	}
}

func sampleHistory() []model.HistoricalRecord {
	return []model.HistoricalRecord{
		{TotalScore: 80, TotalTime: 100},
		{TotalScore: 85, TotalTime: 95},
		{TotalScore: 90, TotalTime: 90},
	}
}

func TestTopic(t *testing.T) {
	Convey("Given responses across topics", t, func() {
		Convey("When extracting topic features", func() {
			fv, err := features.Topic(sampleAttempt().Responses)
			So(err, ShouldBeNil)

			Convey("Then each topic gets exactly one triple", func() {
				So(len(fv), ShouldEqual, 6)
				So(fv["Physics_accuracy"], ShouldEqual, 1.0)
				So(fv["Chemistry_accuracy"], ShouldEqual, 0.0)
				So(fv["Physics_avg_time"], ShouldEqual, 60.0)
				So(fv["Physics_time_std"], ShouldEqual, 0.0)
			})
		})

		Convey("When a topic has several responses", func() {
			responses := []model.QuizResponse{
				{SelectedOptionID: 1, CorrectOptionID: 1, Topic: "Physics", TimeTaken: 30},
				{SelectedOptionID: 1, CorrectOptionID: 1, Topic: "Physics", TimeTaken: 50},
				{SelectedOptionID: 2, CorrectOptionID: 1, Topic: "Physics", TimeTaken: 40},
				{SelectedOptionID: 2, CorrectOptionID: 1, Topic: "Physics", TimeTaken: 40},
			}
			fv, err := features.Topic(responses)
			So(err, ShouldBeNil)

			Convey("Then accuracy is the correct fraction and std is the population deviation", func() {
				So(fv["Physics_accuracy"], ShouldEqual, 0.5)
				So(fv["Physics_avg_time"], ShouldEqual, 40.0)
				So(fv["Physics_time_std"], ShouldAlmostEqual, math.Sqrt(50), 1e-9)
			})
		})
	})
}

func TestTemporal(t *testing.T) {
	Convey("Given a history window", t, func() {
		Convey("When scores improve", func() {
			fv, err := features.Temporal(sampleHistory())
			So(err, ShouldBeNil)

			Convey("Then averages and trends reflect the series", func() {
				So(fv[model.FeatureAvgScore], ShouldAlmostEqual, 85.0, 1e-9)
				So(fv[model.FeatureScoreTrend], ShouldBeGreaterThan, 0)
				So(fv[model.FeatureAvgTime], ShouldAlmostEqual, 95.0, 1e-9)
				So(fv[model.FeatureTimeTrend], ShouldBeLessThan, 0)
				So(fv[model.FeatureScoreStd], ShouldAlmostEqual, math.Sqrt(50.0/3.0), 1e-9)
			})
		})

		Convey("When scores decline", func() {
			fv, err := features.Temporal([]model.HistoricalRecord{
				{TotalScore: 90, TotalTime: 100}, {TotalScore: 85, TotalTime: 100}, {TotalScore: 80, TotalTime: 100},
			})
			So(err, ShouldBeNil)
			So(fv[model.FeatureScoreTrend], ShouldBeLessThan, 0)
		})

		Convey("When there is exactly one record", func() {
			fv, err := features.Temporal([]model.HistoricalRecord{{TotalScore: 70, TotalTime: 100}})
			So(err, ShouldBeNil)
			So(fv[model.FeatureScoreTrend], ShouldEqual, 0)
			So(fv[model.FeatureScoreStd], ShouldEqual, 0)
			So(fv[model.FeatureTimeEfficiency], ShouldAlmostEqual, 0.7, 1e-9)
		})

		Convey("When there are no records", func() {
			_, err := features.Temporal(nil)
			So(errors.Is(err, model.ErrInsufficientHistory), ShouldBeTrue)
		})

		Convey("When some records have zero time", func() {
			fv, err := features.Temporal([]model.HistoricalRecord{
				{TotalScore: 80, TotalTime: 0}, {TotalScore: 90, TotalTime: 100},
			})
			So(err, ShouldBeNil)
			So(fv[model.FeatureTimeEfficiency], ShouldAlmostEqual, 0.9, 1e-9)
		})

		Convey("When every record has zero time", func() {
			_, err := features.Temporal([]model.HistoricalRecord{{TotalScore: 80}, {TotalScore: 90}})
			So(errors.Is(err, model.ErrDivisionByZero), ShouldBeTrue)
		})
	})
}

func TestExtract(t *testing.T) {
	Convey("Given an attempt and its history", t, func() {
		Convey("When extracting the full vector", func() {
			fv, err := features.Extract(sampleAttempt(), sampleHistory())
			So(err, ShouldBeNil)

			Convey("Then it holds topic, temporal and derived keys", func() {
				So(len(fv), ShouldEqual, 6+6+2)
				So(fv[model.FeatureConsistency], ShouldBeBetweenOrEqual, 0, 1)
				So(fv[model.FeatureImprovementRate], ShouldAlmostEqual, 5.0/85.0, 1e-9)
			})

			Convey("And extraction is deterministic", func() {
				again, err := features.Extract(sampleAttempt(), sampleHistory())
				So(err, ShouldBeNil)
				So(again, ShouldResemble, fv)
			})
		})

		Convey("When the average score is zero", func() {
			fv, err := features.Extract(sampleAttempt(), []model.HistoricalRecord{{TotalScore: 0, TotalTime: 10}})
			So(err, ShouldBeNil)
			So(fv[model.FeatureConsistency], ShouldEqual, 1)
			So(fv[model.FeatureImprovementRate], ShouldEqual, 0)
		})

		Convey("When scores vary more than their mean", func() {
			fv, err := features.Extract(sampleAttempt(), []model.HistoricalRecord{
				{TotalScore: 1, TotalTime: 10}, {TotalScore: 1, TotalTime: 10}, {TotalScore: 40, TotalTime: 10},
			})
			So(err, ShouldBeNil)
			So(fv[model.FeatureConsistency], ShouldEqual, 0)
		})

		Convey("When the attempt is malformed", func() {
			a := sampleAttempt()
			a.Responses[0].TimeTaken = -3
			_, err := features.Extract(a, sampleHistory())
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When history is empty", func() {
			_, err := features.Extract(sampleAttempt(), nil)
			So(errors.Is(err, model.ErrInsufficientHistory), ShouldBeTrue)
		})
	})
}

func TestByDifficulty(t *testing.T) {
	Convey("Given responses with difficulty labels", t, func() {
		groups := features.ByDifficulty(sampleAttempt().Responses)
		So(len(groups), ShouldEqual, 2)
		So(groups[0].Topic, ShouldEqual, "Easy")
		acc, err := groups[1].Accuracy()
		So(err, ShouldBeNil)
		So(acc, ShouldEqual, 0)
	})

	Convey("Given an empty group", t, func() {
		_, err := features.TopicStats{Topic: "Biology"}.Accuracy()
		So(errors.Is(err, model.ErrDivisionByZero), ShouldBeTrue)
	})
}
