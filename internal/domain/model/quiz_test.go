package model_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/rankpredictor/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func validAttempt() model.QuizAttempt {
	return model.QuizAttempt{
		TotalScore: 85,
		TotalTime:  105,
		Responses: []model.QuizResponse{
			{QuestionID: 1, SelectedOptionID: 2, CorrectOptionID: 2, Topic: "Physics", Difficulty: "Easy", TimeTaken: 60},
			{QuestionID: 2, SelectedOptionID: 3, CorrectOptionID: 4, Topic: "Chemistry", Difficulty: "Hard", TimeTaken: 45},
		},
	}
}

func TestQuizAttempt_Validate(t *testing.T) {
	convey.Convey("Given a quiz attempt", t, func() {
		convey.Convey("When every record is well formed", func() {
			convey.So(validAttempt().Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When it has no responses", func() {
			a := validAttempt()
			a.Responses = nil
			convey.So(errors.Is(a.Validate(), model.ErrInvalidInput), convey.ShouldBeTrue)
		})

		convey.Convey("When a response has negative time", func() {
			a := validAttempt()
			a.Responses[1].TimeTaken = -1
			err := a.Validate()
			convey.So(errors.Is(err, model.ErrInvalidInput), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "response 1")
		})

		convey.Convey("When a response has a blank topic", func() {
			a := validAttempt()
			a.Responses[0].Topic = "  "
			convey.So(errors.Is(a.Validate(), model.ErrInvalidInput), convey.ShouldBeTrue)
		})

		convey.Convey("When the total score is not finite", func() {
			a := validAttempt()
			a.TotalScore = math.NaN()
			convey.So(errors.Is(a.Validate(), model.ErrInvalidInput), convey.ShouldBeTrue)
		})
	})
}

func TestQuizResponse_Correct(t *testing.T) {
	convey.Convey("Given responses", t, func() {
		a := validAttempt()
		convey.So(a.Responses[0].Correct(), convey.ShouldBeTrue)
		convey.So(a.Responses[1].Correct(), convey.ShouldBeFalse)
	})
}

func TestWindow(t *testing.T) {
	convey.Convey("Given a history of four records", t, func() {
		h := []model.HistoricalRecord{{TotalScore: 1}, {TotalScore: 2}, {TotalScore: 3}, {TotalScore: 4}}

		convey.Convey("Then a window of two keeps the most recent records", func() {
			convey.So(model.Scores(model.Window(h, 2)), convey.ShouldResemble, []float64{3, 4})
		})

		convey.Convey("Then a zero window keeps everything", func() {
			convey.So(len(model.Window(h, 0)), convey.ShouldEqual, 4)
		})

		convey.Convey("Then negative times are rejected", func() {
			bad := []model.HistoricalRecord{{TotalScore: 1, TotalTime: -5}}
			convey.So(errors.Is(model.ValidateHistory(bad), model.ErrInvalidInput), convey.ShouldBeTrue)
		})
	})
}

func TestFeatureVector(t *testing.T) {
	convey.Convey("Given a feature vector", t, func() {
		fv := model.FeatureVector{"b": 1, "a": 2, "Physics_accuracy": 0.5}

		convey.Convey("Then names are sorted", func() {
			convey.So(fv.Names(), convey.ShouldResemble, []string{"Physics_accuracy", "a", "b"})
		})

		convey.Convey("Then accuracy topics keep inner underscores", func() {
			topic, ok := model.AccuracyTopic("Organic_Chemistry_accuracy")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(topic, convey.ShouldEqual, "Organic_Chemistry")
			_, ok = model.AccuracyTopic("avg_score")
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}
