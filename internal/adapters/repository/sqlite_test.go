package repository

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rankpredictor/internal/domain/college"
	"github.com/okian/rankpredictor/internal/domain/model"
	"github.com/okian/rankpredictor/internal/domain/rankmodel"
	"github.com/okian/rankpredictor/pkg/logger"
)

var dbSeq atomic.Int64

func openTestStore() *SQLiteStore {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var tick atomic.Int64
	clock := func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Second) }

	dsn := fmt.Sprintf("file:rankpred-test-%d?mode=memory&cache=shared", dbSeq.Add(1))
	s, err := Open(context.Background(), dsn, WithClock(clock), WithBusyTimeout(time.Second))
	if err != nil {
		panic(err)
	}
	return s
}

func attempt(score float64, date time.Time, topics ...string) model.QuizAttempt {
	a := model.QuizAttempt{TotalScore: score, TotalTime: 600, QuizDate: date}
	for i, t := range topics {
		a.Responses = append(a.Responses, model.QuizResponse{
			QuestionID: i + 1, SelectedOptionID: 1, CorrectOptionID: 1 + i%2,
			Topic: t, Subtopic: "basics", Difficulty: "easy", TimeTaken: 30,
		})
	}
	return a
}

func TestUsers(t *testing.T) {
	Convey("Given an empty store", t, func() {
		s := openTestStore()
		defer s.Close()
		ctx := context.Background()

		Convey("CreateUser assigns an id and User reads it back", func() {
			u, err := s.CreateUser(ctx, User{Name: " Asha ", Email: "asha@example.com"})
			So(err, ShouldBeNil)
			So(u.ID, ShouldNotBeEmpty)
			So(u.Name, ShouldEqual, "Asha")

			got, err := s.User(ctx, u.ID)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, u)

			users, err := s.Users(ctx)
			So(err, ShouldBeNil)
			So(users, ShouldHaveLength, 1)
		})

		Convey("A blank name is rejected", func() {
			_, err := s.CreateUser(ctx, User{Name: "  "})
			So(errors.Is(err, ErrInvalidInput), ShouldBeTrue)
		})

		Convey("An unknown user is not found", func() {
			_, err := s.User(ctx, "missing")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestAttempts(t *testing.T) {
	Convey("Given a user with three attempts", t, func() {
		s := openTestStore()
		defer s.Close()
		ctx := context.Background()

		u, err := s.CreateUser(ctx, User{Name: "Ravi"})
		So(err, ShouldBeNil)

		day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, score := range []float64{70, 75, 80} {
			_, err := s.SaveAttempt(ctx, u.ID, attempt(score, day.AddDate(0, 0, i), "Physics", "Chemistry"))
			So(err, ShouldBeNil)
		}

		Convey("LatestAttempt returns the newest with its responses in order", func() {
			sub, err := s.LatestAttempt(ctx, u.ID)
			So(err, ShouldBeNil)
			So(sub.Attempt.TotalScore, ShouldEqual, 80)
			So(sub.Attempt.QuizDate, ShouldEqual, day.AddDate(0, 0, 2))
			So(sub.Attempt.Responses, ShouldHaveLength, 2)
			So(sub.Attempt.Responses[0].Topic, ShouldEqual, "Physics")
			So(sub.Attempt.Responses[1].Subtopic, ShouldEqual, "basics")

			Convey("History before it lists the earlier attempts oldest first", func() {
				h, err := s.History(ctx, u.ID, sub.ID, 5)
				So(err, ShouldBeNil)
				So(model.Scores(h), ShouldResemble, []float64{70, 75})

				h, err = s.History(ctx, u.ID, sub.ID, 1)
				So(err, ShouldBeNil)
				So(model.Scores(h), ShouldResemble, []float64{75})
			})

			Convey("History without a bound lists everything", func() {
				h, err := s.History(ctx, u.ID, 0, 0)
				So(err, ShouldBeNil)
				So(model.Scores(h), ShouldResemble, []float64{70, 75, 80})
			})
		})

		Convey("An attempt dated earlier does not become the latest", func() {
			_, err := s.SaveAttempt(ctx, u.ID, attempt(10, day.AddDate(0, 0, -5), "Biology"))
			So(err, ShouldBeNil)

			sub, err := s.LatestAttempt(ctx, u.ID)
			So(err, ShouldBeNil)
			So(sub.Attempt.TotalScore, ShouldEqual, 80)

			h, err := s.History(ctx, u.ID, sub.ID, 0)
			So(err, ShouldBeNil)
			So(model.Scores(h), ShouldResemble, []float64{10, 70, 75})
		})

		Convey("Invalid attempts and unknown users are rejected", func() {
			_, err := s.SaveAttempt(ctx, u.ID, model.QuizAttempt{TotalScore: 1})
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)

			_, err = s.SaveAttempt(ctx, "ghost", attempt(50, day, "Physics"))
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)

			_, err = s.LatestAttempt(ctx, "ghost")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestPredictions(t *testing.T) {
	Convey("Given a stored prediction", t, func() {
		s := openTestStore()
		defer s.Close()
		ctx := context.Background()

		u, err := s.CreateUser(ctx, User{Name: "Meera"})
		So(err, ShouldBeNil)

		saved, err := s.SavePrediction(ctx, PredictionRecord{
			UserID:        u.ID,
			SubmissionID:  7,
			PredictedRank: 1200,
			Confidence:    0.8,
			ModelFamily:   rankmodel.FamilyRidge,
			FeaturesUsed:  model.FeatureVector{"avg_score": 82.5, "Physics_accuracy": 0.75},
		})
		So(err, ShouldBeNil)
		So(saved.ID, ShouldNotBeEmpty)

		Convey("Predictions returns it with the features used", func() {
			_, err := s.SavePrediction(ctx, PredictionRecord{UserID: u.ID, PredictedRank: 900, Confidence: 0.9})
			So(err, ShouldBeNil)

			list, err := s.Predictions(ctx, u.ID)
			So(err, ShouldBeNil)
			So(list, ShouldHaveLength, 2)
			So(list[0].PredictedRank, ShouldEqual, 900)
			So(list[1], ShouldResemble, saved)
		})

		Convey("A prediction needs a user", func() {
			_, err := s.SavePrediction(ctx, PredictionRecord{PredictedRank: 1})
			So(errors.Is(err, ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestCutoffs(t *testing.T) {
	Convey("Given cutoffs across categories and years", t, func() {
		s := openTestStore()
		defer s.Close()
		ctx := context.Background()

		for _, c := range []college.Cutoff{
			{College: "JIPMER", Location: "Puducherry", Year: 2023, Rank: 550},
			{College: "JIPMER", Year: 2024, Rank: 500},
			{College: "JIPMER", Category: college.SC, Year: 2024, Rank: 3500},
			{College: "AIIMS Delhi", Location: "New Delhi", Year: 2024, Rank: 50},
		} {
			So(s.UpsertCutoff(ctx, c), ShouldBeNil)
		}

		Convey("CutoffTable feeds eligibility", func() {
			table, err := s.CutoffTable(ctx)
			So(err, ShouldBeNil)
			So(table.Len(), ShouldEqual, 4)
			So(college.Eligible(200, table, college.Query{}), ShouldResemble, []string{"JIPMER"})
			So(college.Eligible(520, table, college.Query{Year: 2023}), ShouldResemble, []string{"JIPMER"})
		})

		Convey("Upserting replaces the rank and keeps the location", func() {
			So(s.UpsertCutoff(ctx, college.Cutoff{College: "JIPMER", Year: 2024, Rank: 450}), ShouldBeNil)

			table, err := s.CutoffTable(ctx)
			So(err, ShouldBeNil)
			for _, c := range table.Cutoffs() {
				if c.College == "JIPMER" {
					So(c.Location, ShouldEqual, "Puducherry")
				}
				if c.College == "JIPMER" && c.Year == 2024 && c.Category == college.General {
					So(c.Rank, ShouldEqual, 450)
				}
			}
		})

		Convey("A cutoff without a rank is rejected", func() {
			err := s.UpsertCutoff(ctx, college.Cutoff{College: "X"})
			So(errors.Is(err, ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestExamResults(t *testing.T) {
	Convey("Given results for two years", t, func() {
		s := openTestStore()
		defer s.Close()
		ctx := context.Background()

		Convey("An empty table has no prior year", func() {
			_, err := s.PriorYearResults(ctx, 0)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		So(s.SaveExamResults(ctx, []rankmodel.ExamResult{
			{Year: 2022, Score: 600, Rank: 900},
			{Year: 2023, Score: 650, Rank: 400},
			{Year: 2023, Score: 500, Rank: 5000},
		}), ShouldBeNil)

		Convey("Year zero selects the latest year", func() {
			got, err := s.PriorYearResults(ctx, 0)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []rankmodel.ExamResult{
				{Year: 2023, Score: 650, Rank: 400},
				{Year: 2023, Score: 500, Rank: 5000},
			})
		})

		Convey("An explicit year filters", func() {
			got, err := s.PriorYearResults(ctx, 2022)
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 1)

			_, err = s.PriorYearResults(ctx, 1999)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})
	})
}
