package rankmodel_test

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/okian/rankpredictor/internal/domain/model"
	"github.com/okian/rankpredictor/internal/domain/rankmodel"
	. "github.com/smartystreets/goconvey/convey"
)

var testFeatures = []string{"Chemistry_accuracy", "Physics_accuracy", "avg_score"}

// linearDataset builds rows where the rank depends on physics accuracy and
// average score only.
func linearDataset(n int) *rankmodel.Dataset {
	ds := &rankmodel.Dataset{Features: testFeatures}
	for i := 0; i < n; i++ {
		phys := float64(i%10) / 10
		chem := float64((i*7)%10) / 10
		avg := 50 + float64(i)
		ds.Rows = append(ds.Rows, []float64{chem, phys, avg})
		ds.Ranks = append(ds.Ranks, 6000-5000*phys-20*avg)
	}
	return ds
}

func constantDataset(n int, rank float64) *rankmodel.Dataset {
	ds := linearDataset(n)
	for i := range ds.Ranks {
		ds.Ranks[i] = rank
	}
	return ds
}

func ridgeOnly(alpha float64) rankmodel.TrainOption {
	return rankmodel.WithCandidates(rankmodel.Candidate{Family: rankmodel.FamilyRidge, Params: map[string]float64{"alpha": alpha}})
}

func TestTrain(t *testing.T) {
	Convey("Given a linear training set", t, func() {
		ctx := context.Background()
		ds := linearDataset(60)

		Convey("When training over the default grid", func() {
			m, scores, err := rankmodel.Train(ctx, ds)
			So(err, ShouldBeNil)

			Convey("Then every candidate is scored and the best is kept", func() {
				So(len(scores), ShouldEqual, len(rankmodel.DefaultCandidates()))
				best := scores[0].MAE
				for _, s := range scores {
					if s.MAE < best {
						best = s.MAE
					}
				}
				So(m.Info().HoldoutMAE, ShouldEqual, best)
				So(m.Info().Rows, ShouldEqual, 60)
				So(m.Info().Features, ShouldResemble, testFeatures)
			})
		})

		Convey("When training a nearly unregularized ridge model", func() {
			m, _, err := rankmodel.Train(ctx, ds, ridgeOnly(1e-6))
			So(err, ShouldBeNil)

			Convey("Then it recovers the linear relation", func() {
				p := m.Predict(model.FeatureVector{"Chemistry_accuracy": 0.3, "Physics_accuracy": 0.5, "avg_score": 60})
				So(p.PredictedRank, ShouldAlmostEqual, 6000-2500-1200, 2)
				So(p.ModelFamily, ShouldEqual, rankmodel.FamilyRidge)
			})

			Convey("And physics accuracy is reported as an improvement area", func() {
				p := m.Predict(model.FeatureVector{"Chemistry_accuracy": 0.3, "Physics_accuracy": 0.5, "avg_score": 60})
				So(len(p.ImprovementAreas), ShouldBeGreaterThan, 0)
				So(p.ImprovementAreas[0].Topic, ShouldEqual, "Physics")
				So(p.ImprovementAreas[0].CurrentValue, ShouldEqual, 0.5)
				for _, a := range p.ImprovementAreas {
					So(a.Topic, ShouldNotEqual, "Chemistry")
				}
			})
		})

		Convey("When the family exposes no importance", func() {
			m, _, err := rankmodel.Train(ctx, ds, rankmodel.WithCandidates(
				rankmodel.Candidate{Family: rankmodel.FamilyKNN, Params: map[string]float64{"k": 3}},
			))
			So(err, ShouldBeNil)
			p := m.Predict(model.FeatureVector{"Physics_accuracy": 0.5})
			So(p.FeatureImportance, ShouldBeNil)
			So(p.ImprovementAreas, ShouldBeEmpty)
		})

		Convey("When boosting stumps", func() {
			m, _, err := rankmodel.Train(ctx, ds, rankmodel.WithCandidates(
				rankmodel.Candidate{Family: rankmodel.FamilyBoost, Params: map[string]float64{"rounds": 100, "learning_rate": 0.1}},
			))
			So(err, ShouldBeNil)

			Convey("Then importance sums to one", func() {
				var total float64
				for _, v := range m.Importance() {
					total += v
				}
				So(total, ShouldAlmostEqual, 1.0, 1e-9)
			})
		})

		Convey("When there are too few rows", func() {
			_, _, err := rankmodel.Train(ctx, linearDataset(3))
			So(errors.Is(err, rankmodel.ErrInvalidDataset), ShouldBeTrue)
		})

		Convey("When the holdout share would swallow every row", func() {
			m, scores, err := rankmodel.Train(ctx, linearDataset(5), rankmodel.WithHoldoutFraction(0.9))
			So(err, ShouldBeNil)
			So(scores, ShouldHaveLength, len(rankmodel.DefaultCandidates()))
			So(m.Info().Rows, ShouldEqual, 5)
		})

		Convey("When the seed changes the split stays reproducible", func() {
			_, a, err := rankmodel.Train(ctx, ds, rankmodel.WithSeed(9))
			So(err, ShouldBeNil)
			_, b, err := rankmodel.Train(ctx, ds, rankmodel.WithSeed(9))
			So(err, ShouldBeNil)
			So(a, ShouldResemble, b)
		})

		Convey("When the family is unknown", func() {
			_, _, err := rankmodel.Train(ctx, ds, rankmodel.WithCandidates(rankmodel.Candidate{Family: "svm"}))
			So(errors.Is(err, rankmodel.ErrUnknownFamily), ShouldBeTrue)
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, _, err := rankmodel.Train(cctx, ds)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestPredictBounds(t *testing.T) {
	Convey("Given a fitted model", t, func() {
		m, _, err := rankmodel.Train(context.Background(), linearDataset(40))
		So(err, ShouldBeNil)

		Convey("Then any finite vector yields rank >= 1 and bounded confidence", func() {
			rng := rand.New(rand.NewPCG(7, 7))
			for i := 0; i < 200; i++ {
				fv := model.FeatureVector{
					"Chemistry_accuracy": rng.Float64()*20 - 10,
					"Physics_accuracy":   rng.Float64()*20 - 10,
					"avg_score":          rng.Float64()*2000 - 1000,
				}
				p := m.Predict(fv)
				So(p.PredictedRank, ShouldBeGreaterThanOrEqualTo, 1)
				So(p.Confidence, ShouldBeBetweenOrEqual, rankmodel.MinConfidence, rankmodel.MaxConfidence)
			}
		})

		Convey("Then an input at the training mean has full base confidence", func() {
			p := m.Predict(model.FeatureVector{})
			So(p.Confidence, ShouldAlmostEqual, 0.9, 1e-9)
		})
	})

	Convey("Given a model that always predicts a negative rank", t, func() {
		m, _, err := rankmodel.Train(context.Background(), constantDataset(20, -40), ridgeOnly(1))
		So(err, ShouldBeNil)
		So(m.Predict(model.FeatureVector{}).PredictedRank, ShouldEqual, 1)
	})
}

func TestHolder(t *testing.T) {
	Convey("Given an empty holder", t, func() {
		h := rankmodel.NewHolder(nil)

		Convey("Then predicting fails with not fitted", func() {
			_, err := h.Predict(model.FeatureVector{"avg_score": 1})
			So(errors.Is(err, model.ErrNotFitted), ShouldBeTrue)
		})

		Convey("When a model is swapped in", func() {
			m, _, err := rankmodel.Train(context.Background(), constantDataset(20, 200), ridgeOnly(1))
			So(err, ShouldBeNil)
			prev := h.Swap(m)

			Convey("Then readers see the new model", func() {
				So(prev, ShouldBeNil)
				So(h.Load(), ShouldEqual, m)
				p, err := h.Predict(model.FeatureVector{"avg_score": 70})
				So(err, ShouldBeNil)
				So(p.PredictedRank, ShouldEqual, 200)
			})
		})
	})
}

func TestPersistence(t *testing.T) {
	Convey("Given fitted models of every family", t, func() {
		ds := linearDataset(30)
		probe := model.FeatureVector{"Chemistry_accuracy": 0.2, "Physics_accuracy": 0.7, "avg_score": 66}

		for _, c := range []rankmodel.Candidate{
			{Family: rankmodel.FamilyRidge, Params: map[string]float64{"alpha": 1}},
			{Family: rankmodel.FamilyBoost, Params: map[string]float64{"rounds": 20, "learning_rate": 0.1}},
			{Family: rankmodel.FamilyKNN, Params: map[string]float64{"k": 3}},
		} {
			m, _, err := rankmodel.Train(context.Background(), ds, rankmodel.WithCandidates(c))
			So(err, ShouldBeNil)

			Convey("When saving and loading the "+c.Family+" model", func() {
				var buf bytes.Buffer
				So(m.Save(&buf), ShouldBeNil)
				loaded, err := rankmodel.Load(&buf)
				So(err, ShouldBeNil)

				Convey("Then it predicts identically", func() {
					So(loaded.Predict(probe), ShouldResemble, m.Predict(probe))
					So(loaded.Info().Family, ShouldEqual, c.Family)
				})
			})
		}

		Convey("When the snapshot is corrupt", func() {
			_, err := rankmodel.Load(strings.NewReader(`{"family":"ridge","features":["a"],"scaler":{"mean":[],"std":[]}}`))
			So(errors.Is(err, rankmodel.ErrCorruptSnapshot), ShouldBeTrue)
		})

		Convey("When the estimator does not fit the feature list", func() {
			const head = `{"features":["a","b"],"scaler":{"mean":[0,0],"std":[1,1]},`
			for name, body := range map[string]string{
				"knn with k above its rows":  `"family":"knn","estimator":{"k":9,"rows":[[1,2]],"targets":[10]}}`,
				"knn with a short row":       `"family":"knn","estimator":{"k":1,"rows":[[1]],"targets":[10]}}`,
				"knn with missing targets":   `"family":"knn","estimator":{"k":1,"rows":[[1,2]],"targets":[]}}`,
				"ridge with one coefficient": `"family":"ridge","estimator":{"intercept":3,"coef":[1]}}`,
				"boost splitting column 5":   `"family":"boost","estimator":{"base":1,"gain":[0.5,0.5],"stumps":[{"feature":5}]}}`,
				"boost with one gain":        `"family":"boost","estimator":{"base":1,"gain":[1],"stumps":[]}}`,
			} {
				_, err := rankmodel.Load(strings.NewReader(head + body))
				So(errors.Is(err, rankmodel.ErrCorruptSnapshot), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, name[:strings.IndexByte(name, ' ')])
			}
		})
	})
}

func TestDatasetCSV(t *testing.T) {
	Convey("Given a training CSV", t, func() {
		Convey("When it is well formed", func() {
			ds, err := rankmodel.ReadCSV(strings.NewReader("avg_score,rank,consistency\n80,1200,0.9\n70,2400,0.8\n"))
			So(err, ShouldBeNil)
			So(ds.Features, ShouldResemble, []string{"avg_score", "consistency"})
			So(ds.Rows, ShouldResemble, [][]float64{{80, 0.9}, {70, 0.8}})
			So(ds.Ranks, ShouldResemble, []float64{1200, 2400})

			Convey("Then writing it back yields a readable file", func() {
				var buf bytes.Buffer
				So(ds.WriteCSV(&buf), ShouldBeNil)
				again, err := rankmodel.ReadCSV(&buf)
				So(err, ShouldBeNil)
				So(again.Rows, ShouldResemble, ds.Rows)
			})
		})

		Convey("When the rank column is missing", func() {
			_, err := rankmodel.ReadCSV(strings.NewReader("avg_score\n80\n"))
			So(errors.Is(err, rankmodel.ErrInvalidDataset), ShouldBeTrue)
		})

		Convey("When a value is not numeric", func() {
			_, err := rankmodel.ReadCSV(strings.NewReader("avg_score,rank\nhigh,10\n"))
			So(errors.Is(err, rankmodel.ErrInvalidDataset), ShouldBeTrue)
		})
	})

	Convey("Given feature vectors with different topics", t, func() {
		ds, err := rankmodel.FromVectors([]model.FeatureVector{
			{"Physics_accuracy": 1, "avg_score": 80},
			{"Biology_accuracy": 0.5, "avg_score": 70},
		}, []float64{100, 200})
		So(err, ShouldBeNil)
		So(ds.Features, ShouldResemble, []string{"Biology_accuracy", "Physics_accuracy", "avg_score"})
		So(ds.Rows[0], ShouldResemble, []float64{0, 1, 80})
	})
}

func TestScoreRankCurve(t *testing.T) {
	Convey("Given prior-year results on an exact quadratic", t, func() {
		var results []rankmodel.ExamResult
		for s := 300.0; s <= 720; s += 20 {
			results = append(results, rankmodel.ExamResult{Year: 2024, Score: s, Rank: int(0.01*s*s - 20*s + 10000)})
		}
		c, err := rankmodel.FitScoreRank(results)
		So(err, ShouldBeNil)

		Convey("Then evaluating the curve reproduces the ranks", func() {
			So(c.Rank(500), ShouldAlmostEqual, 0.01*500*500-20*500+10000, 1)
		})

		Convey("Then scores past the curve clamp to rank one", func() {
			So(c.Rank(1000), ShouldBeGreaterThanOrEqualTo, 1)
		})
	})

	Convey("Given too few results", t, func() {
		_, err := rankmodel.FitScoreRank([]rankmodel.ExamResult{{Score: 1, Rank: 1}})
		So(errors.Is(err, model.ErrInsufficientData), ShouldBeTrue)
	})
}
