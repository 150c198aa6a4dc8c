package chart

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"gonum.org/v1/plot/vg"
)

func TestTopicPerformance(t *testing.T) {
	Convey("Given per-topic accuracy", t, func() {
		perf := map[string]float64{"Physics": 80, "Chemistry": 45, "Biology": 60}

		Convey("A PNG bar chart is rendered", func() {
			var buf bytes.Buffer
			So(TopicPerformance(&buf, perf, WithThreshold(60)), ShouldBeNil)

			cfg, err := png.DecodeConfig(bytes.NewReader(buf.Bytes()))
			So(err, ShouldBeNil)
			So(cfg.Width, ShouldBeGreaterThan, 0)
			So(cfg.Height, ShouldBeLessThan, cfg.Width)
		})

		Convey("SVG output is supported", func() {
			var buf bytes.Buffer
			So(TopicPerformance(&buf, perf, WithFormat(FormatSVG), WithSize(4*vg.Inch, 3*vg.Inch)), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "<svg")
		})

		Convey("Unknown formats are rejected", func() {
			err := TopicPerformance(&bytes.Buffer{}, perf, WithFormat("gif"))
			So(errors.Is(err, ErrInvalidFormat), ShouldBeTrue)
		})

		Convey("No topics is an error", func() {
			So(errors.Is(TopicPerformance(&bytes.Buffer{}, nil), ErrNoData), ShouldBeTrue)
		})
	})
}

func TestScoreHistory(t *testing.T) {
	Convey("Given a score history", t, func() {
		Convey("A PNG line chart is rendered", func() {
			var buf bytes.Buffer
			So(ScoreHistory(&buf, []float64{55, 62, 70, 68}, WithTitle("Asha")), ShouldBeNil)
			_, err := png.Decode(bytes.NewReader(buf.Bytes()))
			So(err, ShouldBeNil)
		})

		Convey("A single attempt still renders", func() {
			var buf bytes.Buffer
			So(ScoreHistory(&buf, []float64{40}), ShouldBeNil)
			So(buf.Len(), ShouldBeGreaterThan, 0)
		})

		Convey("An empty history is an error", func() {
			So(errors.Is(ScoreHistory(&bytes.Buffer{}, nil), ErrNoData), ShouldBeTrue)
		})
	})
}
