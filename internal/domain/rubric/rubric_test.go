package rubric_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/peereval/internal/domain/model"
	"github.com/okian/peereval/internal/domain/rubric"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	alice = model.Participant{ID: "100", Name: "Alice", Group: "7", Email: "alice@example.com"}
	bob   = model.Participant{ID: "200", Name: "Bob", Group: "7", Email: "bob@example.com"}
	carol = model.Participant{ID: "300", Name: "Carol", Group: "7", Email: "carol@example.com"}
	now   = time.Date(2026, 4, 2, 14, 30, 0, 0, time.UTC)
)

func TestAverage(t *testing.T) {
	Convey("Given score rows", t, func() {
		So(rubric.Average([]int{100, 100, 100, 100, 100}), ShouldEqual, 100.0)
		So(rubric.Average([]int{0, 100, 100, 100, 100}), ShouldEqual, 80.0)
		So(rubric.Average([]int{85, 90, 95, 80, 75}), ShouldEqual, 85.0)
		So(rubric.Average(nil), ShouldEqual, 0.0)
	})

	Convey("Given an average with a long fraction", t, func() {
		avg := rubric.Average([]int{100, 95, 95})

		Convey("Then the stored value is unrounded and display rounds to one decimal", func() {
			So(avg, ShouldAlmostEqual, 96.6666666, 0.0001)
			So(rubric.Round1(avg), ShouldEqual, 96.7)
		})
	})
}

func TestClamp(t *testing.T) {
	Convey("Given out of range values", t, func() {
		So(rubric.Clamp(-5), ShouldEqual, 0)
		So(rubric.Clamp(105), ShouldEqual, 100)
		So(rubric.Clamp(55), ShouldEqual, 55)
	})
}

func TestDetails(t *testing.T) {
	Convey("Given a score row", t, func() {
		s := rubric.FormatDetails([]int{90, 85, 100, 0, 5})

		Convey("Then it renders as a bracketed list", func() {
			So(s, ShouldEqual, "[90, 85, 100, 0, 5]")
		})

		Convey("And it parses back", func() {
			v, err := rubric.ParseDetails(s)
			So(err, ShouldBeNil)
			So(v, ShouldResemble, []int{90, 85, 100, 0, 5})
		})
	})

	Convey("Given malformed details", t, func() {
		_, err := rubric.ParseDetails("90, 90")
		So(err, ShouldNotBeNil)
		_, err = rubric.ParseDetails("[90, x]")
		So(err, ShouldNotBeNil)
		v, err := rubric.ParseDetails("[]")
		So(err, ShouldBeNil)
		So(v, ShouldBeEmpty)
	})
}

func TestCollector_Collect(t *testing.T) {
	Convey("Given a collector with the default rubric", t, func() {
		c := rubric.NewCollector()
		members := []model.Participant{alice, bob, carol}

		So(c.Criteria(), ShouldResemble, rubric.DefaultCriteria)
		So(c.Defaults(), ShouldResemble, []int{100, 100, 100, 100, 100})

		Convey("When Alice scores her group", func() {
			records, err := c.Collect(alice, members, map[string]rubric.Input{
				alice.ID: {Scores: []int{90, 90, 90, 90, 90}, Comment: "  did my part "},
				bob.ID:   {Scores: []int{100, 100, 100, 100, 100}},
				carol.ID: {Scores: []int{80, 80, 80, 80, 80}, Comment: "ok"},
			}, now)

			Convey("Then one record per member is produced in roster order", func() {
				So(err, ShouldBeNil)
				So(records, ShouldHaveLength, 3)
				So(records[0].PeerID, ShouldEqual, alice.ID)
				So(records[1].PeerID, ShouldEqual, bob.ID)
				So(records[2].PeerID, ShouldEqual, carol.ID)
			})

			Convey("And overall scores are the means", func() {
				So(records[0].OverallScore, ShouldEqual, 90.0)
				So(records[1].OverallScore, ShouldEqual, 100.0)
				So(records[2].OverallScore, ShouldEqual, 80.0)
			})

			Convey("And each record carries the evaluator identity and timestamp", func() {
				for _, r := range records {
					So(r.EvaluatorID, ShouldEqual, alice.ID)
					So(r.EvaluatorName, ShouldEqual, alice.Name)
					So(r.Group, ShouldEqual, "7")
					So(r.Timestamp, ShouldEqual, now)
				}
				So(records[0].Details, ShouldEqual, "[90, 90, 90, 90, 90]")
				So(records[0].Comment, ShouldEqual, "did my part")
				So(records[1].Comment, ShouldEqual, "")
			})
		})

		Convey("When a member has no input", func() {
			records, err := c.Collect(alice, members, map[string]rubric.Input{
				bob.ID: {Scores: []int{0, 100, 100, 100, 100}},
			}, now)

			Convey("Then defaults are used for that member", func() {
				So(err, ShouldBeNil)
				So(records[0].OverallScore, ShouldEqual, 100.0)
				So(records[1].OverallScore, ShouldEqual, 80.0)
				So(records[2].Details, ShouldEqual, "[100, 100, 100, 100, 100]")
			})
		})

		Convey("When scores are out of range", func() {
			records, err := c.Collect(alice, members, map[string]rubric.Input{
				bob.ID: {Scores: []int{-20, 150, 100, 100, 100}},
			}, now)

			Convey("Then they are clamped rather than rejected", func() {
				So(err, ShouldBeNil)
				So(records[1].Details, ShouldEqual, "[0, 100, 100, 100, 100]")
				So(records[1].OverallScore, ShouldEqual, 80.0)
			})
		})

		Convey("When the score row has the wrong length", func() {
			_, err := c.Collect(alice, members, map[string]rubric.Input{
				bob.ID: {Scores: []int{100, 100}},
			}, now)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, rubric.ErrScoreCount), ShouldBeTrue)
			})
		})

		Convey("When scores name someone outside the group", func() {
			_, err := c.Collect(alice, members, map[string]rubric.Input{
				"999": {Scores: []int{0, 0, 0, 0, 0}},
			}, now)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, rubric.ErrUnknownMember), ShouldBeTrue)
			})
		})

		Convey("When the group is empty", func() {
			_, err := c.Collect(alice, nil, nil, now)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, rubric.ErrEmptyGroup), ShouldBeTrue)
			})
		})
	})
}

func TestCollector_Warnings(t *testing.T) {
	Convey("Given a collector with a custom rubric", t, func() {
		c := rubric.NewCollector(
			rubric.WithCriteria([]string{"Attendance", "Quality"}),
			rubric.WithLowScoreThreshold(70),
		)
		So(c.LowScoreThreshold(), ShouldEqual, 70.0)

		records, err := c.Collect(alice, []model.Participant{alice, bob}, map[string]rubric.Input{
			bob.ID: {Scores: []int{50, 85}},
		}, now)
		So(err, ShouldBeNil)

		Convey("Then low criteria and low averages are flagged", func() {
			w := c.Warnings(records)
			So(w, ShouldResemble, []rubric.Warning{
				{PeerID: bob.ID, Criterion: "Attendance", Value: 50},
				{PeerID: bob.ID, Value: 67.5},
			})
		})
	})

	Convey("Given a record written under the default rubric", t, func() {
		c := rubric.NewCollector()
		records, err := c.Collect(alice, []model.Participant{alice}, map[string]rubric.Input{
			alice.ID: {Scores: []int{90, 85, 100, 0, 5}},
		}, now)
		So(err, ShouldBeNil)

		Convey("Then the breakdown names each criterion", func() {
			scores, err := c.Breakdown(records[0])
			So(err, ShouldBeNil)
			So(scores, ShouldHaveLength, 5)
			So(scores[0], ShouldResemble, model.CriterionScore{Criterion: "Attendance at Meetings", Value: 90})
			So(scores[4], ShouldResemble, model.CriterionScore{Criterion: "Attitudes & Commitment", Value: 5})
			So(rubric.Values(scores), ShouldResemble, []int{90, 85, 100, 0, 5})
		})

		Convey("When read back by a collector with a shorter rubric", func() {
			short := rubric.NewCollector(rubric.WithCriteria([]string{"Attendance", "Quality"}))
			scores, err := short.Breakdown(records[0])

			Convey("Then values beyond the rubric are dropped", func() {
				So(err, ShouldBeNil)
				So(scores, ShouldResemble, []model.CriterionScore{
					{Criterion: "Attendance", Value: 90},
					{Criterion: "Quality", Value: 85},
				})
			})
		})

		Convey("When the details are malformed", func() {
			_, err := c.Breakdown(model.EvaluationRecord{Details: "90"})
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given ignored options", t, func() {
		c := rubric.NewCollector(rubric.WithCriteria(nil), rubric.WithLowScoreThreshold(0))

		Convey("Then defaults are kept", func() {
			So(c.Criteria(), ShouldHaveLength, 5)
			So(c.LowScoreThreshold(), ShouldEqual, rubric.DefaultLowScore)
		})
	})
}
