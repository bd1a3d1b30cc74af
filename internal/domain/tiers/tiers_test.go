package tiers_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/cuerank/internal/domain/errs"
	"github.com/okian/cuerank/internal/domain/tiers"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaultTable(t *testing.T) {
	Convey("Given the default table", t, func() {
		tbl := tiers.Default()

		Convey("Then it validates", func() {
			So(tbl.Validate(), ShouldBeNil)
			So(tbl.Version, ShouldEqual, tiers.DefaultVersion)
		})

		Convey("Then every wager in range falls in exactly one band", func() {
			for amount := tbl.WagerMin; amount <= tbl.WagerMax; amount++ {
				hits := 0
				for _, w := range tbl.Wagers {
					if w.Contains(amount) {
						hits++
					}
				}
				So(hits, ShouldEqual, 1)
			}
		})

		Convey("Then the grand tier awards 1200 for a win", func() {
			g, err := tbl.TournamentTier("g")
			So(err, ShouldBeNil)
			So(g.Code, ShouldEqual, "G")
			So(g.Points.First, ShouldEqual, 1200)
		})

		Convey("Then unknown tier codes are not found", func() {
			_, err := tbl.TournamentTier("Z")
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then entry fees map to tiers", func() {
			tt, err := tbl.TierForEntryFee(250)
			So(err, ShouldBeNil)
			So(tt.Code, ShouldEqual, "H")

			tt, err = tbl.TierForEntryFee(0)
			So(err, ShouldBeNil)
			So(tt.Code, ShouldEqual, "K")

			_, err = tbl.TierForEntryFee(5000)
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then Default returns an independent copy", func() {
			tbl.Wagers[0].RaceTo = 99
			So(tiers.Default().Wagers[0].RaceTo, ShouldEqual, 9)
		})
	})
}

func TestEligible(t *testing.T) {
	Convey("Given rank-bounded tiers", t, func() {
		tbl := tiers.Default()
		k, _ := tbl.TournamentTier("K")
		g, _ := tbl.TournamentTier("G")
		lo, hi := 10, 20
		bounded := tiers.TournamentTier{Code: "X", MinRank: &lo, MaxRank: &hi}

		So(k.Eligible(150), ShouldBeTrue)
		So(k.Eligible(50), ShouldBeFalse)
		So(k.Eligible(0), ShouldBeTrue)
		So(g.Eligible(1), ShouldBeTrue)
		So(bounded.Eligible(15), ShouldBeTrue)
		So(bounded.Eligible(21), ShouldBeFalse)
		So(bounded.Eligible(0), ShouldBeFalse)
	})
}

func TestValidate(t *testing.T) {
	Convey("Given a broken table", t, func() {
		tbl := tiers.Default()

		Convey("When two bands overlap", func() {
			tbl.Wagers[1].MaxBet = 560
			So(errors.Is(tbl.Validate(), errs.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When two bands leave a gap", func() {
			tbl.Wagers[1].MaxBet = 540
			So(errors.Is(tbl.Validate(), errs.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When a band is inverted", func() {
			tbl.Wagers[0].MinBet, tbl.Wagers[0].MaxBet = 650, 551
			So(errors.Is(tbl.Validate(), errs.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When coverage stops short of the global limits", func() {
			tbl.WagerMax = 700
			So(errors.Is(tbl.Validate(), errs.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When bands are not descending", func() {
			tbl.Wagers[0], tbl.Wagers[1] = tbl.Wagers[1], tbl.Wagers[0]
			So(errors.Is(tbl.Validate(), errs.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When race length is zero", func() {
			tbl.Wagers[3].RaceTo = 0
			So(errors.Is(tbl.Validate(), errs.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When a handicap is negative", func() {
			tbl.Wagers[3].HandicapHalfRank = -1
			So(errors.Is(tbl.Validate(), errs.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When a point table increases with placement", func() {
			tbl.Tournaments[0].Points.Top8 = 650
			So(errors.Is(tbl.Validate(), errs.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When tier codes repeat", func() {
			tbl.Tournaments[1].Code = "G"
			So(errors.Is(tbl.Validate(), errs.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When a tier code is empty", func() {
			tbl.Tournaments[1].Code = ""
			So(errors.Is(tbl.Validate(), errs.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When entry fee bands overlap", func() {
			tbl.Tournaments[1].EntryFeeMax = 600
			So(errors.Is(tbl.Validate(), errs.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When rank bounds are inverted", func() {
			lo, hi := 50, 10
			tbl.Tournaments[2].MinRank, tbl.Tournaments[2].MaxRank = &lo, &hi
			So(errors.Is(tbl.Validate(), errs.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When the version is missing", func() {
			tbl.Version = ""
			So(errors.Is(tbl.Validate(), errs.ErrConfiguration), ShouldBeTrue)
		})
	})
}

const overrideYAML = `
version: "club-night-1"
wager_min: 10
wager_max: 60
wagers:
  - {min_bet: 31, max_bet: 60, race_to: 5, handicap_full_rank: 2, handicap_half_rank: 1, description: "long"}
  - {min_bet: 10, max_bet: 30, race_to: 3, handicap_full_rank: 1, handicap_half_rank: 0, description: "short"}
tournaments:
  - code: "A"
    name: "Open"
    entry_fee_min: 0
    entry_fee_max: 20
    points: {first: 100, second: 70, third: 50, fourth: 40, top8: 20, participation: 5}
  - code: "B"
    name: "Beginners"
    entry_fee_min: 21
    entry_fee_max: 40
    min_rank: 30
    points: {first: 50, second: 35, third: 25, fourth: 20, top8: 10, participation: 2}
`

func TestLoad(t *testing.T) {
	Convey("Given a YAML override", t, func() {
		dir := t.TempDir()

		Convey("When the file is valid", func() {
			path := filepath.Join(dir, "tiers.yaml")
			So(os.WriteFile(path, []byte(overrideYAML), 0o600), ShouldBeNil)

			tbl, err := tiers.Load(path)

			Convey("Then the table is loaded and usable", func() {
				So(err, ShouldBeNil)
				So(tbl.Version, ShouldEqual, "club-night-1")
				So(tbl.Wagers, ShouldHaveLength, 2)
				So(tbl.Wagers[1].RaceTo, ShouldEqual, 3)
				b, err := tbl.TournamentTier("B")
				So(err, ShouldBeNil)
				So(b.MinRank, ShouldNotBeNil)
				So(*b.MinRank, ShouldEqual, 30)
				So(b.MaxRank, ShouldBeNil)
			})
		})

		Convey("When the bands leave a gap", func() {
			path := filepath.Join(dir, "gap.yaml")
			broken := []byte(`
version: "x"
wager_min: 10
wager_max: 60
wagers:
  - {min_bet: 40, max_bet: 60, race_to: 5}
  - {min_bet: 10, max_bet: 30, race_to: 3}
tournaments:
  - {code: "A", points: {first: 1}}
`)
			So(os.WriteFile(path, broken, 0o600), ShouldBeNil)

			_, err := tiers.Load(path)
			So(errors.Is(err, errs.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When the file does not exist", func() {
			_, err := tiers.Load(filepath.Join(dir, "missing.yaml"))
			So(errors.Is(err, errs.ErrConfiguration), ShouldBeTrue)
		})
	})
}
