package service_test

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/cuerank/internal/adapters/repository"
	service "github.com/okian/cuerank/internal/app"
	"github.com/okian/cuerank/internal/domain/errs"
	"github.com/okian/cuerank/internal/domain/model"
	"github.com/okian/cuerank/internal/domain/placement"
	"github.com/okian/cuerank/internal/domain/recommend"
	"github.com/okian/cuerank/internal/domain/tiers"
	"github.com/okian/cuerank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

var finishedAt = time.Date(2026, 5, 2, 20, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return finishedAt }

// flakyStore fails ReplaceStandings while failing is set.
type flakyStore struct {
	*repository.MemoryStore
	failing atomic.Bool
}

func (f *flakyStore) ReplaceStandings(ctx context.Context, scope string, rows []model.Standing) error {
	if f.failing.Load() {
		return errs.Newf("flaky.replace_standings", errs.ErrUnavailable, "disk on fire")
	}
	return f.MemoryStore.ReplaceStandings(ctx, scope, rows)
}

// slowFailingAppendStore holds AppendResults until release is closed and
// then fails it.
type slowFailingAppendStore struct {
	*repository.MemoryStore
	entered chan struct{}
	release chan struct{}
	failing atomic.Bool
}

func (f *slowFailingAppendStore) AppendResults(ctx context.Context, id string, results []model.MatchResult) error {
	if !f.failing.Load() {
		return f.MemoryStore.AppendResults(ctx, id, results)
	}
	f.entered <- struct{}{}
	<-f.release
	return errs.Newf("slow.append_results", errs.ErrUnavailable, "write timed out")
}

func newService(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithWorkerCount(2),
		service.WithQueueSize(64),
		service.WithClock(fixedClock),
		service.WithRetry(0, time.Millisecond),
	}
	svc, err := service.New(append(base, opts...)...)
	So(err, ShouldBeNil)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func firstTournament() placement.Tournament {
	return placement.Tournament{
		ID: "t1", TierCode: "H", ClubID: "c1", SeasonID: "s1",
		Finishers: []placement.Finisher{
			{PlayerID: "amy", Placement: 1, MatchesPlayed: 4, MatchesWon: 4},
			{PlayerID: "bob", Placement: 2, MatchesPlayed: 4, MatchesWon: 3, MatchesLost: 1},
			{PlayerID: "cal", Placement: 3, MatchesPlayed: 3, MatchesWon: 1, MatchesLost: 2},
			{PlayerID: "dan", Placement: 4, MatchesPlayed: 3, MatchesWon: 1, MatchesLost: 2},
		},
	}
}

func secondTournament() placement.Tournament {
	return placement.Tournament{
		ID: "t2", TierCode: "I", ClubID: "c1",
		Finishers: []placement.Finisher{
			{PlayerID: "bob", Placement: 1, MatchesPlayed: 3, MatchesWon: 3},
			{PlayerID: "cal", Placement: 2, MatchesPlayed: 3, MatchesWon: 2, MatchesLost: 1},
		},
	}
}

func TestService_New(t *testing.T) {
	Convey("Given the default options", t, func() {
		svc, err := service.New()

		Convey("Then the service uses the built-in reference data", func() {
			So(err, ShouldBeNil)
			So(svc.Tiers().Version, ShouldEqual, tiers.DefaultVersion)
			So(svc.Weights().Version, ShouldEqual, recommend.WeightsVersion)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given a broken tier table", t, func() {
		table := tiers.Default()
		table.Wagers[0].RaceTo = 0
		_, err := service.New(service.WithTierTable(table))

		Convey("Then construction fails with a configuration error", func() {
			So(errors.Is(err, errs.ErrConfiguration), ShouldBeTrue)
		})
	})

	Convey("Given weights where ownership no longer dominates", t, func() {
		w := recommend.DefaultWeights()
		w.OwnershipBonus = 10
		_, err := service.New(service.WithWeights(w))

		Convey("Then construction fails with a configuration error", func() {
			So(errors.Is(err, errs.ErrConfiguration), ShouldBeTrue)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc, err := service.New()
		So(err, ShouldBeNil)

		Convey("Then ranking reads are unavailable", func() {
			_, err := svc.Standings(context.Background(), model.ScopeGlobal, 10)
			So(errors.Is(err, errs.ErrUnavailable), ShouldBeTrue)
		})
	})

	Convey("Given a started service", t, func() {
		svc := newService()
		defer svc.Stop()

		Convey("Then stats report it running", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["queueLength"], ShouldEqual, 0)
		})

		Convey("Then Start and Stop are idempotent", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			svc.Stop()
			svc.Stop()
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})
}

func TestService_ChallengesAndPoints(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newService()
		defer svc.Stop()
		ctx := context.Background()

		Convey("When a wager inside the limits is resolved", func() {
			cfg, err := svc.ResolveChallenge(ctx, 300)
			So(err, ShouldBeNil)
			So(cfg.RaceTo, ShouldEqual, 6)
			So(cfg.HandicapFullRank, ShouldEqual, 2)
			So(cfg.HandicapHalfRank, ShouldEqual, 1)
			So(cfg.TableVersion, ShouldEqual, tiers.DefaultVersion)
		})

		Convey("When a wager outside the limits is resolved", func() {
			_, err := svc.ResolveChallenge(ctx, 99)
			So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
			_, err = svc.ResolveChallenge(ctx, 651)
			So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("When points are allocated", func() {
			pts, err := svc.AllocatePoints(ctx, "H", 1, 16)
			So(err, ShouldBeNil)
			So(pts, ShouldEqual, 800)

			pts, err = svc.AllocatePoints(ctx, "h", 12, 16)
			So(err, ShouldBeNil)
			So(pts, ShouldEqual, 60)

			_, err = svc.AllocatePoints(ctx, "Z", 1, 16)
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
			_, err = svc.AllocatePoints(ctx, "H", 17, 16)
			So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
		})
	})
}

func TestService_FinalizeAndStandings(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newService()
		defer svc.Stop()
		ctx := context.Background()
		club := model.ClubScope("c1")

		Convey("When a tournament is finalized", func() {
			res, err := svc.FinalizeTournament(ctx, firstTournament())
			So(err, ShouldBeNil)
			So(res.Duplicate, ShouldBeFalse)
			So(res.Scopes, ShouldResemble, []string{club, model.SeasonScope("s1"), model.ScopeGlobal})
			So(res.Results, ShouldHaveLength, 12)
			So(res.Results[0].RecordedAt, ShouldEqual, finishedAt)

			So(eventually(func() bool {
				rows, err := svc.Standings(ctx, club, 10)
				return err == nil && len(rows) == 4
			}), ShouldBeTrue)

			Convey("Then every touched scope is ranked", func() {
				for _, scope := range res.Scopes {
					So(eventually(func() bool {
						row, err := svc.Standing(ctx, scope, "amy")
						return err == nil && row.CurrentRank == 1 && row.TotalPoints == 800
					}), ShouldBeTrue)
				}
			})

			Convey("Then finalizing it again changes nothing", func() {
				again, err := svc.FinalizeTournament(ctx, firstTournament())
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeTrue)
				So(again.Results, ShouldBeEmpty)
			})

			Convey("Then a second tournament moves the ranks", func() {
				_, err := svc.FinalizeTournament(ctx, secondTournament())
				So(err, ShouldBeNil)
				So(eventually(func() bool {
					row, err := svc.Standing(ctx, club, "bob")
					return err == nil && row.CurrentRank == 1
				}), ShouldBeTrue)

				rows, err := svc.Standings(ctx, club, 10)
				So(err, ShouldBeNil)
				got := make(map[string]model.Standing, len(rows))
				for _, r := range rows {
					got[r.PlayerID] = r
				}
				So(got["bob"].TotalPoints, ShouldEqual, 1100)
				So(got["bob"].RankChange, ShouldEqual, 1)
				So(got["cal"].CurrentRank, ShouldEqual, 2)
				So(got["amy"].CurrentRank, ShouldEqual, 3)
				So(got["amy"].RankChange, ShouldEqual, -2)
				So(got["dan"].RankChange, ShouldEqual, 0)
				So(got["bob"].TournamentsPlayed, ShouldEqual, 2)
				So(got["bob"].BestFinish, ShouldEqual, 1)

				season, err := svc.Standing(ctx, model.SeasonScope("s1"), "amy")
				So(err, ShouldBeNil)
				So(season.CurrentRank, ShouldEqual, 1)
			})

			Convey("Then the limit is applied", func() {
				rows, err := svc.Standings(ctx, club, 2)
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				_, err = svc.Standings(ctx, club, 0)
				So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
			})
		})

		Convey("When the tournament is malformed", func() {
			bad := firstTournament()
			bad.TierCode = "Q"
			_, err := svc.FinalizeTournament(ctx, bad)
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)

			Convey("Then it can be resubmitted once fixed", func() {
				res, err := svc.FinalizeTournament(ctx, firstTournament())
				So(err, ShouldBeNil)
				So(res.Duplicate, ShouldBeFalse)
			})
		})

		Convey("When a scope is malformed", func() {
			_, err := svc.Standings(ctx, "league:x", 10)
			So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
			So(errors.Is(svc.RecomputeStandings(ctx, "club:"), errs.ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("When a player is looked up in an empty scope", func() {
			_, err := svc.Standing(ctx, model.ScopeGlobal, "nobody")
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_FailedPublishKeepsSnapshot(t *testing.T) {
	Convey("Given a store whose writes start failing", t, func() {
		ctx := context.Background()
		store := &flakyStore{MemoryStore: repository.NewMemoryStore(ctx)}
		svc := newService(service.WithStore(store))
		defer svc.Stop()
		club := model.ClubScope("c1")

		_, err := svc.FinalizeTournament(ctx, firstTournament())
		So(err, ShouldBeNil)
		So(eventually(func() bool {
			rows, err := svc.Standings(ctx, club, 10)
			return err == nil && len(rows) == 4
		}), ShouldBeTrue)

		store.failing.Store(true)
		_, err = svc.FinalizeTournament(ctx, secondTournament())
		So(err, ShouldBeNil)

		Convey("Then the recompute reports a retryable error", func() {
			err := svc.RecomputeStandings(ctx, club)
			So(errs.IsRetryable(err), ShouldBeTrue)
		})

		Convey("Then readers still see the last good snapshot", func() {
			_ = svc.RecomputeStandings(ctx, club)
			amy, err := svc.Standing(ctx, club, "amy")
			So(err, ShouldBeNil)
			So(amy.CurrentRank, ShouldEqual, 1)
			So(amy.TotalPoints, ShouldEqual, 800)
		})

		Convey("Then the next recompute catches up once writes recover", func() {
			store.failing.Store(false)
			So(svc.RecomputeStandings(ctx, club), ShouldBeNil)
			bob, err := svc.Standing(ctx, club, "bob")
			So(err, ShouldBeNil)
			So(bob.CurrentRank, ShouldEqual, 1)
		})
	})
}

func TestService_VerifyPlayer(t *testing.T) {
	Convey("Given a ranked club", t, func() {
		svc := newService()
		defer svc.Stop()
		ctx := context.Background()
		club := model.ClubScope("c1")

		_, err := svc.FinalizeTournament(ctx, firstTournament())
		So(err, ShouldBeNil)
		So(eventually(func() bool {
			rows, err := svc.Standings(ctx, club, 10)
			return err == nil && len(rows) == 4
		}), ShouldBeTrue)

		Convey("When a new player is verified", func() {
			row, err := svc.VerifyPlayer(ctx, club, "eve")
			So(err, ShouldBeNil)

			Convey("Then they enter with a zero baseline at the bottom", func() {
				So(row.TotalPoints, ShouldEqual, 0)
				So(row.CurrentRank, ShouldEqual, 5)
				So(row.VerifiedAt, ShouldNotBeNil)
				So(row.VerifiedAt.Equal(finishedAt), ShouldBeTrue)
			})

			Convey("Then a recompute keeps them", func() {
				So(svc.RecomputeStandings(ctx, club), ShouldBeNil)
				eve, err := svc.Standing(ctx, club, "eve")
				So(err, ShouldBeNil)
				So(eve.CurrentRank, ShouldEqual, 5)
				So(eve.VerifiedAt, ShouldNotBeNil)
			})
		})

		Convey("When the player id is empty", func() {
			_, err := svc.VerifyPlayer(ctx, club, " ")
			So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
		})
	})
}

func TestService_LookupTier(t *testing.T) {
	Convey("Given a player ranked first globally", t, func() {
		svc := newService()
		defer svc.Stop()
		ctx := context.Background()

		_, err := svc.FinalizeTournament(ctx, firstTournament())
		So(err, ShouldBeNil)
		So(eventually(func() bool {
			row, err := svc.Standing(ctx, model.ScopeGlobal, "amy")
			return err == nil && row.CurrentRank == 1
		}), ShouldBeTrue)

		Convey("Then a fee maps to its tier", func() {
			res, err := svc.LookupTier(ctx, 300, "")
			So(err, ShouldBeNil)
			So(res.Tier.Code, ShouldEqual, "H")
			So(res.Eligible, ShouldBeNil)
		})

		Convey("Then top players are kept out of lower tiers", func() {
			res, err := svc.LookupTier(ctx, 100, "amy")
			So(err, ShouldBeNil)
			So(res.Tier.Code, ShouldEqual, "I")
			So(res.GlobalRank, ShouldEqual, 1)
			So(*res.Eligible, ShouldBeFalse)
		})

		Convey("Then unranked players may enter", func() {
			res, err := svc.LookupTier(ctx, 100, "newcomer")
			So(err, ShouldBeNil)
			So(*res.Eligible, ShouldBeTrue)
		})

		Convey("Then a fee outside every band is not found", func() {
			_, err := svc.LookupTier(ctx, 5000, "")
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_Recommendations(t *testing.T) {
	Convey("Given candidate clubs", t, func() {
		svc := newService()
		defer svc.Stop()
		ctx := context.Background()

		user := &model.GeoPoint{Latitude: 52.52, Longitude: 13.405}
		rating := 4.5
		candidates := []recommend.Venue{
			{ID: "partner", MonthlyPayment: decimal.NewFromInt(2000), AvailableTables: 10, AverageRating: &rating, Location: user},
			{ID: "owned", IsPlatformOwned: true},
			{ID: "home", MonthlyPayment: decimal.NewFromInt(5000)},
		}

		Convey("When clubs are recommended", func() {
			out, err := svc.RecommendClubs(ctx, service.ClubRecommendationRequest{
				User:       user,
				Candidates: candidates,
				History:    []recommend.Interaction{{TargetID: "home", Kind: recommend.InteractionMember}},
			})
			So(err, ShouldBeNil)

			Convey("Then owned clubs lead and joined clubs are left out", func() {
				So(out, ShouldHaveLength, 2)
				So(out[0].ID, ShouldEqual, "owned")
				So(out[0].PriorityScore, ShouldEqual, 1000)
				So(out[1].ID, ShouldEqual, "partner")
			})
		})

		Convey("When a limit is given", func() {
			out, err := svc.RecommendClubs(ctx, service.ClubRecommendationRequest{Candidates: candidates, Limit: 1})
			So(err, ShouldBeNil)
			So(out, ShouldHaveLength, 1)
		})

		Convey("When a candidate is malformed", func() {
			bad := []recommend.Venue{{ID: "x", AvailableTables: -1}}
			_, err := svc.RecommendClubs(ctx, service.ClubRecommendationRequest{Candidates: bad})
			So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("When tournaments are recommended", func() {
			opens := finishedAt.Add(48 * time.Hour)
			out, err := svc.RecommendTournaments(ctx, service.TournamentRecommendationRequest{
				Candidates: []recommend.Tournament{
					{ID: "cup", Venue: recommend.Venue{ID: "v1"}, PrizePool: decimal.NewFromInt(1000), CurrentParticipants: 8, MaxParticipants: 16, RegistrationOpensAt: &opens},
					{ID: "open", Venue: recommend.Venue{ID: "v2"}},
					{ID: "mine", Venue: recommend.Venue{ID: "v3", IsPlatformOwned: true}},
				},
				History: []recommend.Interaction{{TargetID: "mine", Kind: recommend.InteractionRegistered}},
			})
			So(err, ShouldBeNil)
			So(out, ShouldHaveLength, 2)
			So(out[0].ID, ShouldEqual, "cup")
			So(out[0].PriorityScore, ShouldEqual, 180)
			So(out[1].PriorityScore, ShouldEqual, 0)
		})
	})
}

func TestService_ConcurrentFinalizeAfterFailedWrite(t *testing.T) {
	Convey("Given a store whose first result write stalls and fails", t, func() {
		ctx := context.Background()
		store := &slowFailingAppendStore{
			MemoryStore: repository.NewMemoryStore(ctx),
			entered:     make(chan struct{}, 2),
			release:     make(chan struct{}),
		}
		store.failing.Store(true)
		svc := newService(service.WithStore(store))
		defer svc.Stop()

		type outcome struct {
			res service.FinalizeResult
			err error
		}
		first := make(chan outcome, 1)
		go func() {
			res, err := svc.FinalizeTournament(ctx, firstTournament())
			first <- outcome{res, err}
		}()
		<-store.entered

		second := make(chan outcome, 1)
		go func() {
			res, err := svc.FinalizeTournament(ctx, firstTournament())
			second <- outcome{res, err}
		}()

		Convey("Then the waiting call is not told the tournament is a duplicate", func() {
			close(store.release)
			a := <-first
			So(errs.IsRetryable(a.err), ShouldBeTrue)

			b := <-second
			So(b.res.Duplicate, ShouldBeFalse)
			So(errs.IsRetryable(b.err), ShouldBeTrue)

			Convey("And a retry after recovery stores the results", func() {
				store.failing.Store(false)
				res, err := svc.FinalizeTournament(ctx, firstTournament())
				So(err, ShouldBeNil)
				So(res.Duplicate, ShouldBeFalse)
				So(res.Results, ShouldNotBeEmpty)
			})
		})
	})
}
