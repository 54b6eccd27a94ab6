package leaderboard

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mpapenbr/fantasy-league-service/log"
	"github.com/mpapenbr/fantasy-league-service/pkg/model"
	"github.com/mpapenbr/fantasy-league-service/pkg/repository/api"
	"github.com/mpapenbr/fantasy-league-service/pkg/standings"
)

func NewService(opts ...Option) *Service {
	ret := &Service{
		log: log.Default().Named("leaderboard"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.tracer == nil {
		ret.tracer = otel.Tracer("fls")
	}
	if ret.season == nil {
		ret.season = CurrentSeason
	}
	return ret
}

type Option func(*Service)

func WithTeamRepository(repo api.TeamRepository) Option {
	return func(s *Service) {
		s.teamRepos = repo
	}
}

func WithFetcher(f standings.Fetcher) Option {
	return func(s *Service) {
		s.fetcher = f
	}
}

// WithSeason pins the season. A value <= 0 selects the current season.
func WithSeason(season int) Option {
	return func(s *Service) {
		if season > 0 {
			s.season = func() int { return season }
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

type Service struct {
	teamRepos api.TeamRepository
	fetcher   standings.Fetcher
	season    func() int
	tracer    trace.Tracer
	log       *log.Logger
}

// CurrentSeason is the calendar year
func CurrentSeason() int {
	return time.Now().Year()
}

// List returns the ranked leaderboard.
// Both standings are requested concurrently, even if there are no teams.
// If one of the requests fails the other one is awaited, then the error is
// returned. No partial leaderboard is produced.
func (s *Service) List(ctx context.Context) ([]*model.RankedTeam, error) {
	season := s.season()
	ctx, span := s.tracer.Start(ctx, "leaderboard list",
		trace.WithAttributes(attribute.Int("season", season)))
	defer span.End()

	teams, err := s.teamRepos.LoadAllWithUser(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "load teams")
		return nil, fmt.Errorf("loading teams: %w", err)
	}

	var (
		drivers      []model.DriverStanding
		constructors []model.ConstructorStanding
		g            errgroup.Group
	)
	g.Go(func() (err error) {
		drivers, err = s.fetcher.DriverStandings(ctx, season)
		if err != nil {
			return fmt.Errorf("driver standings: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		constructors, err = s.fetcher.ConstructorStandings(ctx, season)
		if err != nil {
			return fmt.Errorf("constructor standings: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch standings")
		return nil, err
	}

	ret := Rank(teams, drivers, constructors)
	s.log.Debug("leaderboard computed",
		log.Int("season", season),
		log.Int("teams", len(ret)),
		log.Int("drivers", len(drivers)),
		log.Int("constructors", len(constructors)))
	return ret, nil
}
