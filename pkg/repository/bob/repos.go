package bob

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stephenafamo/bob"

	"github.com/mpapenbr/fantasy-league-service/pkg/repository/api"
	"github.com/mpapenbr/fantasy-league-service/pkg/repository/bob/team"
	"github.com/mpapenbr/fantasy-league-service/pkg/repository/bob/user"
)

type bobRepositories struct {
	userRepository api.UserRepository
	teamRepository api.TeamRepository
}

var _ api.Repositories = (*bobRepositories)(nil)

func NewRepositoriesFromPool(pool *pgxpool.Pool) api.Repositories {
	db := bob.NewDB(stdlib.OpenDBFromPool(pool))
	return NewRepositories(db)
}

func NewRepositories(db bob.DB) api.Repositories {
	return &bobRepositories{
		userRepository: user.NewUserRepository(db),
		teamRepository: team.NewTeamRepository(db),
	}
}

func (r *bobRepositories) User() api.UserRepository {
	return r.userRepository
}

func (r *bobRepositories) Team() api.TeamRepository {
	return r.teamRepository
}
