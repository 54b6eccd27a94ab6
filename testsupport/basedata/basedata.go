package basedata

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/fantasy-league-service/pkg/model"
	"github.com/mpapenbr/fantasy-league-service/pkg/repository/bob"
)

func SampleDriverStandings() []model.DriverStanding {
	return []model.DriverStanding{
		{Abbr: "VER", Points: 100},
		{Abbr: "HAM", Points: 80},
		{Abbr: "LEC", Points: 60},
		{Abbr: "NOR", Points: 45.5},
	}
}

func SampleConstructorStandings() []model.ConstructorStanding {
	return []model.ConstructorStanding{
		{Name: "Ferrari", Points: 50},
		{Name: "Mercedes", Points: 60},
		{Name: "McLaren", Points: 30},
	}
}

// CreateUser stores a user and terminates the test binary on failure
func CreateUser(pool *pgxpool.Pool, name string) *model.User {
	repos := bob.NewRepositoriesFromPool(pool)
	u, err := repos.User().Create(context.Background(), name)
	if err != nil {
		log.Fatalf("CreateUser: %v\n", err)
	}
	return u
}

// CreateTeam stores a team for the given user
//
//nolint:whitespace // can't make both editor and linter happy
func CreateTeam(
	pool *pgxpool.Pool,
	user *model.User,
	drivers, constructors []string,
	cost float64,
) *model.Team {
	repos := bob.NewRepositoriesFromPool(pool)
	t, err := repos.Team().Create(context.Background(), &model.Team{
		UserID:       user.ID,
		Drivers:      drivers,
		Constructors: constructors,
		TotalCost:    cost,
	})
	if err != nil {
		log.Fatalf("CreateTeam: %v\n", err)
	}
	return t
}
