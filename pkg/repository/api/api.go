package api

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"

	"github.com/mpapenbr/fantasy-league-service/pkg/model"
)

var ErrNoRows = errors.New("no rows in result set")

type Repositories interface {
	User() UserRepository
	Team() TeamRepository
}

type UserRepository interface {
	Create(ctx context.Context, name string) (*model.User, error)
	LoadByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) (*model.Team, error)
	LoadByID(ctx context.Context, id uuid.UUID) (*model.Team, error)
	// LoadAllWithUser returns all teams in insertion order,
	// each with the name of the owning user.
	LoadAllWithUser(ctx context.Context) ([]*model.TeamEntry, error)
}

type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
