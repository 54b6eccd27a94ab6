//nolint:whitespace // can't make both editor and linter happy
package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"

	"github.com/mpapenbr/fantasy-league-service/pkg/model"
	"github.com/mpapenbr/fantasy-league-service/pkg/repository/api"
	bobCtx "github.com/mpapenbr/fantasy-league-service/pkg/repository/bob/context"
)

type (
	repo struct {
		conn bob.Executor
	}
	userRow struct {
		ID   uuid.UUID `db:"id"`
		Name string    `db:"name"`
	}
)

const tableName = "users"

var (
	_       api.UserRepository = (*repo)(nil)
	columns                    = []any{"id", "name"}
)

func NewUserRepository(conn bob.Executor) api.UserRepository {
	return &repo{
		conn: conn,
	}
}

func (r *repo) Create(ctx context.Context, name string) (*model.User, error) {
	q := psql.Insert(
		im.Into(tableName, "name"),
		im.Values(psql.Arg(name)),
		im.Returning(columns...),
	)
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[userRow]())
	if err != nil {
		return nil, err
	}
	return r.toModel(&ret), nil
}

func (r *repo) LoadByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	q := psql.Select(
		sm.Columns(columns...),
		sm.From(tableName),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[userRow]())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, api.ErrNoRows
		}
		return nil, err
	}
	return r.toModel(&ret), nil
}

func (r *repo) toModel(row *userRow) *model.User {
	return &model.User{ID: row.ID, Name: row.Name}
}

func (r *repo) getExecutor(ctx context.Context) bob.Executor {
	if executor := bobCtx.FromContext(ctx); executor != nil {
		return executor
	}
	return r.conn
}
