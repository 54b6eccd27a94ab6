//nolint:whitespace // can't make both editor and linter happy
package team

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"

	"github.com/mpapenbr/fantasy-league-service/pkg/db/mytypes"
	"github.com/mpapenbr/fantasy-league-service/pkg/model"
	"github.com/mpapenbr/fantasy-league-service/pkg/repository/api"
	bobCtx "github.com/mpapenbr/fantasy-league-service/pkg/repository/bob/context"
)

type (
	repo struct {
		conn bob.Executor
	}
	teamRow struct {
		ID           uuid.UUID          `db:"id"`
		UserID       uuid.UUID          `db:"user_id"`
		Drivers      mytypes.StringList `db:"drivers"`
		Constructors mytypes.StringList `db:"constructors"`
		TotalCost    decimal.Decimal    `db:"total_cost"`
	}
	// used for the join with the users table
	teamEntryRow struct {
		ID           uuid.UUID          `db:"id"`
		UserID       uuid.UUID          `db:"user_id"`
		Drivers      mytypes.StringList `db:"drivers"`
		Constructors mytypes.StringList `db:"constructors"`
		TotalCost    decimal.Decimal    `db:"total_cost"`
		UserName     string             `db:"user_name"`
	}
)

const tableName = "teams"

var (
	_       api.TeamRepository = (*repo)(nil)
	columns                    = []any{
		"id", "user_id", "drivers", "constructors", "total_cost",
	}
)

func NewTeamRepository(conn bob.Executor) api.TeamRepository {
	return &repo{
		conn: conn,
	}
}

func (r *repo) Create(ctx context.Context, team *model.Team) (*model.Team, error) {
	q := psql.Insert(
		im.Into(tableName, "user_id", "drivers", "constructors", "total_cost"),
		im.Values(
			psql.Arg(team.UserID),
			psql.Arg(mytypes.StringList(team.Drivers)),
			psql.Arg(mytypes.StringList(team.Constructors)),
			psql.Arg(decimal.NewFromFloat(team.TotalCost)),
		),
		im.Returning(columns...),
	)
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[teamRow]())
	if err != nil {
		return nil, err
	}
	return r.toModel(&ret), nil
}

func (r *repo) LoadByID(ctx context.Context, id uuid.UUID) (*model.Team, error) {
	q := psql.Select(
		sm.Columns(columns...),
		sm.From(tableName),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[teamRow]())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, api.ErrNoRows
		}
		return nil, err
	}
	return r.toModel(&ret), nil
}

// the order is the insertion order, the leaderboard relies on it for ties
func (r *repo) LoadAllWithUser(ctx context.Context) ([]*model.TeamEntry, error) {
	q := psql.Select(
		sm.Columns(
			psql.Quote("t", "id"),
			psql.Quote("t", "user_id"),
			psql.Quote("t", "drivers"),
			psql.Quote("t", "constructors"),
			psql.Quote("t", "total_cost"),
			psql.Quote("u", "name").As("user_name"),
		),
		sm.From(tableName).As("t"),
		sm.InnerJoin("users").As("u").OnEQ(psql.Quote("u", "id"), psql.Quote("t", "user_id")),
		sm.OrderBy(psql.Quote("t", "seq")).Asc(),
	)
	data, err := bob.All(ctx, r.getExecutor(ctx), q, scan.StructMapper[teamEntryRow]())
	if err != nil {
		return nil, err
	}
	ret := make([]*model.TeamEntry, 0, len(data))
	for i := range data {
		ret = append(ret, &model.TeamEntry{
			Team: *r.toModel(&teamRow{
				ID:           data[i].ID,
				UserID:       data[i].UserID,
				Drivers:      data[i].Drivers,
				Constructors: data[i].Constructors,
				TotalCost:    data[i].TotalCost,
			}),
			UserName: data[i].UserName,
		})
	}
	return ret, nil
}

func (r *repo) toModel(row *teamRow) *model.Team {
	return &model.Team{
		ID:           row.ID,
		UserID:       row.UserID,
		Drivers:      nonNil(row.Drivers),
		Constructors: nonNil(row.Constructors),
		TotalCost:    row.TotalCost.InexactFloat64(),
	}
}

func nonNil(arg []string) []string {
	if arg == nil {
		return []string{}
	}
	return arg
}

func (r *repo) getExecutor(ctx context.Context) bob.Executor {
	if executor := bobCtx.FromContext(ctx); executor != nil {
		return executor
	}
	return r.conn
}
