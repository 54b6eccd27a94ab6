package leaderboard

import (
	"cmp"
	"slices"

	"github.com/samber/lo"

	"github.com/mpapenbr/fantasy-league-service/pkg/model"
)

// Rank computes the points of each team and returns the teams ordered by
// points, highest first. Teams with equal points keep their input order.
//
// Each standings list is turned into a lookup table once. If a key occurs
// more than once the first entry is used. Keys without a standing
// contribute nothing.
//
//nolint:whitespace // can't make both editor and linter happy
func Rank(
	teams []*model.TeamEntry,
	drivers []model.DriverStanding,
	constructors []model.ConstructorStanding,
) []*model.RankedTeam {
	driverPoints := lookup(drivers,
		func(d model.DriverStanding) (string, float64) { return d.Abbr, d.Points })
	constructorPoints := lookup(constructors,
		func(c model.ConstructorStanding) (string, float64) { return c.Name, c.Points })

	ret := make([]*model.RankedTeam, 0, len(teams))
	for _, t := range teams {
		total := sumPoints(t.Drivers, driverPoints) +
			sumPoints(t.Constructors, constructorPoints)
		ret = append(ret, &model.RankedTeam{TeamEntry: *t, TotalPoints: total})
	}
	slices.SortStableFunc(ret, func(a, b *model.RankedTeam) int {
		return cmp.Compare(b.TotalPoints, a.TotalPoints)
	})
	return ret
}

func lookup[T any](items []T, kv func(T) (string, float64)) map[string]float64 {
	first := lo.UniqBy(items, func(item T) string {
		k, _ := kv(item)
		return k
	})
	return lo.Associate(first, kv)
}

func sumPoints(keys []string, points map[string]float64) float64 {
	return lo.SumBy(keys, func(k string) float64 { return points[k] })
}
