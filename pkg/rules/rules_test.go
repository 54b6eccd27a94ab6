//nolint:funlen //ok for this test code
package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/fantasy-league-service/pkg/model"
)

var (
	fiveDrivers     = []string{"VER", "HAM", "LEC", "NOR", "SAI"}
	twoConstructors = []string{"Ferrari", "Mercedes"}
)

func TestOpaEvaluator(t *testing.T) {
	e, err := NewOpaEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name string
		team *model.Team
		want []string
	}{
		{
			name: "valid",
			team: &model.Team{
				Drivers: fiveDrivers, Constructors: twoConstructors, TotalCost: 100,
			},
			want: []string{},
		},
		{
			name: "free team is valid",
			team: &model.Team{
				Drivers: fiveDrivers, Constructors: twoConstructors, TotalCost: 0,
			},
			want: []string{},
		},
		{
			name: "too few drivers",
			team: &model.Team{
				Drivers: fiveDrivers[:4], Constructors: twoConstructors, TotalCost: 50,
			},
			want: []string{"team needs exactly 5 drivers, got 4"},
		},
		{
			name: "duplicate driver",
			team: &model.Team{
				Drivers:      []string{"VER", "VER", "LEC", "NOR", "SAI"},
				Constructors: twoConstructors,
				TotalCost:    50,
			},
			want: []string{"drivers must be distinct"},
		},
		{
			name: "duplicate constructor",
			team: &model.Team{
				Drivers:      fiveDrivers,
				Constructors: []string{"Ferrari", "Ferrari"},
				TotalCost:    50,
			},
			want: []string{"constructors must be distinct"},
		},
		{
			name: "over budget",
			team: &model.Team{
				Drivers: fiveDrivers, Constructors: twoConstructors, TotalCost: 100.5,
			},
			want: []string{"total cost 100.5 exceeds budget 100"},
		},
		{
			name: "negative cost",
			team: &model.Team{
				Drivers: fiveDrivers, Constructors: twoConstructors, TotalCost: -1,
			},
			want: []string{"total cost must not be negative"},
		},
		{
			name: "empty team",
			team: &model.Team{},
			want: []string{
				"team needs exactly 2 constructors, got 0",
				"team needs exactly 5 drivers, got 0",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Check(context.Background(), tt.team)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestNoop(t *testing.T) {
	got, err := Noop{}.Check(context.Background(), &model.Team{TotalCost: 1000})
	require.NoError(t, err)
	assert.Empty(t, got)
}
