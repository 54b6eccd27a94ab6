package standings

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/fantasy-league-service/log"
	"github.com/mpapenbr/fantasy-league-service/pkg/cmd/util"
	"github.com/mpapenbr/fantasy-league-service/pkg/model"
)

var outputFormat string

func NewStandingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "standings",
		Short: "prints the current driver and constructor standings",
		RunE: func(cmd *cobra.Command, args []string) error {
			util.SetupLogger()
			client, err := util.NewStandingsClient()
			if err != nil {
				return err
			}
			season := util.Season()
			ctx := cmd.Context()
			drivers, err := client.DriverStandings(ctx, season)
			if err != nil {
				log.Error("fetching driver standings", log.ErrorField(err))
				return err
			}
			constructors, err := client.ConstructorStandings(ctx, season)
			if err != nil {
				log.Error("fetching constructor standings", log.ErrorField(err))
				return err
			}
			return render(os.Stdout, outputFormat, season, drivers, constructors)
		},
	}
	util.AddStandingsFlags(cmd)
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json)")
	return cmd
}

//nolint:whitespace // can't make both editor and linter happy
func render(
	w io.Writer,
	format string,
	season int,
	drivers []model.DriverStanding,
	constructors []model.ConstructorStanding,
) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"season":       season,
			"drivers":      drivers,
			"constructors": constructors,
		})
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Season %d\n\nDRIVER\tPOINTS\n", season)
	for _, d := range drivers {
		fmt.Fprintf(tw, "%s\t%g\n", d.Abbr, d.Points)
	}
	fmt.Fprintf(tw, "\nCONSTRUCTOR\tPOINTS\n")
	for _, c := range constructors {
		fmt.Fprintf(tw, "%s\t%g\n", c.Name, c.Points)
	}
	return tw.Flush()
}
