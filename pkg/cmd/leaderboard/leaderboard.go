package leaderboard

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/fantasy-league-service/log"
	"github.com/mpapenbr/fantasy-league-service/pkg/cmd/util"
	"github.com/mpapenbr/fantasy-league-service/pkg/config"
	"github.com/mpapenbr/fantasy-league-service/pkg/db/postgres"
	"github.com/mpapenbr/fantasy-league-service/pkg/leaderboard"
	"github.com/mpapenbr/fantasy-league-service/pkg/model"
	"github.com/mpapenbr/fantasy-league-service/pkg/repository/bob"
)

var outputFormat string

// NewLeaderboardCmd computes the leaderboard directly against the database.
func NewLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "prints the current leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sqlLogger := util.SetupLogger()
			client, err := util.NewStandingsClient()
			if err != nil {
				return err
			}
			util.WaitForDatabase()
			pool := postgres.InitWithURL(config.DB,
				postgres.WithTracer(sqlLogger, log.DebugLevel))
			defer pool.Close()

			svc := leaderboard.NewService(
				leaderboard.WithTeamRepository(bob.NewRepositoriesFromPool(pool).Team()),
				leaderboard.WithFetcher(client),
				leaderboard.WithSeason(config.Season))
			ranked, err := svc.List(cmd.Context())
			if err != nil {
				log.Error("computing leaderboard", log.ErrorField(err))
				return err
			}
			return render(os.Stdout, outputFormat, ranked)
		},
	}
	util.AddStandingsFlags(cmd)
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json)")
	return cmd
}

func render(w io.Writer, format string, ranked []*model.RankedTeam) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ranked)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tUSER\tPOINTS\tCOST\tDRIVERS\tCONSTRUCTORS")
	for i, r := range ranked {
		fmt.Fprintf(tw, "%d\t%s\t%g\t%g\t%s\t%s\n",
			i+1, r.UserName, r.TotalPoints, r.TotalCost,
			strings.Join(r.Drivers, ","), strings.Join(r.Constructors, ","))
	}
	return tw.Flush()
}
