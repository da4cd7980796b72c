// Package datasetcmd inspects road datasets before they are served.
package datasetcmd

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/myrjola/saferroad/internal/dataset"
	"github.com/myrjola/saferroad/internal/errors"
	"github.com/myrjola/saferroad/internal/game"
	"github.com/myrjola/saferroad/internal/models"
	"github.com/spf13/cobra"
)

const datasetPathEnv = "SAFERROAD_DATASET_PATH"

var Group = &cobra.Group{
	ID:    "dataset",
	Title: "Dataset",
}

var Check = &cobra.Command{
	Use:     "check [path]",
	GroupID: "dataset",
	Short:   "Validate a dataset",
	Long: "Parses the CSV dataset the way the web server does and prints the number of records and the " +
		"distribution of the decoded categories. Defaults to $" + datasetPathEnv + ".",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable(args)
		if err != nil {
			return err
		}
		return printDistribution(cmd.OutOrStdout(), table)
	},
}

var Sample = &cobra.Command{
	Use:     "sample [path]",
	GroupID: "dataset",
	Short:   "Print random rounds",
	Long:    "Draws rounds the way the game does and prints both roads together with the safer one.",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable(args)
		if err != nil {
			return err
		}
		var n int
		if n, err = cmd.Flags().GetInt("rounds"); err != nil {
			return errors.Wrap(err, "rounds flag")
		}
		var seed uint64
		if seed, err = cmd.Flags().GetUint64("seed"); err != nil {
			return errors.Wrap(err, "seed flag")
		}
		rng := rand.New(rand.NewPCG(seed, seed)) //nolint:gosec // not security sensitive
		return printRounds(cmd.OutOrStdout(), table, rng, n)
	},
}

func init() {
	Sample.Flags().IntP("rounds", "n", game.Rounds, "number of rounds to draw")
	Sample.Flags().Uint64("seed", 1, "seed for the random source")
}

func loadTable(args []string) (*dataset.Table, error) {
	path := os.Getenv(datasetPathEnv)
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return nil, errors.New("dataset path missing, pass it as argument or set " + datasetPathEnv)
	}
	table, err := dataset.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "load dataset")
	}
	return table, nil
}

func printDistribution(out io.Writer, table *dataset.Table) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0) //nolint:mnd // padding
	_, _ = fmt.Fprintf(w, "records\t%d\n", table.Len())

	distribution := game.Distribution(table)
	names := make([]string, 0, len(distribution))
	for name := range distribution {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		labels := make([]string, 0, len(distribution[name]))
		for label := range distribution[name] {
			labels = append(labels, label)
		}
		slices.Sort(labels)
		for _, label := range labels {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\n", name, label, distribution[name][label])
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "flush output")
	}
	return nil
}

func printRounds(out io.Writer, table *dataset.Table, rng game.IntN, n int) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0) //nolint:mnd // padding
	_, _ = fmt.Fprintln(w, "round\troad\ttype\tcurvature\tspeed\tlighting\tweather\ttime\trisk")
	for round := 1; round <= n; round++ {
		i, j := game.DrawRound(table, rng)
		a, b := table.Record(i), table.Record(j)
		printRoad(w, round, 1, a)
		printRoad(w, round, 2, b) //nolint:mnd // second road
		_, _ = fmt.Fprintf(w, "%d\tsafer: %d\n", round, game.Judge(a, b))
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "flush output")
	}
	return nil
}

func printRoad(w io.Writer, round, road int, r models.RoadRecord) {
	c := game.DecodeCategory(r)
	_, _ = fmt.Fprintf(w, "%d\t%d\t%s\t%.2f\t%d km/h\t%s\t%s\t%s\t%.3f\n", round, road,
		c.RoadType, r.Curvature, r.SpeedLimitKMH(), c.Lighting, c.Weather, c.TimeOfDay, r.Risk)
}
