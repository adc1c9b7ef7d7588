package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	transit "github.com/lodzlive/transit"
	"github.com/lodzlive/transit/config"
	"github.com/lodzlive/transit/static"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Runs one poll cycle and prints the joined dataset",
	Args:  cobra.NoArgs,
	RunE:  snapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}

func snapshot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	stops, err := static.LoadStops(cfg.Static.StopsPath)
	if err != nil {
		return err
	}
	class, err := static.NewClassification()
	if err != nil {
		return err
	}

	store := transit.NewStore()
	poller := &transit.Poller{
		VehiclePositionsURL: cfg.Feeds.VehiclePositionsURL,
		TripUpdatesURL:      cfg.Feeds.TripUpdatesURL,
		Fetcher: &transit.HTTPFetcher{
			Timeout: cfg.Poll.FetchTimeout.Std(),
			MaxSize: cfg.Poll.FeedMaxSize,
		},
		Store:          store,
		Stops:          stops,
		Classification: class,
		Logger:         newLogger(),
	}

	if err := poller.RunOnce(context.Background()); err != nil {
		return err
	}
	snap := store.Latest()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VEHICLE\tLINE\tTYPE\tSTOP\tDELAY\tTS")
	for _, r := range snap.Records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			orDash(r.VehicleID),
			orDash(r.RouteID),
			r.RouteType,
			orDash(r.CurrentStopName),
			delayOrDash(r.ArrivalDelayMin),
			tsOrDash(r.Timestamp),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d vehicles, %d stop-time update rows, feed timestamp %d\n",
		len(snap.Records), snap.StopTimeUpdateRows, snap.FeedTimestamp)
	return nil
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func delayOrDash(min *int) string {
	if min == nil {
		return "-"
	}
	return fmt.Sprintf("%+dmin", *min)
}

func tsOrDash(ts *uint64) string {
	if ts == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *ts)
}
