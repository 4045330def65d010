package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/refdata"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/store"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Manage rate observations",
	Long:  "Commands for importing rate observations into the store and inspecting what is loaded.",
}

// -- rates import --

var ratesImportCmd = &cobra.Command{
	Use:   "import <source>",
	Short: "Import rate observations into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		src, closeSrc, err := resolveSource(ctx, args[0], st)
		if err != nil {
			return err
		}
		defer closeSrc()

		obs, err := refdata.Load(ctx, src)
		if err != nil {
			return eris.Wrap(err, "rates import")
		}

		n, err := st.SaveObservations(ctx, obs)
		if err != nil {
			return eris.Wrap(err, "rates import")
		}

		fmt.Printf("Imported %d observations from %s\n", n, src.Name())
		return nil
	},
}

// -- rates status --

var ratesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored observation counts and calibration history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		count, err := st.CountObservations(ctx)
		if err != nil {
			return eris.Wrap(err, "rates status")
		}

		tw := newTable(os.Stdout)
		fmt.Fprintf(tw, "Stored observations\t%d\n", count)

		rec, err := st.LatestCalibration(ctx)
		switch {
		case errors.Is(err, store.ErrNotFound):
			fmt.Fprintf(tw, "Last calibration\tnever\n")
		case err != nil:
			return eris.Wrap(err, "rates status")
		default:
			fmt.Fprintf(tw, "Last calibration\t%s\n", rec.SnapshotID)
			fmt.Fprintf(tw, "Calibrated at\t%s\n", rec.BuiltAt.Format("2006-01-02 15:04:05 MST"))
			fmt.Fprintf(tw, "Calibrated from\t%d observations, %d curves\n", rec.ObservationCount, rec.CurveCount)
		}
		return tw.Flush()
	},
}

func init() {
	ratesCmd.AddCommand(ratesImportCmd)
	ratesCmd.AddCommand(ratesStatusCmd)
	rootCmd.AddCommand(ratesCmd)
}
