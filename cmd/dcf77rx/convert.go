package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/dcf77rx/pkg/caltime"
)

const dateLayout = "2006-01-02T15:04:05"

func newConvertCmd() *cobra.Command {
	var date string
	var dst bool

	cmd := &cobra.Command{
		Use:   "convert [timestamp]",
		Short: "Convert between seconds since 1970 and broken-down time",
		Long: `Convert between seconds since 1970 and broken-down time.

Times are zone-less: the seconds count the local broadcast time, so that
converting a frame's time and back is exact.`,
		Example: `  dcf77rx convert 1740324600
  dcf77rx convert --date 2025-02-23T15:30:00`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if date != "" {
				t, err := time.Parse(dateLayout, date)
				if err != nil {
					return fmt.Errorf("parse date: %w", err)
				}
				tm := caltime.FromTime(t, dst)
				fmt.Fprintln(out, tm.Timestamp())
				return nil
			}

			if len(args) != 1 {
				return fmt.Errorf("need a timestamp or --date")
			}
			ts, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parse timestamp: %w", err)
			}
			tm := caltime.FromTimestamp(ts, dst)
			fmt.Fprintf(out, "%s (day %d of the year)\n", tm, tm.YDay+1)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "broken-down time to convert, "+dateLayout)
	cmd.Flags().BoolVar(&dst, "dst", false, "mark the time as summer time")
	return cmd
}
