package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/dcf77rx/internal/domain"
	"github.com/bft-labs/dcf77rx/pkg/caltime"
	"github.com/bft-labs/dcf77rx/pkg/dcf77"
)

func newFrameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Decode or build a raw 59-bit frame",
	}
	cmd.AddCommand(newFrameDecodeCmd(), newFrameEncodeCmd())
	return cmd
}

func newFrameDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "decode <hex>",
		Short:   "Print the fields of a frame",
		Example: "  dcf77rx frame decode 0x945e3aa6140000",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.TrimPrefix(strings.ToLower(args[0]), "0x")
			v, err := strconv.ParseUint(raw, 16, 64)
			if err != nil {
				return fmt.Errorf("parse frame: %w", err)
			}
			if v>>dcf77.FrameBits != 0 {
				return fmt.Errorf("frame has bits above %d set", dcf77.FrameBits-1)
			}
			printFrame(cmd.OutOrStdout(), dcf77.Frame(v))
			return nil
		},
	}
}

func newFrameEncodeCmd() *cobra.Command {
	var flags dcf77.EncodeFlags
	var cest bool

	cmd := &cobra.Command{
		Use:     "encode <time>",
		Short:   "Build the frame that announces a time",
		Example: "  dcf77rx frame encode 2025-02-23T15:30:00",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := time.Parse(dateLayout, args[0])
			if err != nil {
				return fmt.Errorf("parse time: %w", err)
			}
			printFrame(cmd.OutOrStdout(), dcf77.Encode(caltime.FromTime(t, cest), flags))
			return nil
		},
	}

	cmd.Flags().BoolVar(&cest, "cest", false, "set the summer time zone bits")
	cmd.Flags().BoolVar(&flags.CallBit, "call-bit", false, "set the call bit")
	cmd.Flags().BoolVar(&flags.DSTAnnounce, "dst-announce", false, "announce a zone change")
	cmd.Flags().BoolVar(&flags.LeapSecondAnnounce, "leap-announce", false, "announce a leap second")
	cmd.Flags().Uint16Var(&flags.Civil, "civil", 0, "civil warning bits 0..14")
	return cmd
}

func printFrame(w io.Writer, f dcf77.Frame) {
	df := domain.NewDecodedFrame(f, 0, time.Time{})

	var bits strings.Builder
	for i, b := range f.Bits() {
		if i == 15 || i == 21 || i == 29 || i == 36 || i == 42 || i == 45 || i == 50 || i == 58 {
			bits.WriteByte(' ')
		}
		bits.WriteByte(byte('0' + b))
	}

	fmt.Fprintf(w, "frame:     %s\n", f)
	fmt.Fprintf(w, "bits:      %s\n", bits.String())
	fmt.Fprintf(w, "time:      %s %s\n", df.Time, df.Zone())
	fmt.Fprintf(w, "timestamp: %d\n", df.Timestamp)
	fmt.Fprintf(w, "parity:    %v\n", f.ParityOK())
	fmt.Fprintf(w, "flags:     call=%v dst-announce=%v leap-announce=%v civil=%#04x\n",
		f.CallBit(), f.DSTAnnounce(), f.LeapSecondAnnounce(), f.Civil())
}
