package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newAvailabilityCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Print which slots of a day can still take an individual booking",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			a, err := newApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			availability, err := a.reservations.GetAvailability(ctx, date)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, availability.Date)
			for _, slot := range availability.List() {
				state := "free"
				if !slot.Available {
					state = "taken"
				}
				fmt.Fprintf(out, "  %5s  %s\n", slot.Time, state)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to inspect (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}
