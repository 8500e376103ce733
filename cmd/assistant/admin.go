package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/wolfman30/medspa-booking-assistant/internal/api"
)

func doctorsCMD() *cobra.Command {
	var specialization string
	var doctors = &cobra.Command{
		Use:   "doctors",
		Short: "List doctors, optionally filtered by specialization",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := setup()
			client := api.NewClient(cfg.APIBaseURL, api.WithTimeout(cfg.HTTPTimeout), api.WithLogger(logger))

			list, err := client.Doctors(cmd.Context(), specialization)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSPECIALIZATION\tSLOTS")
			for _, d := range list {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", d.ID, d.Name, d.Specialization, strings.Join(d.AvailableSlots, ", "))
			}
			return w.Flush()
		},
	}
	doctors.Flags().StringVar(&specialization, "specialization", "", "filter by specialization")
	return doctors
}

func bookingsCMD() *cobra.Command {
	var ttl time.Duration
	var bookings = &cobra.Command{
		Use:   "bookings",
		Short: "List all bookings (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := setup()
			if cfg.AdminJWTSecret == "" {
				return fmt.Errorf("ADMIN_JWT_SECRET is required to list bookings")
			}
			token, err := api.MintAdminToken(cfg.AdminJWTSecret, "assistant-cli", ttl)
			if err != nil {
				return err
			}
			client := api.NewClient(cfg.APIBaseURL,
				api.WithTimeout(cfg.HTTPTimeout),
				api.WithLogger(logger),
				api.WithAdminToken(token),
			)

			list, err := client.Bookings(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDOCTOR\tPATIENT\tEMAIL\tSLOT\tNOTE")
			for _, b := range list {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", b.ID, b.DoctorName, b.PatientName, b.PatientEmail, b.RequestedSlot, b.Note)
			}
			return w.Flush()
		},
	}
	bookings.Flags().DurationVar(&ttl, "token-ttl", 5*time.Minute, "lifetime of the admin token")
	return bookings
}
