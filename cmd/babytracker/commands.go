package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
	"github.com/MarcoPoloResearchLab/babytracker/internal/report"
	"github.com/spf13/cobra"
)

func (a *cli) newTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token [owner]",
		Short: "Issue a bearer token for an owner",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.openRuntime(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			if !rt.config.AuthEnabled() {
				return fmt.Errorf("auth.signing_secret is required to issue tokens")
			}
			rawOwner := rt.config.DefaultOwner
			if len(args) == 1 {
				rawOwner = args[0]
			}
			owner, err := rt.users.Resolve(cmd.Context(), rawOwner)
			if err != nil {
				return err
			}
			issuer, err := newTokenIssuer(rt)
			if err != nil {
				return err
			}
			token, expiresIn, err := issuer.IssueOwnerToken(cmd.Context(), owner)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires in %s\n", time.Duration(expiresIn)*time.Second)
			return nil
		},
	}
}

type recordFlags struct {
	id        string
	date      string
	time      string
	amount    float64
	kindType  string
	weight    float64
	height    float64
	startTime string
	endTime   string
}

func (f recordFlags) record(cmd *cobra.Command) records.Record {
	record := records.Record{
		Date:      records.Date(f.date),
		Time:      records.ClockTime(f.time),
		Amount:    f.amount,
		Type:      f.kindType,
		Weight:    f.weight,
		StartTime: records.ClockTime(f.startTime),
		EndTime:   records.ClockTime(f.endTime),
	}
	if cmd.Flags().Changed("height") {
		height := f.height
		record.Height = &height
	}
	return record
}

func (a *cli) newRecordCommand() *cobra.Command {
	var flags recordFlags
	cmd := &cobra.Command{
		Use:   "record <growth|feeding|diaper|sleep>",
		Short: "Add a record, or edit one with --id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := records.ParseKind(args[0])
			if err != nil {
				return err
			}
			rt, err := a.openRuntime(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			input := applyRecordDefaults(flags.record(cmd), kind, rt.tracker.Now())
			saved, err := rt.tracker.Save(cmd.Context(), rt.owner, kind, input, flags.id)
			if err != nil {
				return err
			}
			saved.Kind = kind
			fmt.Fprintf(a.out, "%s\t%s\n", saved.ID, report.Line(saved))
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.id, "id", "", "Edit the record with this id; a missing id creates a new record")
	cmd.Flags().StringVar(&flags.date, "date", "", "Date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&flags.time, "time", "", "Time as HH:MM for feeding and diaper (default now)")
	cmd.Flags().Float64Var(&flags.amount, "amount", 0, "Feeding amount in oz")
	cmd.Flags().StringVar(&flags.kindType, "type", "", "Feeding type (bottle, breast, formula, solid) or diaper type (pee, poo, both)")
	cmd.Flags().Float64Var(&flags.weight, "weight", 0, "Weight in kg")
	cmd.Flags().Float64Var(&flags.height, "height", 0, "Height in cm")
	cmd.Flags().StringVar(&flags.startTime, "start", "", "Sleep start as HH:MM")
	cmd.Flags().StringVar(&flags.endTime, "end", "", "Sleep end as HH:MM")
	return cmd
}

// applyRecordDefaults fills a missing date, and for timed kinds a missing time, from one clock reading.
func applyRecordDefaults(input records.Record, kind records.Kind, now time.Time) records.Record {
	if input.Date == "" {
		input.Date = records.DateOf(now)
	}
	if input.Time == "" && (kind == records.KindFeeding || kind == records.KindDiaper) {
		input.Time = records.ClockTimeOf(now)
	}
	return input
}

func (a *cli) newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <growth|feeding|diaper|sleep>",
		Short: "List records newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := records.ParseKind(args[0])
			if err != nil {
				return err
			}
			rt, err := a.openRuntime(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			items, err := rt.tracker.ListRecords(cmd.Context(), rt.owner, kind)
			if err != nil {
				return err
			}
			writer := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tENTRY")
			for _, item := range items {
				item.Kind = kind
				fmt.Fprintf(writer, "%s\t%s\n", item.ID, report.Line(item))
			}
			return writer.Flush()
		},
	}
}

func (a *cli) newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <growth|feeding|diaper|sleep> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := records.ParseKind(args[0])
			if err != nil {
				return err
			}
			rt, err := a.openRuntime(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.tracker.DeleteRecord(cmd.Context(), rt.owner, kind, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s %s\n", kind, args[1])
			return nil
		},
	}
}

func (a *cli) newSummaryCommand() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard for a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var day records.Date
			if date != "" {
				parsed, err := records.ParseDate(date)
				if err != nil {
					return err
				}
				day = parsed
			}
			rt, err := a.openRuntime(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			dashboard, err := rt.tracker.Dashboard(cmd.Context(), rt.owner, day)
			if err != nil {
				return err
			}
			writeSummary(a, dashboard)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Reference date as YYYY-MM-DD (default today)")
	return cmd
}

func writeSummary(a *cli, dashboard report.Dashboard) {
	fmt.Fprintf(a.out, "%s, %s (%s)\n\n", dashboard.Profile.Name, dashboard.Profile.Age.Formatted, dashboard.Date)
	writer := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "SECTION\tTODAY\tTREND")
	fmt.Fprintf(writer, "Growth\t%s\t%s\n", dashboard.Today.Growth, dashboard.Trends.Growth)
	fmt.Fprintf(writer, "Milk\t%g oz total\t%s\n", dashboard.Summary.TotalMilk, dashboard.Trends.Milk)
	fmt.Fprintf(writer, "Feeding\t%s\t%s\n", dashboard.Today.Feeding, dashboard.Trends.Feeding)
	fmt.Fprintf(writer, "Diaper\t%s\t%s\n", dashboard.Today.Diaper, dashboard.Trends.Diaper)
	fmt.Fprintf(writer, "Sleep\t%s\t%s\n", dashboard.Today.Sleep, dashboard.Trends.Sleep)
	_ = writer.Flush()
}

func (a *cli) newOwnersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owners",
		Short: "List registered owners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.openRuntime(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			owners, err := rt.users.List(cmd.Context())
			if err != nil {
				return err
			}
			writer := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tNAME\tLAST SEEN")
			for _, owner := range owners {
				fmt.Fprintf(writer, "%s\t%s\t%s\n", owner.ID, owner.DisplayName, owner.LastSeenAt.Format(time.RFC3339))
			}
			return writer.Flush()
		},
	}

	var displayName string
	addCmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Register an owner or rename an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.openRuntime(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			owner, err := rt.users.Register(cmd.Context(), args[0], displayName)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "registered %s (%s)\n", owner.ID, owner.DisplayName)
			return nil
		},
	}
	addCmd.Flags().StringVar(&displayName, "name", "", "Display name (default the id)")
	cmd.AddCommand(addCmd)
	return cmd
}
