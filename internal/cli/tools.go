package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevenpast/campcore/internal/application"
)

type expandOptions struct {
	start       string
	end         string
	frequency   string
	interval    int
	daysOfWeek  []int
	dayOfMonth  int
	until       string
	occurrences int
}

func newExpandCommand(root *rootOptions) *cobra.Command {
	opts := &expandOptions{}
	cmd := &cobra.Command{
		Use:     "expand",
		Short:   "Preview the occurrences a recurrence rule generates",
		GroupID: groupTools,
		Args:    cobra.NoArgs,
		Example: `  campctl expand --start 2024-07-01T09:00:00Z --end 2024-07-01T11:00:00Z \
    --frequency weekly --days 1,3 --count 6`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			params, err := opts.params()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			session, err := root.open(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := session.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			occurrences, err := session.Backend.ExpandRecurrence(ctx, params)
			if err != nil {
				return err
			}

			p := printer{out: cmd.OutOrStdout()}
			if root.jsonOutput {
				out := make([]occurrenceView, 0, len(occurrences))
				for _, o := range occurrences {
					out = append(out, occurrenceView{
						Sequence: o.Sequence,
						Date:     o.Date.Format(dateLayout),
						Start:    o.Start.Format(time.RFC3339),
						End:      o.End.Format(time.RFC3339),
					})
				}
				return p.writeJSON(out)
			}
			p.section(fmt.Sprintf("%s rule: %s", params.Rule.Frequency, plural(len(occurrences), "occurrence", "occurrences")))
			for _, o := range occurrences {
				p.item("#%d %s %s-%s", o.Sequence, o.Date.Format(dateLayout), o.Start.Format("15:04"), o.End.Format("15:04"))
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.start, "start", "", "Start of the first occurrence (RFC3339)")
	flags.StringVar(&opts.end, "end", "", "End of the first occurrence (RFC3339)")
	flags.StringVar(&opts.frequency, "frequency", "", "daily, weekly or monthly")
	flags.IntVar(&opts.interval, "interval", 1, "Repeat every N periods")
	flags.IntSliceVar(&opts.daysOfWeek, "days", nil, "Weekdays for weekly rules (0=Sunday ... 6=Saturday)")
	flags.IntVar(&opts.dayOfMonth, "day-of-month", 0, "Day of month for monthly rules")
	flags.StringVar(&opts.until, "until", "", "Last date an occurrence may fall on (YYYY-MM-DD)")
	flags.IntVar(&opts.occurrences, "count", 0, "Maximum number of occurrences")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	_ = cmd.MarkFlagRequired("frequency")
	return cmd
}

type occurrenceView struct {
	Sequence int    `json:"sequence"`
	Date     string `json:"date"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

func (o *expandOptions) params() (application.ExpandRecurrenceParams, error) {
	start, err := time.Parse(time.RFC3339, o.start)
	if err != nil {
		return application.ExpandRecurrenceParams{}, fmt.Errorf("invalid --start %q: expected RFC3339", o.start)
	}
	end, err := time.Parse(time.RFC3339, o.end)
	if err != nil {
		return application.ExpandRecurrenceParams{}, fmt.Errorf("invalid --end %q: expected RFC3339", o.end)
	}
	rule := application.RecurrenceInput{
		Frequency:      o.frequency,
		Interval:       o.interval,
		DaysOfWeek:     append([]int(nil), o.daysOfWeek...),
		DayOfMonth:     o.dayOfMonth,
		MaxOccurrences: o.occurrences,
	}
	if o.until != "" {
		until, err := time.Parse(dateLayout, o.until)
		if err != nil {
			return application.ExpandRecurrenceParams{}, fmt.Errorf("invalid --until %q: expected YYYY-MM-DD", o.until)
		}
		rule.EndDate = &until
	}
	return application.ExpandRecurrenceParams{Rule: rule, StartAt: start, EndAt: end}, nil
}

func newMigrateCommand(root *rootOptions) *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:     "migrate",
		Short:   "Apply pending schema migrations",
		GroupID: groupTools,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if root.deps.OpenStore == nil {
				return fmt.Errorf("campctl: storage is not configured")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, err := root.deps.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := store.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			applied := 0
			if !statusOnly {
				if applied, err = store.Migrate(ctx); err != nil {
					return err
				}
			}
			status, err := store.MigrationStatus(ctx)
			if err != nil {
				return err
			}

			p := printer{out: cmd.OutOrStdout()}
			pending := make([]string, 0, len(status.Pending))
			for _, m := range status.Pending {
				pending = append(pending, m.Version)
			}
			if root.jsonOutput {
				return p.writeJSON(migrateReport{
					Applied:        applied,
					CurrentVersion: status.CurrentVersion,
					Pending:        pending,
				})
			}

			if !statusOnly {
				p.success(fmt.Sprintf("Applied %s", plural(applied, "migration", "migrations")))
			}
			current := status.CurrentVersion
			if current == "" {
				current = "none"
			}
			p.labelValue("Current version", current)
			if len(status.Pending) == 0 {
				p.labelValue("Pending", "none")
				return nil
			}
			p.warning(fmt.Sprintf("%s pending", plural(len(status.Pending), "migration", "migrations")))
			for _, m := range status.Pending {
				p.item("%s %s", m.Version, m.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "Report migration state without applying anything")
	return cmd
}

type migrateReport struct {
	Applied        int      `json:"applied"`
	CurrentVersion string   `json:"current_version"`
	Pending        []string `json:"pending"`
}
