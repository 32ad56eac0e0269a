package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevenpast/campcore/internal/application"
	"github.com/sevenpast/campcore/internal/persistence"
	"github.com/sevenpast/campcore/internal/trigger"
)

const dateLayout = "2006-01-02"

type resetOptions struct {
	kind     string
	category string
	date     string
}

func newResetCutoffsCommand(root *rootOptions) *cobra.Command {
	opts := &resetOptions{}
	cmd := &cobra.Command{
		Use:     "reset-cutoffs",
		Short:   "Reopen bookings whose daily reset time has passed",
		GroupID: groupJobs,
		Args:    cobra.NoArgs,
		Long: `Reopen booking on every matching bookable whose reset is due.

A bookable for today is due once the camp clock reaches its reset time. Past and
future dates are always due. A reset lifts a cutoff that passed earlier today.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.filter()
			if err != nil {
				return err
			}
			return runGuarded(cmd, root, resetJobName(filter), func(ctx context.Context, backend Backend) (any, error) {
				count, err := backend.ResetCutoffs(ctx, filter)
				if err != nil {
					return nil, err
				}
				return resetReport{Reset: count}, nil
			}, func(p printer, result any) {
				p.success(fmt.Sprintf("Reopened %s", plural(result.(resetReport).Reset, "bookable", "bookables")))
			})
		},
	}
	cmd.Flags().StringVar(&opts.kind, "kind", "", "Limit to bookables of this kind (meal or event)")
	cmd.Flags().StringVar(&opts.category, "category", "", "Limit to bookables in this category")
	cmd.Flags().StringVar(&opts.date, "date", "", "Limit to bookables on this date (YYYY-MM-DD)")
	return cmd
}

type resetReport struct {
	Reset int `json:"reset"`
}

func (o *resetOptions) filter() (application.ResetFilter, error) {
	filter := application.ResetFilter{Category: strings.TrimSpace(o.category)}
	switch kind := persistence.BookableKind(strings.TrimSpace(o.kind)); kind {
	case "", persistence.BookableKindMeal, persistence.BookableKindEvent:
		filter.Kind = kind
	default:
		return application.ResetFilter{}, fmt.Errorf("invalid --kind %q: expected meal or event", o.kind)
	}
	if o.date != "" {
		date, err := time.Parse(dateLayout, o.date)
		if err != nil {
			return application.ResetFilter{}, fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", o.date)
		}
		filter.Date = &date
	}
	return filter, nil
}

// resetJobName scopes the lease so differently filtered resets do not block
// one another.
func resetJobName(filter application.ResetFilter) string {
	parts := []string{"reset-cutoffs"}
	if filter.Kind != "" {
		parts = append(parts, string(filter.Kind))
	}
	if filter.Category != "" {
		parts = append(parts, strings.ToLower(filter.Category))
	}
	if filter.Date != nil {
		parts = append(parts, filter.Date.Format(dateLayout))
	}
	return strings.Join(parts, ":")
}

func newReconcileCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "reconcile",
		Short:   "Recompute bed occupancy and equipment status from active assignments",
		GroupID: groupJobs,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGuarded(cmd, root, "reconcile-occupancy", func(ctx context.Context, backend Backend) (any, error) {
				result, err := backend.ReconcileOccupancy(ctx)
				if err != nil {
					return nil, err
				}
				return reconcileReport{Beds: result.BedsCorrected, Equipment: result.EquipmentCorrected}, nil
			}, func(p printer, result any) {
				report := result.(reconcileReport)
				if report.Beds+report.Equipment == 0 {
					p.success("Occupancy already consistent")
					return
				}
				p.success("Occupancy reconciled")
				p.labelValue("Beds corrected", fmt.Sprint(report.Beds))
				p.labelValue("Equipment corrected", fmt.Sprint(report.Equipment))
			})
		},
	}
}

type reconcileReport struct {
	Beds      int `json:"beds_corrected"`
	Equipment int `json:"equipment_corrected"`
}

type skippedReport struct {
	Skipped bool   `json:"skipped"`
	Job     string `json:"job"`
}

// runGuarded opens the engine, runs job under the lease guard and renders the
// result. A lease held elsewhere is reported and is not an error.
func runGuarded(cmd *cobra.Command, root *rootOptions, job string, run func(context.Context, Backend) (any, error), render func(printer, any)) (err error) {
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

	var result any
	err = session.Guard.Run(ctx, job, func(ctx context.Context) error {
		var runErr error
		result, runErr = run(ctx, session.Backend)
		return runErr
	})

	p := printer{out: cmd.OutOrStdout()}
	if errors.Is(err, trigger.ErrLeaseHeld) {
		if root.jsonOutput {
			return p.writeJSON(skippedReport{Skipped: true, Job: job})
		}
		p.warning(fmt.Sprintf("%s is already running elsewhere; skipped", job))
		return nil
	}
	if err != nil {
		return err
	}
	if root.jsonOutput {
		return p.writeJSON(result)
	}
	render(p, result)
	return nil
}
