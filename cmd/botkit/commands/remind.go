package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"time"

	"github.com/marmos91/botkit/internal/cli/output"
	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/pkg/bot"
	"github.com/marmos91/botkit/pkg/dispatch"
	"github.com/marmos91/botkit/pkg/lifecycle"
	"github.com/spf13/cobra"
)

var (
	remindDryRun bool
	remindOutput string
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send the inactivity reminder once",
	Long: `Run the remind-users job once, outside the scheduler.

Users that are active, not yet reminded and silent for longer than
dispatch.reminder.inactive_after receive dispatch.reminder.text. Delivered
users are marked as reminded; users that blocked the bot or no longer exist
are deactivated.

Examples:
  # List who would be reminded
  botkit remind --dry-run

  # Send the reminder and print per-recipient outcomes
  botkit remind --output json`,
	RunE: runRemind,
}

func init() {
	remindCmd.Flags().BoolVar(&remindDryRun, "dry-run", false, "List recipients without sending")
	remindCmd.Flags().StringVarP(&remindOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// recipientList renders dry-run recipients.
type recipientList []int64

func (l recipientList) Headers() []string { return []string{"Recipient"} }

func (l recipientList) Rows() [][]string {
	rows := make([][]string, len(l))
	for i, id := range l {
		rows[i] = []string{strconv.FormatInt(id, 10)}
	}
	return rows
}

// outcomeList renders per-recipient dispatch outcomes.
type outcomeList []dispatch.Outcome

func (l outcomeList) Headers() []string { return []string{"Recipient", "Result", "Attempts", "Error"} }

func (l outcomeList) Rows() [][]string {
	rows := make([][]string, len(l))
	for i, o := range l {
		msg := ""
		if o.Err != nil {
			msg = o.Err.Error()
		}
		rows[i] = []string{strconv.FormatInt(o.RecipientID, 10), o.Result.String(), strconv.Itoa(o.Attempts), msg}
	}
	return rows
}

type outcomeView struct {
	RecipientID int64  `json:"recipient_id" yaml:"recipient_id"`
	Result      string `json:"result" yaml:"result"`
	Attempts    int    `json:"attempts" yaml:"attempts"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

// remindResult is the json/yaml shape of a run report.
type remindResult struct {
	RunID       string        `json:"run_id" yaml:"run_id"`
	Delivered   int           `json:"delivered" yaml:"delivered"`
	Failed      int           `json:"failed" yaml:"failed"`
	Reminded    int64         `json:"reminded" yaml:"reminded"`
	Deactivated int64         `json:"deactivated" yaml:"deactivated"`
	Duration    string        `json:"duration" yaml:"duration"`
	Aborted     bool          `json:"aborted" yaml:"aborted"`
	Outcomes    []outcomeView `json:"outcomes" yaml:"outcomes"`
}

func newRemindResult(r *dispatch.Report) remindResult {
	res := remindResult{
		RunID:       r.RunID,
		Delivered:   r.Delivered,
		Failed:      r.Failed,
		Reminded:    r.Reminded,
		Deactivated: r.Deactivated,
		Duration:    r.Duration.String(),
		Aborted:     r.Aborted,
		Outcomes:    make([]outcomeView, len(r.Outcomes)),
	}
	for i, row := range outcomeList(r.Outcomes).Rows() {
		res.Outcomes[i] = outcomeView{
			RecipientID: r.Outcomes[i].RecipientID,
			Result:      row[1],
			Attempts:    r.Outcomes[i].Attempts,
			Error:       row[3],
		}
	}
	return res
}

func runRemind(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(remindOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// an interrupted run still records the outcomes gathered so far
	ctx, stop := signal.NotifyContext(context.Background(), lifecycle.TerminationSignals...)
	defer stop()

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	client, err := bot.New(cfg.Bot)
	if err != nil {
		return err
	}
	defer client.Close()

	d, err := dispatch.New(client, s, cfg.Dispatch.Policy)
	if err != nil {
		return err
	}
	reminder := dispatch.NewReminder(s, d, cfg.Dispatch.Reminder)
	p := output.NewPrinter(cmd.OutOrStdout(), format, true)

	if remindDryRun {
		ids, err := reminder.Recipients(ctx)
		if err != nil {
			return err
		}
		return p.Print(recipientList(ids))
	}

	report, err := reminder.Run(ctx)
	if report == nil {
		return err
	}
	logger.Info("Reminder run finished",
		logger.KeyRunID, report.RunID,
		"delivered", report.Delivered,
		"failed", report.Failed,
		"deactivated", report.Deactivated)

	if perr := printRemindReport(p, format, report); perr != nil {
		return errors.Join(err, perr)
	}
	return err
}

// printRemindReport writes the outcomes of a run, aborted or not.
func printRemindReport(p *output.Printer, format output.Format, report *dispatch.Report) error {
	if format != output.FormatTable {
		return p.Print(newRemindResult(report))
	}
	if err := p.Print(outcomeList(report.Outcomes)); err != nil {
		return err
	}
	summary := fmt.Sprintf("Run %s: %d delivered, %d failed, %d deactivated in %s",
		report.RunID, report.Delivered, report.Failed, report.Deactivated, report.Duration.Round(time.Millisecond))
	if report.Aborted {
		p.Warning("Run interrupted. " + summary)
		return nil
	}
	p.Success(summary)
	return nil
}
