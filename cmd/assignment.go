package cmd

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"viberate/internal/bootstrap"
	"viberate/internal/domain"
	"viberate/internal/domain/money"
	"viberate/internal/domain/task"
	"viberate/internal/httpapi"
	"viberate/internal/usecase/assignment"
)

var assignmentCmd = &cobra.Command{
	Use:     "assignment",
	Aliases: []string{"assign"},
	Short:   "Claim, work on and review tasks",
}

var assignmentHeader = table.Row{"ID", "Task", "Annotator", "Status", "Score", "Assigned"}

func assignmentRow(a httpapi.AssignmentResponse) table.Row {
	return table.Row{a.ID, a.TaskID, a.AnnotatorID, a.Status, deref(a.QualityScore), a.AssignedAt.Format("2006-01-02 15:04")}
}

func assignmentView(a httpapi.AssignmentResponse) view {
	return view{data: a, header: assignmentHeader, rows: []table.Row{assignmentRow(a)}}
}

func assignmentsView(items []httpapi.AssignmentResponse) view {
	rows := make([]table.Row, 0, len(items))
	for _, a := range items {
		rows = append(rows, assignmentRow(a))
	}
	return view{data: items, header: assignmentHeader, rows: rows}
}

var assignmentClaimCmd = &cobra.Command{
	Use:   "claim <task-id>",
	Short: "Claim an available task",
	Args:  cobra.ExactArgs(1),
	RunE: withSchema(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		a, err := app.Assignments.Claim(cmd.Context(), assignment.ClaimInput{ActorID: actor, TaskID: args[0]})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, assignmentView(httpapi.NewAssignmentResponse(a)))
	}),
}

// actionCmd builds the commands that only name an assignment.
func actionCmd(use string, short string, run func(*assignment.Service) func(context.Context, assignment.ActionInput) (task.Assignment, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <assignment-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withSchema(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
			actor, err := requireActor()
			if err != nil {
				return err
			}
			a, err := run(app.Assignments)(cmd.Context(), assignment.ActionInput{ActorID: actor, AssignmentID: args[0]})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), outputFormat, assignmentView(httpapi.NewAssignmentResponse(a)))
		}),
	}
}

var assignmentSubmitCmd = &cobra.Command{
	Use:   "submit <assignment-id>",
	Short: "Submit an annotation result",
	Args:  cobra.ExactArgs(1),
	RunE: withSchema(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetString("result")
		result, err := readResult(raw)
		if err != nil {
			return err
		}
		a, err := app.Assignments.Submit(cmd.Context(), assignment.SubmitInput{
			ActorID:      actor,
			AssignmentID: args[0],
			Result:       result,
		})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, assignmentView(httpapi.NewAssignmentResponse(a)))
	}),
}

// readResult takes inline JSON or @path.
func readResult(raw string) (json.RawMessage, error) {
	if path, ok := strings.CutPrefix(raw, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(data), nil
	}
	return json.RawMessage(raw), nil
}

var assignmentApproveCmd = &cobra.Command{
	Use:   "approve <assignment-id>",
	Short: "Approve a submission and pay the annotator",
	Args:  cobra.ExactArgs(1),
	RunE: withSchema(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		rawAmount, _ := cmd.Flags().GetString("amount")
		amount, err := money.ParseUSDC(rawAmount)
		if err != nil {
			return err
		}
		feedback, _ := cmd.Flags().GetString("feedback")
		input := assignment.ApproveInput{
			ActorID:       actor,
			AssignmentID:  args[0],
			PaymentAmount: amount,
			Feedback:      feedback,
		}
		if cmd.Flags().Changed("score") {
			raw, _ := cmd.Flags().GetString("score")
			score, err := decimal.NewFromString(strings.TrimSpace(raw))
			if err != nil {
				return domain.Invalid("quality score %q is not a number", raw)
			}
			input.QualityScore = &score
		}
		res, err := app.Assignments.Approve(cmd.Context(), input)
		if err != nil {
			return err
		}
		resp := httpapi.NewApprovalResponse(res)
		v := assignmentView(resp.Assignment)
		v.data = resp
		v.header = append(append(table.Row{}, assignmentHeader...), "Payment", "Tx")
		if resp.Payment != nil {
			v.rows[0] = append(v.rows[0], resp.Payment.Status, deref(resp.Payment.TransactionHash))
		} else {
			v.rows[0] = append(v.rows[0], "not paid: "+resp.PaymentError, "")
		}
		return render(cmd.OutOrStdout(), outputFormat, v)
	}),
}

var assignmentRejectCmd = &cobra.Command{
	Use:   "reject <assignment-id>",
	Short: "Reject a submission and release the task",
	Args:  cobra.ExactArgs(1),
	RunE: withSchema(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		reason, _ := cmd.Flags().GetString("reason")
		a, err := app.Assignments.Reject(cmd.Context(), assignment.RejectInput{ActorID: actor, AssignmentID: args[0], Reason: reason})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, assignmentView(httpapi.NewAssignmentResponse(a)))
	}),
}

var assignmentMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List the acting annotator's assignments",
	RunE: withSchema(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		items, err := app.Assignments.MyAssignments(cmd.Context(), actor)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, assignmentsView(httpapi.NewAssignmentResponses(items)))
	}),
}

func init() {
	rootCmd.AddCommand(assignmentCmd)
	assignmentCmd.AddCommand(
		assignmentClaimCmd,
		actionCmd("accept", "Accept a claimed assignment", func(s *assignment.Service) func(context.Context, assignment.ActionInput) (task.Assignment, error) {
			return s.Accept
		}),
		actionCmd("start", "Start work on an assignment", func(s *assignment.Service) func(context.Context, assignment.ActionInput) (task.Assignment, error) {
			return s.Start
		}),
		actionCmd("cancel", "Abandon an assignment", func(s *assignment.Service) func(context.Context, assignment.ActionInput) (task.Assignment, error) {
			return s.Cancel
		}),
		actionCmd("show", "Show an assignment", func(s *assignment.Service) func(context.Context, assignment.ActionInput) (task.Assignment, error) {
			return s.GetAssignment
		}),
		assignmentSubmitCmd,
		assignmentApproveCmd,
		assignmentRejectCmd,
		assignmentMineCmd,
	)

	assignmentSubmitCmd.Flags().String("result", "", "Annotation result as JSON, or @file")
	_ = assignmentSubmitCmd.MarkFlagRequired("result")
	assignmentApproveCmd.Flags().String("amount", "", "Payment amount in USDC")
	assignmentApproveCmd.Flags().String("score", "", "Quality score 0-10, e.g. 8.5")
	assignmentApproveCmd.Flags().String("feedback", "", "Feedback for the annotator")
	_ = assignmentApproveCmd.MarkFlagRequired("amount")
	assignmentRejectCmd.Flags().String("reason", "", "Rejection reason")
}
