package cmd

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"viberate/internal/bootstrap"
	"viberate/internal/domain/money"
	"viberate/internal/domain/task"
	"viberate/internal/httpapi"
	"viberate/internal/usecase/assignment"
	"viberate/internal/usecase/budget"
	syncuc "viberate/internal/usecase/sync"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Import, fund and publish labeling projects",
}

var projectHeader = table.Row{"ID", "Title", "Budget", "Price", "Tasks", "Completed", "Published"}

func projectRow(p httpapi.ProjectResponse) table.Row {
	return table.Row{p.ID, p.Title, p.Budget, p.PricePerTask, p.TotalTasks, p.CompletedTasks, p.IsPublished}
}

func projectView(p httpapi.ProjectResponse) view {
	return view{data: p, header: projectHeader, rows: []table.Row{projectRow(p)}}
}

func projectsView(items []httpapi.ProjectResponse) view {
	rows := make([]table.Row, 0, len(items))
	for _, p := range items {
		rows = append(rows, projectRow(p))
	}
	return view{data: items, header: projectHeader, rows: rows}
}

var projectExternalCmd = &cobra.Command{
	Use:     "external",
	Aliases: []string{"list-external"},
	Short:   "List projects in the labeling tool",
	RunE: withSchema(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		items, err := app.Sync.ListExternalProjects(cmd.Context(), actor)
		if err != nil {
			return err
		}
		rows := make([]table.Row, 0, len(items))
		for _, p := range items {
			rows = append(rows, table.Row{p.ID, p.Title, p.TaskCount})
		}
		return render(cmd.OutOrStdout(), outputFormat, view{
			data:   items,
			header: table.Row{"External ID", "Title", "Tasks"},
			rows:   rows,
		})
	}),
}

var projectImportCmd = &cobra.Command{
	Use:   "import <external-id>",
	Short: "Import or resync a labeling tool project and its tasks",
	Args:  cobra.ExactArgs(1),
	RunE: withSchema(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		externalID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		res, err := app.Sync.ImportProject(cmd.Context(), syncuc.ImportInput{ActorID: actor, ExternalProjectID: externalID})
		if err != nil {
			return err
		}
		p := httpapi.NewProjectResponse(res.Project)
		return render(cmd.OutOrStdout(), outputFormat, view{
			data: map[string]any{
				"project":       p,
				"tasks_created": res.TasksCreated,
				"tasks_updated": res.TasksUpdated,
			},
			header: table.Row{"ID", "Title", "Tasks", "Created", "Updated"},
			rows:   []table.Row{{p.ID, p.Title, p.TotalTasks, res.TasksCreated, res.TasksUpdated}},
		})
	}),
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects owned by the acting researcher",
	RunE: withSchema(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		items, err := app.Budgets.ListOwnedProjects(cmd.Context(), actor)
		if err != nil {
			return err
		}
		out := make([]httpapi.ProjectResponse, 0, len(items))
		for _, p := range items {
			out = append(out, httpapi.NewProjectResponse(p))
		}
		return render(cmd.OutOrStdout(), outputFormat, projectsView(out))
	}),
}

var projectPublishedCmd = &cobra.Command{
	Use:   "published",
	Short: "List published projects with available tasks",
	RunE: withSchema(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		items, err := app.Budgets.ListPublishedProjects(cmd.Context())
		if err != nil {
			return err
		}
		out := httpapi.NewListingResponses(items)
		v := projectsView(out)
		v.header = append(table.Row{}, projectHeader...)
		v.header = append(v.header, "Available")
		for i, p := range out {
			v.rows[i] = append(v.rows[i], deref(p.AvailableTasks))
		}
		return render(cmd.OutOrStdout(), outputFormat, v)
	}),
}

var projectBudgetCmd = &cobra.Command{
	Use:     "budget <project-id> <amount>",
	Aliases: []string{"set-budget"},
	Short:   "Set the project budget and recompute the per-task price",
	Args:    cobra.ExactArgs(2),
	RunE: withSchema(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		amount, err := money.ParseBudget(args[1])
		if err != nil {
			return err
		}
		p, err := app.Budgets.SetBudget(cmd.Context(), budget.SetBudgetInput{ActorID: actor, ProjectID: args[0], Amount: amount})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, projectView(httpapi.NewProjectResponse(p)))
	}),
}

var projectPublishCmd = &cobra.Command{
	Use:   "publish <project-id>",
	Short: "Publish a funded project",
	Args:  cobra.ExactArgs(1),
	RunE: withSchema(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		res, err := app.Budgets.Publish(cmd.Context(), budget.ProjectInput{ActorID: actor, ProjectID: args[0]})
		if err != nil {
			return err
		}
		p := httpapi.NewProjectResponse(res.Project)
		v := projectView(p)
		v.data = httpapi.PublishResponse{Project: p, TasksReleased: res.TasksReleased}
		return render(cmd.OutOrStdout(), outputFormat, v)
	}),
}

var projectUnpublishCmd = &cobra.Command{
	Use:   "unpublish <project-id>",
	Short: "Withdraw a project from the marketplace",
	Args:  cobra.ExactArgs(1),
	RunE: withSchema(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		p, err := app.Budgets.Unpublish(cmd.Context(), budget.ProjectInput{ActorID: actor, ProjectID: args[0]})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, projectView(httpapi.NewProjectResponse(p)))
	}),
}

var projectStatsCmd = &cobra.Command{
	Use:   "stats <project-id>",
	Short: "Show budget and progress",
	Args:  cobra.ExactArgs(1),
	RunE: withSchema(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		stats, err := app.Budgets.ProjectStats(cmd.Context(), budget.ProjectInput{ActorID: actor, ProjectID: args[0]})
		if err != nil {
			return err
		}
		resp := httpapi.NewStatsResponse(stats)
		rows := []table.Row{
			{"budget", resp.Project.Budget},
			{"remaining", resp.RemainingBudget},
			{"price per task", resp.Project.PricePerTask},
			{"completion %", resp.CompletionPercentage},
		}
		for _, status := range []task.Status{task.StatusPending, task.StatusAvailable, task.StatusAssigned, task.StatusInProgress, task.StatusSubmitted, task.StatusCompleted} {
			rows = append(rows, table.Row{"tasks " + string(status), resp.TasksByStatus[string(status)]})
		}
		return render(cmd.OutOrStdout(), outputFormat, view{data: resp, header: table.Row{"Metric", "Value"}, rows: rows})
	}),
}

var projectTasksCmd = &cobra.Command{
	Use:   "tasks <project-id>",
	Short: "List claimable tasks",
	Args:  cobra.ExactArgs(1),
	RunE: withSchema(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		limit, _ := cmd.Flags().GetInt("limit")
		items, err := app.Budgets.ListAvailableTasks(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		resp := httpapi.NewTaskResponses(items)
		rows := make([]table.Row, 0, len(resp))
		for _, t := range resp {
			rows = append(rows, table.Row{t.ID, t.ExternalID, t.Status})
		}
		return render(cmd.OutOrStdout(), outputFormat, view{data: resp, header: table.Row{"ID", "External ID", "Status"}, rows: rows})
	}),
}

var projectAssignmentsCmd = &cobra.Command{
	Use:   "assignments <project-id>",
	Short: "List assignments of an owned project",
	Args:  cobra.ExactArgs(1),
	RunE: withSchema(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		status, _ := cmd.Flags().GetString("status")
		items, err := app.Assignments.ProjectAssignments(cmd.Context(), assignment.ProjectAssignmentsInput{
			ActorID:   actor,
			ProjectID: args[0],
			Status:    task.AssignmentStatus(status),
		})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, assignmentsView(httpapi.NewAssignmentResponses(items)))
	}),
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(
		projectExternalCmd,
		projectImportCmd,
		projectListCmd,
		projectPublishedCmd,
		projectBudgetCmd,
		projectPublishCmd,
		projectUnpublishCmd,
		projectStatsCmd,
		projectTasksCmd,
		projectAssignmentsCmd,
	)
	projectTasksCmd.Flags().Int("limit", 50, "Maximum tasks to list")
	projectAssignmentsCmd.Flags().String("status", "", "Filter by assignment status")
}
