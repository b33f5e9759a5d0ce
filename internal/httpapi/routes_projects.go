package httpapi

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"viberate/internal/domain/money"
	"viberate/internal/domain/task"
	"viberate/internal/usecase/assignment"
	"viberate/internal/usecase/budget"
)

type projectPath struct {
	ProjectID string `path:"project_id"`
}

type projectOutput struct {
	Body ProjectResponse `json:"body"`
}

func registerProjects(api huma.API, svc Services) {
	huma.Register(api, huma.Operation{
		OperationID: "set-project-budget",
		Method:      http.MethodPut,
		Path:        "/projects/{project_id}/budget",
		Summary:     "Set the project budget",
		Description: "Recomputes the per-task price from the remaining budget and open tasks.",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string        `path:"project_id"`
		Body      BudgetRequest `json:"body"`
	}) (*projectOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		amount, err := money.ParseBudget(input.Body.Amount)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		p, err := svc.Budgets.SetBudget(ctx, budget.SetBudgetInput{ActorID: actorID, ProjectID: input.ProjectID, Amount: amount})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &projectOutput{Body: NewProjectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "publish-project",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/publish",
		Summary:     "Publish a project to annotators",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *projectPath) (*struct {
		Body PublishResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := svc.Budgets.Publish(ctx, budget.ProjectInput{ActorID: actorID, ProjectID: input.ProjectID})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body PublishResponse `json:"body"`
		}{Body: PublishResponse{Project: NewProjectResponse(res.Project), TasksReleased: res.TasksReleased}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unpublish-project",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/unpublish",
		Summary:     "Withdraw a project from the marketplace",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *projectPath) (*projectOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := svc.Budgets.Unpublish(ctx, budget.ProjectInput{ActorID: actorID, ProjectID: input.ProjectID})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &projectOutput{Body: NewProjectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-published-projects",
		Method:      http.MethodGet,
		Path:        "/projects/published",
		Summary:     "List published projects with open work",
		Errors:      commonErrors,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []ProjectResponse `json:"body"`
	}, error) {
		items, err := svc.Budgets.ListPublishedProjects(ctx)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body []ProjectResponse `json:"body"`
		}{Body: NewListingResponses(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-owned-projects",
		Method:      http.MethodGet,
		Path:        "/projects/mine",
		Summary:     "List the caller's projects",
		Errors:      commonErrors,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []ProjectResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := svc.Budgets.ListOwnedProjects(ctx, actorID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		out := make([]ProjectResponse, 0, len(items))
		for _, p := range items {
			out = append(out, NewProjectResponse(p))
		}
		return &struct {
			Body []ProjectResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-available-tasks",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/tasks",
		Summary:     "List claimable tasks of a project",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Limit     int    `query:"limit" minimum:"0" maximum:"500" default:"50"`
	}) (*struct {
		Body []TaskResponse `json:"body"`
	}, error) {
		items, err := svc.Budgets.ListAvailableTasks(ctx, input.ProjectID, input.Limit)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body []TaskResponse `json:"body"`
		}{Body: NewTaskResponses(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-stats",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/stats",
		Summary:     "Budget and progress of a project",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *projectPath) (*struct {
		Body StatsResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		stats, err := svc.Budgets.ProjectStats(ctx, budget.ProjectInput{ActorID: actorID, ProjectID: input.ProjectID})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body StatsResponse `json:"body"`
		}{Body: NewStatsResponse(stats)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-project-assignments",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/assignments",
		Summary:     "List assignments of an owned project",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Status    string `query:"status" enum:"assigned,accepted,in_progress,submitted,approved,rejected,cancelled"`
	}) (*struct {
		Body []AssignmentResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := svc.Assignments.ProjectAssignments(ctx, assignment.ProjectAssignmentsInput{
			ActorID:   actorID,
			ProjectID: input.ProjectID,
			Status:    task.AssignmentStatus(input.Status),
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body []AssignmentResponse `json:"body"`
		}{Body: NewAssignmentResponses(items)}, nil
	})
}
