package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	"viberate/internal/domain/money"
	"viberate/internal/domain/task"
	"viberate/internal/usecase/assignment"
)

type assignmentPath struct {
	AssignmentID string `path:"assignment_id"`
}

type assignmentOutput struct {
	Body AssignmentResponse `json:"body"`
}

func registerAssignments(api huma.API, svc Services) {
	huma.Register(api, huma.Operation{
		OperationID:   "claim-task",
		Method:        http.MethodPost,
		Path:          "/tasks/{task_id}/claim",
		Summary:       "Claim an available task",
		DefaultStatus: http.StatusCreated,
		Errors:        commonErrors,
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*assignmentOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := svc.Assignments.Claim(ctx, assignment.ClaimInput{ActorID: actorID, TaskID: input.TaskID})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &assignmentOutput{Body: NewAssignmentResponse(a)}, nil
	})

	actions := []struct {
		id      string
		path    string
		summary string
		run     func(context.Context, assignment.ActionInput) (task.Assignment, error)
	}{
		{"accept-assignment", "/assignments/{assignment_id}/accept", "Accept a claimed assignment", svc.Assignments.Accept},
		{"start-assignment", "/assignments/{assignment_id}/start", "Start work on an assignment", svc.Assignments.Start},
		{"cancel-assignment", "/assignments/{assignment_id}/cancel", "Abandon an assignment", svc.Assignments.Cancel},
	}
	for _, action := range actions {
		run := action.run
		huma.Register(api, huma.Operation{
			OperationID: action.id,
			Method:      http.MethodPost,
			Path:        action.path,
			Summary:     action.summary,
			Errors:      commonErrors,
		}, func(ctx context.Context, input *assignmentPath) (*assignmentOutput, error) {
			actorID, authErr := actorIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			a, err := run(ctx, assignment.ActionInput{ActorID: actorID, AssignmentID: input.AssignmentID})
			if err != nil {
				return nil, handleError(ctx, err)
			}
			return &assignmentOutput{Body: NewAssignmentResponse(a)}, nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "submit-assignment",
		Method:      http.MethodPost,
		Path:        "/assignments/{assignment_id}/submit",
		Summary:     "Submit an annotation result",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		AssignmentID string        `path:"assignment_id"`
		Body         SubmitRequest `json:"body"`
	}) (*assignmentOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		result, err := json.Marshal(input.Body.Result)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "result is not valid JSON", nil)
		}
		a, err := svc.Assignments.Submit(ctx, assignment.SubmitInput{
			ActorID:      actorID,
			AssignmentID: input.AssignmentID,
			Result:       result,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &assignmentOutput{Body: NewAssignmentResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "approve-assignment",
		Method:      http.MethodPost,
		Path:        "/assignments/{assignment_id}/approve",
		Summary:     "Approve a submission and pay the annotator",
		Description: "The payment outcome is reported inline; a failed payment does not undo the approval.",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		AssignmentID string         `path:"assignment_id"`
		Body         ApproveRequest `json:"body"`
	}) (*struct {
		Body ApprovalResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		amount, err := money.ParseUSDC(input.Body.PaymentAmount)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		approve := assignment.ApproveInput{
			ActorID:       actorID,
			AssignmentID:  input.AssignmentID,
			PaymentAmount: amount,
			Feedback:      input.Body.Feedback,
		}
		if input.Body.QualityScore != nil {
			score := decimal.NewFromFloat(*input.Body.QualityScore)
			approve.QualityScore = &score
		}
		res, err := svc.Assignments.Approve(ctx, approve)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body ApprovalResponse `json:"body"`
		}{Body: NewApprovalResponse(res)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "settle-assignment-payment",
		Method:      http.MethodPost,
		Path:        "/assignments/{assignment_id}/settle",
		Summary:     "Pay an approved assignment whose payment never completed",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		AssignmentID string         `path:"assignment_id"`
		Body         *SettleRequest `json:"body" required:"false"`
	}) (*paymentOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		settle := assignment.SettleInput{ActorID: actorID, AssignmentID: input.AssignmentID}
		if input.Body != nil {
			if input.Body.Amount != "" {
				amount, err := money.ParseUSDC(input.Body.Amount)
				if err != nil {
					return nil, handleError(ctx, err)
				}
				settle.Amount = amount
			}
			settle.SenderWalletData = input.Body.SenderWalletData
		}
		tx, err := svc.Assignments.SettlePayment(ctx, settle)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &paymentOutput{Body: NewPaymentResponse(tx)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reject-assignment",
		Method:      http.MethodPost,
		Path:        "/assignments/{assignment_id}/reject",
		Summary:     "Reject a submission and release the task",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		AssignmentID string        `path:"assignment_id"`
		Body         RejectRequest `json:"body"`
	}) (*assignmentOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := svc.Assignments.Reject(ctx, assignment.RejectInput{
			ActorID:      actorID,
			AssignmentID: input.AssignmentID,
			Reason:       input.Body.Reason,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &assignmentOutput{Body: NewAssignmentResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "my-assignments",
		Method:      http.MethodGet,
		Path:        "/assignments/mine",
		Summary:     "List the caller's assignments",
		Errors:      commonErrors,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []AssignmentResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := svc.Assignments.MyAssignments(ctx, actorID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body []AssignmentResponse `json:"body"`
		}{Body: NewAssignmentResponses(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-assignment",
		Method:      http.MethodGet,
		Path:        "/assignments/{assignment_id}",
		Summary:     "Get an assignment",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *assignmentPath) (*assignmentOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := svc.Assignments.GetAssignment(ctx, assignment.ActionInput{ActorID: actorID, AssignmentID: input.AssignmentID})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &assignmentOutput{Body: NewAssignmentResponse(a)}, nil
	})
}
