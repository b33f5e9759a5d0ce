package httpapi

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"viberate/internal/domain/account"
	"viberate/internal/domain/money"
	"viberate/internal/domain/payment"
	"viberate/internal/domain/project"
	"viberate/internal/domain/task"
	"viberate/internal/ports"
	accountuc "viberate/internal/usecase/account"
	"viberate/internal/usecase/assignment"
	"viberate/internal/usecase/budget"
)

// Request payloads

type SubmitRequest struct {
	Result any `json:"result" doc:"Annotation result; a JSON object or array"`
}

type ApproveRequest struct {
	PaymentAmount string   `json:"payment_amount" example:"10.00" doc:"USDC amount, up to six decimal places"`
	QualityScore  *float64 `json:"quality_score,omitempty" minimum:"0" maximum:"10" example:"8.5"`
	Feedback      string   `json:"feedback,omitempty"`
}

type RejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

type BudgetRequest struct {
	Amount string `json:"amount" example:"100.00"`
}

type ConnectWalletRequest struct {
	Address string `json:"address" example:"0x0000000000000000000000000000000000000001"`
}

type RetryPaymentRequest struct {
	SenderWalletData string `json:"sender_wallet_data,omitempty"`
}

type SettleRequest struct {
	Amount           string `json:"amount,omitempty" example:"10.00" doc:"USDC amount; required when no payment was recorded"`
	SenderWalletData string `json:"sender_wallet_data,omitempty"`
}

// Responses

type AssignmentResponse struct {
	ID           string     `json:"id"`
	TaskID       string     `json:"task_id"`
	ProjectID    string     `json:"project_id"`
	AnnotatorID  string     `json:"annotator_id"`
	Status       string     `json:"status"`
	Result       any        `json:"result,omitempty"`
	QualityScore *float64   `json:"quality_score,omitempty"`
	Feedback     string     `json:"feedback,omitempty"`
	AssignedAt   time.Time  `json:"assigned_at"`
	AcceptedAt   *time.Time `json:"accepted_at,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type PaymentSummaryResponse struct {
	TransactionID   string  `json:"transaction_id"`
	AmountUSDC      string  `json:"amount_usdc"`
	Status          string  `json:"status"`
	TransactionHash *string `json:"transaction_hash,omitempty"`
	Error           string  `json:"error,omitempty"`
}

type ApprovalResponse struct {
	Assignment   AssignmentResponse      `json:"assignment"`
	Payment      *PaymentSummaryResponse `json:"payment,omitempty"`
	PaymentError string                  `json:"payment_error,omitempty"`
}

type ProjectResponse struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"`
	ExternalID     int64      `json:"external_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Budget         string     `json:"budget"`
	PricePerTask   string     `json:"price_per_task"`
	TotalTasks     int        `json:"total_tasks"`
	CompletedTasks int        `json:"completed_tasks"`
	IsActive       bool       `json:"is_active"`
	IsPublished    bool       `json:"is_published"`
	AvailableTasks *int       `json:"available_tasks,omitempty"`
	LastSyncedAt   *time.Time `json:"last_synced_at,omitempty"`
}

type PublishResponse struct {
	Project       ProjectResponse `json:"project"`
	TasksReleased int64           `json:"tasks_released"`
}

type StatsResponse struct {
	Project              ProjectResponse `json:"project"`
	RemainingBudget      string          `json:"remaining_budget"`
	CompletionPercentage string          `json:"completion_percentage"`
	TasksByStatus        map[string]int  `json:"tasks_by_status"`
}

type TaskResponse struct {
	ID         string `json:"id"`
	ProjectID  string `json:"project_id"`
	ExternalID int64  `json:"external_id"`
	Status     string `json:"status"`
	Data       any    `json:"data,omitempty"`
}

type PaymentResponse struct {
	ID              string     `json:"id"`
	AssignmentID    string     `json:"assignment_id"`
	RecipientID     string     `json:"recipient_id"`
	AmountUSDC      string     `json:"amount_usdc"`
	PlatformFeeUSDC string     `json:"platform_fee_usdc"`
	Network         string     `json:"network"`
	TransactionHash *string    `json:"transaction_hash,omitempty"`
	FromAddress     string     `json:"from_address"`
	ToAddress       string     `json:"to_address"`
	Status          string     `json:"status"`
	RetryCount      int        `json:"retry_count"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

type AccountResponse struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Role           string `json:"role"`
	WalletAddress  string `json:"wallet_address,omitempty"`
	Rating         string `json:"rating"`
	TasksCompleted int    `json:"tasks_completed"`
}

type BalanceResponse struct {
	Address   string    `json:"address"`
	Asset     string    `json:"asset"`
	Amount    string    `json:"amount"`
	FetchedAt time.Time `json:"fetched_at"`
	Stale     bool      `json:"stale"`
}

type TransferResponse struct {
	TxHash string `json:"tx_hash"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
	Asset  string `json:"asset"`
	Status string `json:"status"`
}

func decodeJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func NewAssignmentResponse(a task.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:           a.ID,
		TaskID:       a.TaskID,
		ProjectID:    a.ProjectID,
		AnnotatorID:  a.AnnotatorID,
		Status:       string(a.Status),
		Result:       decodeJSON(a.Result),
		QualityScore: scoreValue(a.QualityScore),
		Feedback:     a.Feedback,
		AssignedAt:   a.AssignedAt,
		AcceptedAt:   a.AcceptedAt,
		StartedAt:    a.StartedAt,
		SubmittedAt:  a.SubmittedAt,
		CompletedAt:  a.CompletedAt,
	}
}

func NewAssignmentResponses(items []task.Assignment) []AssignmentResponse {
	out := make([]AssignmentResponse, 0, len(items))
	for _, a := range items {
		out = append(out, NewAssignmentResponse(a))
	}
	return out
}

func toSummaryResponse(s payment.Summary) PaymentSummaryResponse {
	return PaymentSummaryResponse{
		TransactionID:   s.TransactionID,
		AmountUSDC:      money.Format(s.AmountUSDC, money.USDCPlaces),
		Status:          string(s.Status),
		TransactionHash: s.TransactionHash,
		Error:           s.Error,
	}
}

func NewApprovalResponse(r assignment.ApprovalResult) ApprovalResponse {
	out := ApprovalResponse{
		Assignment:   NewAssignmentResponse(r.Assignment),
		PaymentError: r.PaymentError,
	}
	if r.Payment != nil {
		summary := toSummaryResponse(*r.Payment)
		out.Payment = &summary
	}
	return out
}

func NewProjectResponse(p project.Project) ProjectResponse {
	return ProjectResponse{
		ID:             p.ID,
		OwnerID:        p.OwnerID,
		ExternalID:     p.ExternalID,
		Title:          p.Title,
		Description:    p.Description,
		Budget:         money.Format(p.Budget, money.BudgetPlaces),
		PricePerTask:   money.Format(p.PricePerTask, money.BudgetPlaces),
		TotalTasks:     p.TotalTasks,
		CompletedTasks: p.CompletedTasks,
		IsActive:       p.IsActive,
		IsPublished:    p.IsPublished,
		LastSyncedAt:   p.LastSyncedAt,
	}
}

func NewListingResponses(items []ports.ProjectListing) []ProjectResponse {
	out := make([]ProjectResponse, 0, len(items))
	for _, item := range items {
		resp := NewProjectResponse(item.Project)
		available := item.AvailableTasks
		resp.AvailableTasks = &available
		out = append(out, resp)
	}
	return out
}

func NewStatsResponse(s budget.Stats) StatsResponse {
	counts := make(map[string]int, len(s.TasksByStatus))
	for status, n := range s.TasksByStatus {
		counts[string(status)] = n
	}
	return StatsResponse{
		Project:              NewProjectResponse(s.Project),
		RemainingBudget:      money.Format(s.RemainingBudget, money.BudgetPlaces),
		CompletionPercentage: money.Format(s.CompletionPercentage, 2),
		TasksByStatus:        counts,
	}
}

func NewTaskResponses(items []task.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(items))
	for _, t := range items {
		out = append(out, TaskResponse{
			ID:         t.ID,
			ProjectID:  t.ProjectID,
			ExternalID: t.ExternalID,
			Status:     string(t.Status),
			Data:       decodeJSON(t.Data),
		})
	}
	return out
}

func NewPaymentResponse(tx payment.Transaction) PaymentResponse {
	return PaymentResponse{
		ID:              tx.ID,
		AssignmentID:    tx.AssignmentID,
		RecipientID:     tx.RecipientID,
		AmountUSDC:      money.Format(tx.AmountUSDC, money.USDCPlaces),
		PlatformFeeUSDC: money.Format(tx.PlatformFeeUSDC, money.USDCPlaces),
		Network:         tx.Network,
		TransactionHash: tx.TransactionHash,
		FromAddress:     tx.FromAddress,
		ToAddress:       tx.ToAddress,
		Status:          string(tx.Status),
		RetryCount:      tx.RetryCount,
		ErrorMessage:    tx.ErrorMessage,
		CreatedAt:       tx.CreatedAt,
		ProcessedAt:     tx.ProcessedAt,
		CompletedAt:     tx.CompletedAt,
	}
}

func NewAccountResponse(a account.Account) AccountResponse {
	return AccountResponse{
		ID:             a.ID,
		Username:       a.Username,
		Role:           string(a.Role),
		WalletAddress:  a.WalletAddress,
		Rating:         money.Format(a.Rating, 2),
		TasksCompleted: a.TasksCompleted,
	}
}

func NewBalanceResponse(b accountuc.Balance) BalanceResponse {
	return BalanceResponse{
		Address:   b.Address,
		Asset:     b.Asset,
		Amount:    b.Amount,
		FetchedAt: b.FetchedAt,
		Stale:     b.Stale,
	}
}

func NewTransferResponses(items []ports.TransferRecord) []TransferResponse {
	out := make([]TransferResponse, 0, len(items))
	for _, r := range items {
		out = append(out, TransferResponse{
			TxHash: r.TxHash,
			From:   r.From,
			To:     r.To,
			Amount: money.Format(r.Amount, money.USDCPlaces),
			Asset:  r.Asset,
			Status: r.Status,
		})
	}
	return out
}

func scoreValue(score *decimal.Decimal) *float64 {
	if score == nil {
		return nil
	}
	v := score.InexactFloat64()
	return &v
}
