package project

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"viberate/internal/domain"
	"viberate/internal/domain/money"
)

var (
	ErrInsufficientBudget = fmt.Errorf("%w: insufficient budget", domain.ErrValidation)
	ErrNegativeBudget     = fmt.Errorf("%w: budget must not be negative", domain.ErrValidation)
)

type Project struct {
	ID             string
	OwnerID        string
	ExternalID     int64
	Title          string
	Description    string
	LabelConfig    string
	Budget         decimal.Decimal
	PricePerTask   decimal.Decimal
	TotalTasks     int
	CompletedTasks int
	IsActive       bool
	IsPublished    bool
	LastSyncedAt   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DerivePrice is budget/total at budget scale when both are positive, else zero.
func DerivePrice(budget decimal.Decimal, totalTasks int) decimal.Decimal {
	if totalTasks <= 0 || !budget.IsPositive() {
		return decimal.Zero
	}
	return money.Budget(budget.Div(decimal.NewFromInt(int64(totalTasks))))
}

// WithBudget validates a new budget and returns the project with the budget
// and derived price applied. A published project cannot drop to zero.
func (p Project) WithBudget(amount decimal.Decimal) (Project, error) {
	if amount.IsNegative() {
		return p, ErrNegativeBudget
	}
	if !amount.Equal(money.Budget(amount)) {
		return p, domain.Invalid("budget %s has more than %d decimal places", amount, money.BudgetPlaces)
	}
	if p.IsPublished && !amount.IsPositive() {
		return p, fmt.Errorf("%w: published project %s requires a positive budget", ErrInsufficientBudget, p.ID)
	}
	p.Budget = amount
	p.PricePerTask = DerivePrice(amount, p.TotalTasks)
	return p, nil
}

// WithCounts applies recounted totals and re-derives the price.
func (p Project) WithCounts(total int, completed int) Project {
	p.TotalTasks = total
	p.CompletedTasks = completed
	p.PricePerTask = DerivePrice(p.Budget, total)
	return p
}

func (p Project) CheckPublishable() error {
	if !p.Budget.IsPositive() {
		return fmt.Errorf("%w: project %s budget is %s", ErrInsufficientBudget, p.ID, money.Format(p.Budget, money.BudgetPlaces))
	}
	return nil
}

// Visible reports whether annotators may see the project's tasks.
func (p Project) Visible() bool {
	return p.IsActive && p.IsPublished
}

func (p Project) RemainingBudget() decimal.Decimal {
	spent := p.PricePerTask.Mul(decimal.NewFromInt(int64(p.CompletedTasks)))
	return money.Budget(p.Budget.Sub(spent))
}

func (p Project) CompletionPercentage() decimal.Decimal {
	if p.TotalTasks <= 0 {
		return decimal.Zero
	}
	ratio := decimal.NewFromInt(int64(p.CompletedTasks)).Div(decimal.NewFromInt(int64(p.TotalTasks)))
	return ratio.Mul(decimal.NewFromInt(100)).RoundBank(2)
}
