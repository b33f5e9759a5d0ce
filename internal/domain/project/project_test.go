package project

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"viberate/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDerivePrice(t *testing.T) {
	if got := DerivePrice(dec("100.00"), 10); !got.Equal(dec("10.00")) {
		t.Fatalf("DerivePrice(100, 10) = %s", got)
	}
	if got := DerivePrice(dec("100.00"), 3); !got.Equal(dec("33.33")) {
		t.Fatalf("DerivePrice(100, 3) = %s", got)
	}
	if got := DerivePrice(dec("100.00"), 0); !got.IsZero() {
		t.Fatalf("DerivePrice(100, 0) = %s, want 0", got)
	}
	if got := DerivePrice(decimal.Zero, 5); !got.IsZero() {
		t.Fatalf("DerivePrice(0, 5) = %s, want 0", got)
	}
}

func TestWithBudget(t *testing.T) {
	p := Project{ID: "p1", TotalTasks: 4}

	got, err := p.WithBudget(dec("50.00"))
	if err != nil {
		t.Fatalf("WithBudget() error = %v", err)
	}
	if !got.PricePerTask.Equal(dec("12.50")) {
		t.Fatalf("PricePerTask = %s, want 12.50", got.PricePerTask)
	}

	if _, err := p.WithBudget(dec("-1")); !errors.Is(err, ErrNegativeBudget) {
		t.Fatalf("WithBudget(-1) error = %v, want ErrNegativeBudget", err)
	}
	if _, err := p.WithBudget(dec("1.005")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("WithBudget(1.005) error = %v, want ErrValidation", err)
	}

	published := Project{ID: "p2", IsPublished: true, Budget: dec("10")}
	if _, err := published.WithBudget(decimal.Zero); !errors.Is(err, ErrInsufficientBudget) {
		t.Fatalf("WithBudget(0) on published error = %v, want ErrInsufficientBudget", err)
	}
}

func TestCheckPublishable(t *testing.T) {
	if err := (Project{ID: "p"}).CheckPublishable(); !errors.Is(err, ErrInsufficientBudget) {
		t.Fatalf("CheckPublishable() error = %v, want ErrInsufficientBudget", err)
	}
	if err := (Project{ID: "p", Budget: dec("0.01")}).CheckPublishable(); err != nil {
		t.Fatalf("CheckPublishable() error = %v", err)
	}
}

func TestVisibilityAndStats(t *testing.T) {
	p := Project{IsActive: true, IsPublished: false}
	if p.Visible() {
		t.Fatalf("Visible() = true for unpublished project")
	}
	p.IsPublished = true
	if !p.Visible() {
		t.Fatalf("Visible() = false for active published project")
	}
	p.IsActive = false
	if p.Visible() {
		t.Fatalf("Visible() = true for inactive project")
	}

	stats := Project{Budget: dec("100.00")}.WithCounts(10, 3)
	if !stats.RemainingBudget().Equal(dec("70.00")) {
		t.Fatalf("RemainingBudget() = %s, want 70.00", stats.RemainingBudget())
	}
	if !stats.CompletionPercentage().Equal(dec("30")) {
		t.Fatalf("CompletionPercentage() = %s, want 30", stats.CompletionPercentage())
	}
}
