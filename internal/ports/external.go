package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type ProvisionedWallet struct {
	WalletID string
	Address  string
	// Secret is the opaque wallet data the provider needs to sign for it.
	Secret  string
	Network string
}

type TransferRequest struct {
	WalletSecret string
	ToAddress    string
	Amount       decimal.Decimal
	Asset        string
	Gasless      bool
}

type TransferReceipt struct {
	TxHash       string
	FromAddress  string
	GasUsed      *int64
	GasPriceGwei *decimal.Decimal
}

type TransferRecord struct {
	TxHash string          `json:"tx_hash"`
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
	Asset  string          `json:"asset"`
	Status string          `json:"status"`
}

// WalletProvider executes custody and transfers on the blockchain network.
type WalletProvider interface {
	CreateWallet(ctx context.Context, network string) (ProvisionedWallet, error)
	GetBalance(ctx context.Context, walletSecret string, asset string) (decimal.Decimal, error)
	Transfer(ctx context.Context, req TransferRequest) (TransferReceipt, error)
	ListTransfers(ctx context.Context, walletSecret string) ([]TransferRecord, error)
}

type ExternalProject struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	TaskCount   int    `json:"task_number"`
	LabelConfig string `json:"label_config"`
}

type ExternalTask struct {
	ID        int64           `json:"id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// LabelingToolClient reads projects and tasks from the labeling tool and
// writes annotations back. Failures surface as domain.IntegrationError.
type LabelingToolClient interface {
	ListProjects(ctx context.Context) ([]ExternalProject, error)
	GetProject(ctx context.Context, id int64) (ExternalProject, error)
	ListProjectTasks(ctx context.Context, id int64) ([]ExternalTask, error)
	PushAnnotation(ctx context.Context, taskID int64, result json.RawMessage, approverExternalID string) (int64, error)
}

// DomainEvent is published after the change it describes has committed.
type DomainEvent struct {
	Name       string         `json:"name"`
	ResourceID string         `json:"resource_id"`
	ActorID    string         `json:"actor_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}
