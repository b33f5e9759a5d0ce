package account

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"viberate/internal/domain"
)

type Role string

const (
	RoleResearcher Role = "researcher"
	RoleAnnotator  Role = "annotator"
)

var ErrUnknownRole = errors.New("unknown account role")

const MaxUsernameLength = 150

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidateAddress accepts a 0x-prefixed 20-byte hex address.
func ValidateAddress(address string) error {
	if !addressPattern.MatchString(address) {
		return domain.Invalid("wallet address %q is not a 0x-prefixed 40 digit hex address", address)
	}
	return nil
}

func ValidateUsername(username string) error {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return domain.Invalid("username is required")
	}
	if len(trimmed) > MaxUsernameLength {
		return domain.Invalid("username longer than %d characters", MaxUsernameLength)
	}
	return nil
}

func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleResearcher:
		return RoleResearcher, nil
	case RoleAnnotator:
		return RoleAnnotator, nil
	default:
		return "", domain.Invalid("%v: %q", ErrUnknownRole, raw)
	}
}

type Account struct {
	ID             string
	Username       string
	Role           Role
	WalletAddress  string
	WalletID       string
	WalletData     string
	Rating         decimal.Decimal
	TasksCompleted int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Wallet is the connectable wallet state of an account.
type Wallet struct {
	Address string
	ID      string
	Data    string
}

func (a Account) HasWallet() bool {
	return strings.TrimSpace(a.WalletAddress) != ""
}

// Require returns ErrForbidden unless the account has the given role.
func (a Account) Require(role Role, operation string) error {
	if a.Role != role {
		return domain.Forbidden(string(a.Role)+" "+a.ID, operation)
	}
	return nil
}
