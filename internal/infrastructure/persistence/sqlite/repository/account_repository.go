package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"viberate/internal/domain/account"
	"viberate/internal/infrastructure/persistence/sqlite/model"
	"viberate/internal/ports"
)

type AccountRepository struct {
	db *gorm.DB
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) CreateAccount(ctx context.Context, a account.Account) (account.Account, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return account.Account{}, err
	}

	row := model.Account{
		ID:             a.ID,
		Username:       a.Username,
		Role:           string(a.Role),
		WalletAddress:  a.WalletAddress,
		WalletID:       a.WalletID,
		WalletData:     a.WalletData,
		Rating:         a.Rating,
		TasksCompleted: a.TasksCompleted,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return account.Account{}, translateError(err, "create account")
	}
	return mapAccount(row), nil
}

func (r *AccountRepository) GetAccount(ctx context.Context, id string) (account.Account, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return account.Account{}, err
	}

	var row model.Account
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		return account.Account{}, notFoundOr(err, "account", id, "query account")
	}
	return mapAccount(row), nil
}

func (r *AccountRepository) SetWallet(ctx context.Context, id string, wallet account.Wallet) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	res := db.Model(&model.Account{}).Where("id = ?", id).Updates(map[string]any{
		"wallet_address": wallet.Address,
		"wallet_id":      wallet.ID,
		"wallet_data":    wallet.Data,
		"updated_at":     time.Now().UTC(),
	})
	if res.Error != nil {
		return translateError(res.Error, "update account wallet")
	}
	if res.RowsAffected == 0 {
		return notFoundOr(gorm.ErrRecordNotFound, "account", id, "update account wallet")
	}
	return nil
}

func (r *AccountRepository) RecordCompletion(ctx context.Context, id string, expectedCompleted int, next account.Completion) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	res := db.Model(&model.Account{}).
		Where("id = ? AND tasks_completed = ?", id, expectedCompleted).
		Updates(map[string]any{
			"tasks_completed": next.TasksCompleted,
			"rating":          next.Rating,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return false, translateError(res.Error, "record account completion")
	}
	return res.RowsAffected == 1, nil
}

func mapAccount(row model.Account) account.Account {
	return account.Account{
		ID:             row.ID,
		Username:       row.Username,
		Role:           account.Role(row.Role),
		WalletAddress:  row.WalletAddress,
		WalletID:       row.WalletID,
		WalletData:     row.WalletData,
		Rating:         row.Rating,
		TasksCompleted: row.TasksCompleted,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}
