package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"viberate/internal/domain/payment"
	"viberate/internal/infrastructure/persistence/sqlite/model"
	"viberate/internal/ports"
)

type PaymentRepository struct {
	db *gorm.DB
}

var _ ports.PaymentRepository = (*PaymentRepository)(nil)

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) CreateTransaction(ctx context.Context, tx payment.Transaction) (payment.Transaction, bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return payment.Transaction{}, false, err
	}

	metadata, err := mapColumn(tx.Metadata)
	if err != nil {
		return payment.Transaction{}, false, err
	}
	row := model.PaymentTransaction{
		ID:              tx.ID,
		AssignmentID:    tx.AssignmentID,
		RecipientID:     tx.RecipientID,
		AmountUSDC:      tx.AmountUSDC,
		PlatformFeeUSDC: tx.PlatformFeeUSDC,
		Network:         tx.Network,
		TransactionHash: tx.TransactionHash,
		FromAddress:     tx.FromAddress,
		ToAddress:       tx.ToAddress,
		Status:          string(tx.Status),
		CreatedAt:       tx.CreatedAt,
		ErrorMessage:    tx.ErrorMessage,
		RetryCount:      tx.RetryCount,
		Metadata:        metadata,
	}

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "assignment_id"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return payment.Transaction{}, false, translateError(res.Error, "create payment transaction")
	}
	if res.RowsAffected == 0 {
		existing, err := r.GetByAssignment(ctx, tx.AssignmentID)
		if err != nil {
			return payment.Transaction{}, false, err
		}
		return existing, false, nil
	}
	return mapPayment(row), true, nil
}

func (r *PaymentRepository) GetTransaction(ctx context.Context, id string) (payment.Transaction, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return payment.Transaction{}, err
	}

	var row model.PaymentTransaction
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		return payment.Transaction{}, notFoundOr(err, "payment", id, "query payment transaction")
	}
	return mapPayment(row), nil
}

func (r *PaymentRepository) GetByAssignment(ctx context.Context, assignmentID string) (payment.Transaction, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return payment.Transaction{}, err
	}

	var row model.PaymentTransaction
	if err := db.Where("assignment_id = ?", assignmentID).Take(&row).Error; err != nil {
		return payment.Transaction{}, notFoundOr(err, "payment for assignment", assignmentID, "query payment by assignment")
	}
	return mapPayment(row), nil
}

func (r *PaymentRepository) UpdateProgress(ctx context.Context, id string, from []payment.Status, p payment.Progress) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	updates := map[string]any{"status": string(p.Status)}
	if p.TransactionHash != nil {
		updates["transaction_hash"] = *p.TransactionHash
	}
	if p.FromAddress != nil {
		updates["from_address"] = *p.FromAddress
	}
	if p.ProcessedAt != nil {
		updates["processed_at"] = *p.ProcessedAt
	}
	if p.CompletedAt != nil {
		updates["completed_at"] = *p.CompletedAt
	}
	if p.ErrorMessage != nil {
		updates["error_message"] = *p.ErrorMessage
	}
	if p.IncrementRetry {
		updates["retry_count"] = gorm.Expr("retry_count + 1")
	}
	if p.GasUsed != nil {
		updates["gas_used"] = *p.GasUsed
	}
	if p.GasPriceGwei != nil {
		updates["gas_price_gwei"] = *p.GasPriceGwei
	}
	if p.Metadata != nil {
		metadata, err := mapColumn(p.Metadata)
		if err != nil {
			return false, err
		}
		updates["metadata"] = metadata
	}

	res := db.Model(&model.PaymentTransaction{}).
		Where("id = ? AND status IN ?", id, toStrings(from)).
		Updates(updates)
	if res.Error != nil {
		return false, translateError(res.Error, "update payment progress")
	}
	return res.RowsAffected == 1, nil
}

func (r *PaymentRepository) ListByRecipient(ctx context.Context, recipientID string) ([]payment.Transaction, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.PaymentTransaction
	if err := db.Where("recipient_id = ?", recipientID).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, translateError(err, "query recipient payments")
	}

	items := make([]payment.Transaction, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapPayment(row))
	}
	return items, nil
}

func mapPayment(row model.PaymentTransaction) payment.Transaction {
	return payment.Transaction{
		ID:              row.ID,
		AssignmentID:    row.AssignmentID,
		RecipientID:     row.RecipientID,
		AmountUSDC:      row.AmountUSDC,
		PlatformFeeUSDC: row.PlatformFeeUSDC,
		Network:         row.Network,
		TransactionHash: row.TransactionHash,
		FromAddress:     row.FromAddress,
		ToAddress:       row.ToAddress,
		Status:          payment.Status(row.Status),
		CreatedAt:       row.CreatedAt,
		ProcessedAt:     row.ProcessedAt,
		CompletedAt:     row.CompletedAt,
		ErrorMessage:    row.ErrorMessage,
		RetryCount:      row.RetryCount,
		GasUsed:         row.GasUsed,
		GasPriceGwei:    row.GasPriceGwei,
		Metadata:        jsonMap(row.Metadata),
	}
}
