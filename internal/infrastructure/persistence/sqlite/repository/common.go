package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"viberate/internal/domain"
	"viberate/internal/errs"
	"viberate/internal/ports"
)

func dbFromContext(ctx context.Context, db *gorm.DB) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

// translateError maps store failures onto domain error kinds.
func translateError(err error, op string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrImmutableRecord):
		return errs.Wrap(err, op)
	case strings.Contains(msg, "immutable"):
		return fmt.Errorf("%s: %w: %s", op, domain.ErrImmutableRecord, msg)
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w: %s", op, domain.ErrConflict, msg)
	default:
		return errs.Wrap(err, op)
	}
}

func notFoundOr(err error, entity string, id string, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound(entity, id)
	}
	return translateError(err, op)
}

func toStrings[S ~string](values []S) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, string(v))
	}
	return out
}

// jsonColumn stores an absent document as the JSON literal fallback.
func jsonColumn(raw []byte, fallback string) datatypes.JSON {
	if len(raw) == 0 {
		return datatypes.JSON(fallback)
	}
	return datatypes.JSON(raw)
}

// rawJSON returns nil for SQL-side placeholders of an absent document.
func rawJSON(col datatypes.JSON) json.RawMessage {
	trimmed := strings.TrimSpace(string(col))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	return json.RawMessage(col)
}

func jsonMap(col datatypes.JSON) map[string]any {
	raw := rawJSON(col)
	if raw == nil {
		return nil
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mapColumn(values map[string]any) (datatypes.JSON, error) {
	if len(values) == 0 {
		return datatypes.JSON("{}"), nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil, errs.Wrap(err, "marshal json column")
	}
	return datatypes.JSON(b), nil
}
