package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pikabook/pkg/models"
)

// GetEntitlement returns the user's entitlement, defaulting to free for
// unknown users.
func (s *Store) GetEntitlement(ctx context.Context, userID string) (models.Entitlement, error) {
	var entitlement string
	err := s.db.QueryRowContext(ctx,
		`SELECT entitlement FROM users WHERE id = ?`, userID).Scan(&entitlement)
	if err == sql.ErrNoRows {
		return models.EntitlementFree, nil
	}
	if err != nil {
		return "", fmt.Errorf("get entitlement: %w", err)
	}
	return models.Entitlement(entitlement), nil
}

// SetEntitlement upserts the user's entitlement.
func (s *Store) SetEntitlement(ctx context.Context, userID string, entitlement models.Entitlement) error {
	if !entitlement.Valid() {
		return models.ErrInvalidEntitlement
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, entitlement, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET entitlement = excluded.entitlement, updated_at = excluded.updated_at`,
		userID, string(entitlement), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("set entitlement: %w", err)
	}
	return nil
}

// MarkTransactionProcessed records a processed purchase transaction.
// Returns false when the transaction was already recorded, which is how the
// billing guard detects redeliveries that survived a restart.
func (s *Store) MarkTransactionProcessed(ctx context.Context, transactionID, userID, productID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_transactions (transaction_id, user_id, product_id, processed_at)
		 VALUES (?, ?, ?, ?)`,
		transactionID, userID, productID, time.Now().UnixNano())
	if err != nil {
		return false, fmt.Errorf("mark transaction processed: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// LoadProcessedTransactions returns all recorded transaction IDs, used to
// warm the billing guard's in-memory set on startup.
func (s *Store) LoadProcessedTransactions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT transaction_id FROM processed_transactions`)
	if err != nil {
		return nil, fmt.Errorf("load processed transactions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan transaction id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
