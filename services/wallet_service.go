package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"timeWalletAPI/internal/types/transaction"
)

// WalletService reads the time balance and its ledger. All credits happen
// inside the goal settlement transaction (see GoalService); nothing here
// ever writes balance_seconds directly.
type WalletService struct {
	db *pgxpool.Pool
}

func NewWalletService(db *pgxpool.Pool) *WalletService {
	return &WalletService{db: db}
}

const txColumns = `id, user_id, goal_id, amount_seconds, reason, type, created_at`

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	t := &transaction.Transaction{}
	err := row.Scan(&t.ID, &t.UserID, &t.GoalID, &t.AmountSeconds, &t.Reason, &t.Type, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *WalletService) GetWallet(ctx context.Context, clerkID string) (*transaction.WalletResponse, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	var balance int64
	err = s.db.QueryRow(ctx, `SELECT balance_seconds FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT 10`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	defer rows.Close()

	recent := make([]*transaction.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		recent = append(recent, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return &transaction.WalletResponse{BalanceSeconds: balance, Recent: recent}, nil
}

func (s *WalletService) ListTransactions(ctx context.Context, clerkID string, page, pageSize int) (*transaction.ListResponse, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	rows, err := s.db.Query(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]*transaction.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	var total int
	err = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	return &transaction.ListResponse{
		Transactions: txs,
		TotalCount:   total,
		Page:         page,
		PageSize:     pageSize,
	}, nil
}
