package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"timeWalletAPI/internal/types/notepad"
)

type NotepadService struct {
	db *pgxpool.Pool
}

func NewNotepadService(db *pgxpool.Pool) *NotepadService {
	return &NotepadService{db: db}
}

const notepadColumns = `id, user_id, content, created_at, updated_at`

func scanEntry(row pgx.Row) (*notepad.Entry, error) {
	e := &notepad.Entry{}
	err := row.Scan(&e.ID, &e.UserID, &e.Content, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *NotepadService) CreateEntry(ctx context.Context, clerkID string, req *notepad.SaveEntryRequest) (*notepad.Entry, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	e, err := scanEntry(s.db.QueryRow(ctx, `
		INSERT INTO notepad_entries (user_id, content)
		VALUES ($1, $2)
		RETURNING `+notepadColumns, userID, req.Content))
	if err != nil {
		return nil, fmt.Errorf("failed to create notepad entry: %w", err)
	}
	return e, nil
}

func (s *NotepadService) GetEntries(ctx context.Context, clerkID string) ([]*notepad.Entry, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+notepadColumns+` FROM notepad_entries WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notepad entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*notepad.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *NotepadService) UpdateEntry(ctx context.Context, clerkID string, entryID uuid.UUID, req *notepad.SaveEntryRequest) (*notepad.Entry, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	e, err := scanEntry(s.db.QueryRow(ctx, `
		UPDATE notepad_entries SET content = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+notepadColumns, entryID, userID, req.Content))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("notepad entry not found")
		}
		return nil, fmt.Errorf("failed to update notepad entry: %w", err)
	}
	return e, nil
}

func (s *NotepadService) DeleteEntry(ctx context.Context, clerkID string, entryID uuid.UUID) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx,
		`DELETE FROM notepad_entries WHERE id = $1 AND user_id = $2`, entryID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notepad entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notepad entry not found")
	}
	return nil
}
