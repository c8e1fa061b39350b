package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const uploadLinkColumns = "token, client_name, project_name, expires_at, used_count, created_at, updated_at"

// CreateUploadLink persists a new tokenized upload invitation.
func (s *Store) CreateUploadLink(ctx context.Context, link *UploadLink) error {
	if link == nil {
		return errors.New("upload link is nil")
	}
	now := time.Now().UTC()
	link.CreatedAt = now
	link.UpdatedAt = now
	timestamp := now.Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO upload_links (`+uploadLinkColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		link.Token,
		link.ClientName,
		link.ProjectName,
		nullableTime(link.ExpiresAt),
		link.UsedCount,
		timestamp,
		timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert upload link: %w", err)
	}
	return nil
}

// GetUploadLink fetches a link by token, returning nil when none exists.
func (s *Store) GetUploadLink(ctx context.Context, token string) (*UploadLink, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+uploadLinkColumns+` FROM upload_links WHERE token = ?`, token)
	link, err := scanUploadLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get upload link: %w", err)
	}
	return link, nil
}

// ListUploadLinks returns all links ordered by creation time.
func (s *Store) ListUploadLinks(ctx context.Context) ([]*UploadLink, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+uploadLinkColumns+` FROM upload_links ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list upload links: %w", err)
	}
	defer rows.Close()

	var links []*UploadLink
	for rows.Next() {
		link, err := scanUploadLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// TouchUploadLink increments the usage counter for a token.
func (s *Store) TouchUploadLink(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE upload_links SET used_count = used_count + 1, updated_at = ? WHERE token = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		token,
	)
	if err != nil {
		return fmt.Errorf("touch upload link: %w", err)
	}
	return nil
}

// DeleteUploadLink removes a link by token. Returns false when no row matched.
func (s *Store) DeleteUploadLink(ctx context.Context, token string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM upload_links WHERE token = ?`, token)
	if err != nil {
		return false, fmt.Errorf("delete upload link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteExpiredUploadLinks removes links whose expiry has passed.
func (s *Store) DeleteExpiredUploadLinks(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM upload_links WHERE expires_at IS NOT NULL AND expires_at < ?`,
		now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired upload links: %w", err)
	}
	return res.RowsAffected()
}

func scanUploadLink(scanner interface{ Scan(dest ...any) error }) (*UploadLink, error) {
	var (
		link       UploadLink
		expiresRaw sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&link.Token,
		&link.ClientName,
		&link.ProjectName,
		&expiresRaw,
		&link.UsedCount,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	link.ExpiresAt = scanNullableTime(expiresRaw)
	if created, err := parseTimeString(createdRaw); err == nil {
		link.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		link.UpdatedAt = updated
	}
	return &link, nil
}
