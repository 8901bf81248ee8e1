package metadata

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
)

func (s *Store) CreateShare(ctx context.Context, sh *cluster.ShareLink) error {
	if sh.ID == uuid.Nil {
		sh.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO share_links (id, token, target_type, target_id, share_type, password_hash,
			expires_at, max_access_count, access_count, allow_guest_access, notify_on_access,
			is_active, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0,$9,$10,true,$11,now())`,
		sh.ID, sh.Token, sh.TargetType, sh.TargetID, sh.ShareType, sh.PasswordHash,
		sh.ExpiresAt, sh.MaxAccessCount, sh.AllowGuestAccess, sh.NotifyOnAccess, sh.CreatedBy)
	if isUniqueViolation(err) {
		return cmn.WrapError(cmn.KindConflict, err, "share token collision")
	}
	return err
}

func (s *Store) GetShareByToken(ctx context.Context, token string) (*cluster.ShareLink, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, token, target_type, target_id, share_type, password_hash, expires_at,
			max_access_count, access_count, allow_guest_access, notify_on_access, is_active,
			created_by, created_at, last_accessed_at
		FROM share_links WHERE token=$1`, token)
	sh := &cluster.ShareLink{}
	err := row.Scan(&sh.ID, &sh.Token, &sh.TargetType, &sh.TargetID, &sh.ShareType, &sh.PasswordHash,
		&sh.ExpiresAt, &sh.MaxAccessCount, &sh.AccessCount, &sh.AllowGuestAccess, &sh.NotifyOnAccess,
		&sh.IsActive, &sh.CreatedBy, &sh.CreatedAt, &sh.LastAccessedAt)
	if err == sql.ErrNoRows {
		return nil, cmn.WrapError(cmn.KindNotFound, err, "share not found")
	}
	if err != nil {
		return nil, err
	}
	return sh, nil
}

func (s *Store) IncrementShareAccess(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE share_links SET access_count=access_count+1, last_accessed_at=now() WHERE id=$1`, id)
	return err
}

func (s *Store) RevokeShare(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE share_links SET is_active=false WHERE id=$1`, id)
	return err
}
