// Package share issues and validates share links: token generation,
// password protection, access-count/expiry enforcement, and temporary
// access token issuance on successful access. Grounded on
// original_source/backend/app/services/share.py, using
// golang.org/x/crypto/bcrypt for password hashing in place of the
// original's hand-rolled salt+SHA-256 scheme.
package share

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nicolaslallier/Beacon-Library-sub000/audit"
	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
)

const (
	TargetFile      = "file"
	TargetDirectory = "directory"
	TargetLibrary   = "library"

	TypeView     = "view"
	TypeDownload = "download"
	TypeEdit     = "edit"
)

type Service struct {
	Metadata cluster.MetadataStore
	Audit    *audit.Service
	BaseURL  string
}

func New(metadata cluster.MetadataStore, auditSvc *audit.Service, baseURL string) *Service {
	return &Service{Metadata: metadata, Audit: auditSvc, BaseURL: baseURL}
}

// CreateRequest mirrors ShareLinkCreate's fields.
type CreateRequest struct {
	TargetType       string
	TargetID         uuid.UUID
	ShareType        string
	Password         string
	ExpiresAt        *time.Time
	MaxAccessCount   *int
	AllowGuestAccess bool
	NotifyOnAccess   bool
}

// Create issues a new share link, matching create_share_link.
func (s *Service) Create(ctx context.Context, req CreateRequest, userID uuid.UUID) (*cluster.ShareLink, error) {
	token, err := randomToken(32)
	if err != nil {
		return nil, err
	}

	var passwordHash *string
	if req.Password != "" {
		h, err := hashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		passwordHash = &h
	}

	link := &cluster.ShareLink{
		ID:               uuid.New(),
		Token:            token,
		TargetType:       req.TargetType,
		TargetID:         req.TargetID,
		ShareType:        req.ShareType,
		PasswordHash:     passwordHash,
		ExpiresAt:        req.ExpiresAt,
		MaxAccessCount:   req.MaxAccessCount,
		AllowGuestAccess: req.AllowGuestAccess,
		NotifyOnAccess:   req.NotifyOnAccess,
		IsActive:         true,
		CreatedBy:        userID,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.Metadata.CreateShare(ctx, link); err != nil {
		return nil, err
	}

	if s.Audit != nil {
		_ = s.Audit.LogUser(ctx, userID, audit.ActionShareCreate, req.TargetType, req.TargetID, nil, "", map[string]interface{}{
			"share_type": req.ShareType,
		})
	}
	return link, nil
}

// URL builds the public share URL for a token, matching _to_response's
// share_url field.
func (s *Service) URL(token string) string {
	if s.BaseURL == "" {
		return ""
	}
	return s.BaseURL + "/share/" + token
}

// AccessResult mirrors ShareAccessResponse.
type AccessResult struct {
	AccessToken string
	ShareType   string
	TargetType  string
	TargetID    uuid.UUID
	ExpiresAt   time.Time
}

// Access validates a share link and issues a short-lived access token,
// matching access_share's expiry/count/password checks and token
// lifetime split (24h for download/edit, 1h for view).
func (s *Service) Access(ctx context.Context, token, password string) (*AccessResult, error) {
	link, err := s.Metadata.GetShareByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if link == nil || !link.IsActive {
		return nil, cmn.NewError(cmn.KindNotFound, "share link not found or has been revoked")
	}
	if link.ExpiresAt != nil && link.ExpiresAt.Before(time.Now().UTC()) {
		return nil, cmn.NewError(cmn.KindValidation, "share link has expired")
	}
	if link.MaxAccessCount != nil && link.AccessCount >= *link.MaxAccessCount {
		return nil, cmn.NewError(cmn.KindValidation, "share link access limit reached")
	}
	if link.PasswordHash != nil {
		if password == "" {
			return nil, cmn.NewError(cmn.KindAuthz, "password required")
		}
		if !verifyPassword(password, *link.PasswordHash) {
			return nil, cmn.NewError(cmn.KindAuthz, "invalid password")
		}
	}

	if err := s.Metadata.IncrementShareAccess(ctx, link.ID); err != nil {
		return nil, err
	}

	accessToken, err := randomToken(48)
	if err != nil {
		return nil, err
	}
	lifetime := time.Hour
	if link.ShareType == TypeDownload || link.ShareType == TypeEdit {
		lifetime = 24 * time.Hour
	}

	if s.Audit != nil {
		_ = s.Audit.Log(ctx, audit.Entry{
			ActorType:  audit.ActorShare,
			ActorID:    link.CreatedBy,
			Action:     audit.ActionShareAccess,
			TargetType: link.TargetType,
			TargetID:   link.TargetID,
			Details:    map[string]interface{}{"share_id": link.ID.String(), "access_count": link.AccessCount + 1},
		})
	}

	return &AccessResult{
		AccessToken: accessToken,
		ShareType:   link.ShareType,
		TargetType:  link.TargetType,
		TargetID:    link.TargetID,
		ExpiresAt:   time.Now().UTC().Add(lifetime),
	}, nil
}

// Revoke deactivates a share link, matching revoke_share_link.
func (s *Service) Revoke(ctx context.Context, shareID, userID uuid.UUID) error {
	if err := s.Metadata.RevokeShare(ctx, shareID); err != nil {
		return err
	}
	if s.Audit != nil {
		_ = s.Audit.LogUser(ctx, userID, audit.ActionShareRevoke, "share", shareID, nil, "", nil)
	}
	return nil
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func verifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
