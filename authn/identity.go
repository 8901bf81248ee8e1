// Package authn validates bearer tokens issued by the external identity
// provider and exposes the decoded identity + per-library policy checks
// used throughout the request pipeline (§4.11, §6).
/*
 * Copyright (c) 2018-2022, NVIDIA CORPORATION. All rights reserved.
 */
package authn

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
)

const (
	AdminRole = "admin"
	GuestRole = "guest"
)

// Identity is the decoded bearer-token payload that flows through every
// request context, grounded on authn/utils.go's Token type and the
// Keycloak-shaped claims listed in spec §6.
type Identity struct {
	UserID            string
	Roles             []string
	Groups            []string
	Email             string
	PreferredUsername string
	Guest             bool
	Expires           time.Time
}

func (id *Identity) IsAdmin() bool {
	for _, r := range id.Roles {
		if r == AdminRole {
			return true
		}
	}
	return false
}

func (id *Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type claims struct {
	Subject  string `json:"sub"`
	Email    string `json:"email"`
	Username string `json:"preferred_username"`
	Exp      int64  `json:"exp"`
	Aud      interface{} `json:"aud"`
	Iss      string `json:"iss"`
	Azp      string `json:"azp"`
	Realm    struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	Resource map[string]struct {
		Roles []string `json:"roles"`
	} `json:"resource_access"`
	Groups []string `json:"groups"`
	jwt.RegisteredClaims
}

// ErrNoToken, ErrInvalidToken, ErrTokenExpired mirror the teacher's
// authn/utils.go sentinel set (DecryptToken), now expressed through the
// shared cmn.Error taxonomy so the pipeline maps them uniformly.
var (
	ErrNoToken      = cmn.NewError(cmn.KindAuthz, "bearer token required")
	ErrInvalidToken = cmn.NewError(cmn.KindAuthz, "invalid bearer token")
	ErrTokenExpired = cmn.NewError(cmn.KindAuthz, "bearer token expired")
)

// Validator verifies a bearer token against the identity provider's
// published key set (§6, "Identity provider") and decodes it into an
// Identity. Construct one with NewValidator, which wires a JWKS cache.
type Validator struct {
	jwks     *jwksCache
	clientID string
	audience string
	verify   bool
}

func NewValidator(cfg cmn.KeycloakConf) *Validator {
	return &Validator{
		jwks:     newJWKSCache(cfg.URL, cfg.Realm, cfg.JWKSCacheTTL),
		clientID: cfg.ClientID,
		audience: cfg.Audience,
		verify:   cfg.VerifyToken,
	}
}

// ValidateBearer parses the Authorization header value ("Bearer <tok>")
// and returns the decoded Identity, or a typed authz error.
func (v *Validator) ValidateBearer(header string) (*Identity, error) {
	const prefix = "Bearer "
	if header == "" {
		return nil, ErrNoToken
	}
	tokStr := header
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		tokStr = header[len(prefix):]
	}

	var cl claims
	if !v.verify {
		// Verification disabled (local/dev deployments): decode claims
		// without checking the signature.
		parser := jwt.NewParser()
		if _, _, err := parser.ParseUnverified(tokStr, &cl); err != nil {
			return nil, cmn.WrapError(cmn.KindAuthz, err, "decoding bearer token")
		}
	} else {
		keyFunc := func(tok *jwt.Token) (interface{}, error) {
			kid, _ := tok.Header["kid"].(string)
			return v.jwks.key(kid)
		}
		if _, err := jwt.ParseWithClaims(tokStr, &cl, keyFunc); err != nil {
			return nil, cmn.WrapError(cmn.KindAuthz, err, "parsing bearer token")
		}
	}
	if cl.Exp != 0 && time.Unix(cl.Exp, 0).Before(time.Now()) {
		return nil, ErrTokenExpired
	}

	id := &Identity{
		UserID:            cl.Subject,
		Roles:             append([]string{}, cl.Realm.Roles...),
		Groups:            cl.Groups,
		Email:             cl.Email,
		PreferredUsername: cl.Username,
		Expires:           time.Unix(cl.Exp, 0),
	}
	if res, ok := cl.Resource[v.clientID]; ok {
		id.Roles = append(id.Roles, res.Roles...)
	}
	if id.UserID == "" {
		return nil, ErrInvalidToken
	}
	return id, nil
}
