package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleUser    Role = "user"
	RoleSupport Role = "support"
	RoleAdmin   Role = "admin"
	// RoleSystem is used by gateway callbacks that act on behalf of no user.
	RoleSystem Role = "system"
)

var (
	ErrMissingCredential = errors.New("missing_credential")
	ErrInvalidCredential = errors.New("invalid_credential")
)

// Credential is the verified identity of a caller. It is produced once per
// request by a Verifier and passed explicitly into service calls.
type Credential struct {
	UserID snowflake.ID
	Role   Role
}

func (c Credential) IsZero() bool {
	return c.UserID == 0 && c.Role == ""
}

// Owns reports whether the credential belongs to userID.
func (c Credential) Owns(userID snowflake.ID) bool {
	return c.UserID != 0 && c.UserID == userID
}

// SystemCredential identifies internal reconciliation runs.
func SystemCredential() Credential {
	return Credential{Role: RoleSystem}
}

func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case "", RoleUser:
		return RoleUser, true
	case RoleSupport:
		return RoleSupport, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// Verifier turns a raw bearer token into a Credential.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (Credential, error)
}
