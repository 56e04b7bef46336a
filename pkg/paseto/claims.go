package pasetotoken

import (
	"time"

	"github.com/google/uuid"
)

// Claims are what a verified access token asserts about the caller: identity,
// role, session, and the hospital the caller is scoped to. Platform-scope
// roles carry no hospital.
type Claims struct {
	Issuer    string
	Audience  string
	TokenID   string
	Subject   string
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time

	UserID     uuid.UUID
	Role       string
	HospitalID *uuid.UUID
	SessionID  *uuid.UUID
}
