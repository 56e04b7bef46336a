package pasetotoken

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	paseto "aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

type Config struct {
	Mode Mode

	Issuer   string
	Audience string

	AccessTTL time.Duration

	Implicit []byte
}

type Manager struct {
	cfg  Config
	keys Keys
}

func New(cfg Config, keys Keys) (*Manager, error) {
	if cfg.Mode != keys.Mode {
		return nil, ErrConfig{Msg: "cfg.Mode must match keys.Mode"}
	}
	if cfg.Issuer == "" {
		return nil, ErrConfig{Msg: "Issuer is required"}
	}
	if cfg.Audience == "" {
		return nil, ErrConfig{Msg: "Audience is required"}
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}

	return &Manager{cfg: cfg, keys: keys}, nil
}

// parser is built per verification: ValidAt pins the check to a single
// instant, so the rule set cannot be reused across requests.
func (m *Manager) parser() paseto.Parser {
	p := paseto.NewParser()
	p.AddRule(paseto.IssuedBy(m.cfg.Issuer))
	p.AddRule(paseto.ForAudience(m.cfg.Audience))
	p.AddRule(paseto.NotExpired())
	p.AddRule(paseto.ValidAt(time.Now()))
	return p
}

// IssueAccess issues a token asserting identity, role, and hospital scope.
func (m *Manager) IssueAccess(userID uuid.UUID, role string, hospitalID, sessionID *uuid.UUID) (string, error) {
	now := time.Now()

	tok := paseto.NewToken()
	tok.SetIssuer(m.cfg.Issuer)
	tok.SetAudience(m.cfg.Audience)
	tok.SetJti(randHex(16))
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(now.Add(m.cfg.AccessTTL))
	tok.SetSubject(userID.String())

	tok.SetString("uid", userID.String())
	tok.SetString("rol", role)
	if hospitalID != nil {
		tok.SetString("hid", hospitalID.String())
	}
	if sessionID != nil {
		tok.SetString("sid", sessionID.String())
	}

	switch m.cfg.Mode {
	case ModeLocal:
		if m.keys.Symmetric == nil {
			return "", ErrConfig{Msg: "missing symmetric key"}
		}
		return tok.V4Encrypt(*m.keys.Symmetric, m.cfg.Implicit), nil

	case ModePublic:
		if m.keys.Secret == nil {
			return "", ErrConfig{Msg: "missing secret key"}
		}
		return tok.V4Sign(*m.keys.Secret, m.cfg.Implicit), nil

	default:
		return "", ErrConfig{Msg: "unknown mode"}
	}
}

func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	var (
		tok *paseto.Token
		err error
	)

	parse := m.parser()
	switch m.cfg.Mode {
	case ModeLocal:
		if m.keys.Symmetric == nil {
			return nil, ErrConfig{Msg: "missing symmetric key"}
		}
		tok, err = parse.ParseV4Local(*m.keys.Symmetric, tokenStr, m.cfg.Implicit)
	case ModePublic:
		if m.keys.Public == nil {
			return nil, ErrConfig{Msg: "missing public key"}
		}
		tok, err = parse.ParseV4Public(*m.keys.Public, tokenStr, m.cfg.Implicit)
	default:
		return nil, ErrConfig{Msg: "unknown mode"}
	}

	if err != nil {
		return nil, ErrInvalidToken{Err: err}
	}

	claims, err := extractClaims(tok, m.cfg.Issuer, m.cfg.Audience)
	if err != nil {
		return nil, ErrInvalidToken{Err: err}
	}
	return claims, nil
}

func randHex(nBytes int) string {
	b := make([]byte, nBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func extractClaims(tok *paseto.Token, iss, aud string) (*Claims, error) {
	jti, err := tok.GetJti()
	if err != nil {
		return nil, err
	}
	sub, err := tok.GetSubject()
	if err != nil {
		return nil, err
	}
	iat, err := tok.GetIssuedAt()
	if err != nil {
		return nil, err
	}
	nbf, err := tok.GetNotBefore()
	if err != nil {
		return nil, err
	}
	exp, err := tok.GetExpiration()
	if err != nil {
		return nil, err
	}

	out := &Claims{
		Issuer:    iss,
		Audience:  aud,
		TokenID:   jti,
		Subject:   sub,
		IssuedAt:  iat,
		NotBefore: nbf,
		ExpiresAt: exp,
	}

	uidStr, err := tok.GetString("uid")
	if err != nil {
		return nil, err
	}
	uid, err := uuid.Parse(uidStr)
	if err != nil {
		return nil, err
	}
	out.UserID = uid

	role, err := tok.GetString("rol")
	if err != nil {
		return nil, err
	}
	out.Role = role

	// hid is absent for platform-scope callers
	if hidStr, err := tok.GetString("hid"); err == nil {
		hid, err := uuid.Parse(hidStr)
		if err != nil {
			return nil, err
		}
		out.HospitalID = &hid
	}

	if sidStr, err := tok.GetString("sid"); err == nil {
		sid, err := uuid.Parse(sidStr)
		if err != nil {
			return nil, err
		}
		out.SessionID = &sid
	}

	return out, nil
}
