package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

var (
	// ErrNoSigningKey is returned by CreateAccess on a verify-only Manager.
	ErrNoSigningKey = errors.New("jwt: manager has no signing key")
	// ErrMissingKeyID is returned when a key ring is configured and the
	// token header carries no kid.
	ErrMissingKeyID = errors.New("jwt: missing kid")
	// ErrUnknownKeyID is returned when the token kid is not in the key ring.
	ErrUnknownKeyID = errors.New("jwt: unknown kid")
	// ErrIssuedInFuture is returned when iat is beyond MaxFutureIAT.
	ErrIssuedInFuture = errors.New("jwt: iat too far in the future")
)

// Config defines issuance and verification settings.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	// PrivateKey is the HMAC secret for hs256, or an ed25519 private key
	// (raw or PEM). It may be empty for a verify-only ed25519 Manager.
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
	Leeway     time.Duration
	RequireIAT bool
	// MaxFutureIAT bounds clock skew on iat. Zero means 10 minutes.
	MaxFutureIAT time.Duration
	// KeyID is stamped into issued tokens and, without VerifyKeys, required
	// on parsed ones.
	KeyID string
	// VerifyKeys is a key ring by kid, used during key rotation.
	VerifyKeys map[string][]byte
	// Clock overrides time.Now for issuance and validation.
	Clock func() time.Time
}

// Manager issues and verifies console access tokens. Keys are decoded once
// by NewManager.
type Manager struct {
	cfg    Config
	method jwt.SigningMethod
	parser *jwt.Parser

	signKey any
	// ring maps kid to verification key. With byKid unset the single entry
	// under "" is used regardless of the token header.
	ring  map[string]any
	byKid bool
}

// AccessClaims is the payload of a console access token.
type AccessClaims struct {
	UID     string   `json:"uid"`
	SID     string   `json:"sid"`
	Account string   `json:"acc,omitempty"`
	Roles   []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	m := &Manager{cfg: cfg}
	var (
		defaultKey any
		decode     func([]byte) (any, error)
	)
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 requires a key of at least 32 bytes")
		}
		m.method = jwt.SigningMethodHS256
		m.signKey = cfg.PrivateKey
		defaultKey = cfg.PrivateKey
		decode = func(b []byte) (any, error) { return b, nil }

	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.signKey = priv
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			defaultKey = pub
		}
		if len(cfg.VerifyKeys) == 0 && defaultKey == nil {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		decode = func(b []byte) (any, error) { return parseEdPublicKey(b) }

	default:
		return nil, errors.New("unsupported signing method")
	}

	switch {
	case len(cfg.VerifyKeys) > 0:
		m.byKid = true
		m.ring = make(map[string]any, len(cfg.VerifyKeys))
		for kid, raw := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			key, err := decode(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid verify key for kid %q: %w", kid, err)
			}
			m.ring[kid] = key
		}
		if cfg.KeyID != "" {
			if _, ok := m.ring[cfg.KeyID]; !ok {
				return nil, errors.New("KeyID is not present in VerifyKeys")
			}
		}
	case cfg.KeyID != "":
		m.byKid = true
		m.ring = map[string]any{cfg.KeyID: defaultKey}
	default:
		m.ring = map[string]any{"": defaultKey}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return m.cfg.Clock() }),
		jwt.WithExpirationRequired(),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.RequireIAT {
		opts = append(opts, jwt.WithIssuedAt())
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	m.parser = jwt.NewParser(opts...)

	return m, nil
}

// TTL returns the configured access token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.cfg.AccessTTL
}

// CreateAccess signs an access token for the given user and session. Each
// token gets a fresh jti so two tokens issued in the same second differ.
func (m *Manager) CreateAccess(uid, sid, account string, roles []string) (string, error) {
	if m.signKey == nil {
		return "", ErrNoSigningKey
	}
	now := m.cfg.Clock()
	claims := AccessClaims{
		UID:     uid,
		SID:     sid,
		Account: account,
		Roles:   roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   uid,
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.AccessTTL)),
		},
	}
	if m.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.cfg.Audience}
	}

	token := jwt.NewWithClaims(m.method, claims)
	if m.cfg.KeyID != "" {
		token.Header["kid"] = m.cfg.KeyID
	}
	return token.SignedString(m.signKey)
}

// ParseAccess verifies the signature and registered claims of tokenStr.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := m.parser.ParseWithClaims(tokenStr, claims, m.verifyKey)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.IssuedAt != nil && claims.IssuedAt.After(m.cfg.Clock().Add(m.cfg.MaxFutureIAT)) {
		return nil, ErrIssuedInFuture
	}
	return claims, nil
}

func (m *Manager) verifyKey(t *jwt.Token) (any, error) {
	if !m.byKid {
		return m.ring[""], nil
	}
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, ErrMissingKeyID
	}
	key, ok := m.ring[kid]
	if !ok {
		return nil, ErrUnknownKeyID
	}
	return key, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
