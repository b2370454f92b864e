package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinKeyLength is the minimum HMAC key size in bytes (256 bits).
const MinKeyLength = 32

// maxLeeway caps the configurable clock-skew tolerance.
const maxLeeway = 5 * time.Minute

var (
	// ErrTokenMalformed is returned when a token cannot be parsed or lacks required claims.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired is returned when a token is past its expiry beyond the allowed skew.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenWrongType is returned when an access token is presented as a refresh token or vice versa.
	ErrTokenWrongType = errors.New("token wrong type")
	// ErrTokenInvalid is returned for bad signatures, unknown keys, issuer mismatch and
	// tokens that are not valid yet.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrKeyTooShort is returned by NewManager when a signing or verify key is under 256 bits.
	ErrKeyTooShort = errors.New("signing key shorter than 256 bits")
	// ErrSubjectRequired is returned when issuing a token for an empty subject.
	ErrSubjectRequired = errors.New("subject required")
)

// Config holds the token issuer settings. It is copied into the Manager and
// treated as immutable afterwards.
type Config struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Leeway is the allowed clock skew applied to exp, nbf and iat checks.
	Leeway     time.Duration
	SigningKey []byte
	// KeyID, when set, is written to the kid header of issued tokens.
	KeyID string
	// VerifyKeys lets retired keys keep verifying tokens during rotation.
	// When non-empty, every token must carry a kid present in this map.
	VerifyKeys map[string][]byte
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Manager issues and decodes HS256 session tokens. It is safe for concurrent use.
type Manager struct {
	config Config
	parser *jwt.Parser
}

// NewManager validates cfg and returns a Manager. Key material shorter than
// [MinKeyLength] is rejected here so a misconfigured process never starts serving.
func NewManager(cfg Config) (*Manager, error) {
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	if cfg.Issuer == "" {
		return nil, errors.New("issuer required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("refresh TTL must exceed access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	if len(cfg.SigningKey) < MinKeyLength {
		return nil, fmt.Errorf("%w: got %d bytes, need %d", ErrKeyTooShort, len(cfg.SigningKey), MinKeyLength)
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	verify := make(map[string][]byte, len(cfg.VerifyKeys))
	for kid, key := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("verify key map contains empty kid")
		}
		if len(key) < MinKeyLength {
			return nil, fmt.Errorf("%w: verify key %q", ErrKeyTooShort, kid)
		}
		verify[kid] = append([]byte(nil), key...)
	}
	if len(verify) > 0 {
		if cfg.KeyID == "" {
			return nil, errors.New("KeyID required when VerifyKeys is set")
		}
		if _, ok := verify[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}
	cfg.VerifyKeys = verify
	cfg.SigningKey = append([]byte(nil), cfg.SigningKey...)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}

	return &Manager{config: cfg, parser: jwt.NewParser(options...)}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// Now returns the manager's clock reading.
func (m *Manager) Now() time.Time { return m.config.Now() }

// IssueAccess signs a short-lived access token for subjectID.
func (m *Manager) IssueAccess(subjectID string) (string, error) {
	token, _, err := m.issue(subjectID, TypeAccess, "", m.config.AccessTTL)
	return token, err
}

// IssueRefresh signs a long-lived refresh token for subjectID with a fresh jti.
// The returned claims carry the jti and expiry the session store needs.
func (m *Manager) IssueRefresh(subjectID string) (string, SessionClaims, error) {
	return m.issue(subjectID, TypeRefresh, uuid.NewString(), m.config.RefreshTTL)
}

func (m *Manager) issue(subjectID string, typ TokenType, jti string, ttl time.Duration) (string, SessionClaims, error) {
	if strings.TrimSpace(subjectID) == "" {
		return "", SessionClaims{}, ErrSubjectRequired
	}

	now := m.config.Now()
	claims := tokenClaims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   subjectID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}

	signed, err := token.SignedString(m.config.SigningKey)
	if err != nil {
		return "", SessionClaims{}, err
	}
	return signed, claims.session(), nil
}

// Decode verifies signature, issuer and expiry (with the configured leeway)
// and returns the claims. It does not check the token type.
func (m *Manager) Decode(tokenStr string) (SessionClaims, error) {
	if tokenStr == "" {
		return SessionClaims{}, ErrTokenMalformed
	}

	claims := &tokenClaims{}
	token, err := m.parser.ParseWithClaims(tokenStr, claims, m.keyFunc)
	if err != nil {
		return SessionClaims{}, classify(err)
	}
	if !token.Valid {
		return SessionClaims{}, ErrTokenInvalid
	}
	if claims.Subject == "" || !claims.Type.valid() {
		return SessionClaims{}, ErrTokenMalformed
	}

	return claims.session(), nil
}

// DecodeAccess decodes tokenStr and asserts it is an access token.
func (m *Manager) DecodeAccess(tokenStr string) (SessionClaims, error) {
	claims, err := m.Decode(tokenStr)
	if err != nil {
		return SessionClaims{}, err
	}
	if claims.Type != TypeAccess {
		return SessionClaims{}, ErrTokenWrongType
	}
	return claims, nil
}

// DecodeRefresh decodes tokenStr and asserts it is a refresh token carrying a jti.
func (m *Manager) DecodeRefresh(tokenStr string) (SessionClaims, error) {
	claims, err := m.Decode(tokenStr)
	if err != nil {
		return SessionClaims{}, err
	}
	if claims.Type != TypeRefresh {
		return SessionClaims{}, ErrTokenWrongType
	}
	if strings.TrimSpace(claims.JTI) == "" {
		return SessionClaims{}, ErrTokenMalformed
	}
	return claims, nil
}

// IsValid reports whether tokenStr decodes cleanly. All failures collapse to false.
func (m *Manager) IsValid(tokenStr string) bool {
	_, err := m.Decode(tokenStr)
	return err == nil
}

func (m *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	kid, _ := t.Header["kid"].(string)
	if len(m.config.VerifyKeys) > 0 {
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := m.config.VerifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return key, nil
	}

	if m.config.KeyID != "" && kid != m.config.KeyID {
		return nil, errors.New("unknown kid")
	}
	return m.config.SigningKey, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}
