package devapi

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

const (
	DefaultTokenTTL     = 24 * time.Hour
	defaultJWKSCacheTTL = 15 * time.Minute
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
	errIssueDisabled        = errors.New("tokens are issued by the identity provider")
)

// Auth issues and validates access tokens. With a shared secret it signs and
// checks HS256 tokens itself; with a JWKS it only validates RS256 tokens
// minted elsewhere.
type Auth struct {
	JWKS     *keyfunc.JWKS
	Issuer   string
	Secret   []byte
	TokenTTL time.Duration

	parser      *jwt.Parser
	keyCache    sync.Map
	keyCacheTTL time.Duration
	now         func() time.Time
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// NewSecretAuth signs tokens with secret, valid for ttl.
func NewSecretAuth(secret []byte, issuer string, ttl time.Duration) *Auth {
	if len(secret) == 0 {
		panic("devapi.NewSecretAuth: secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Auth{
		Secret:   secret,
		Issuer:   issuer,
		TokenTTL: ttl,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
		now:      time.Now,
	}
}

// NewJWKSAuth validates RS256 tokens against jwks.
func NewJWKSAuth(jwks *keyfunc.JWKS, issuer string, keyCacheTTL time.Duration) *Auth {
	if keyCacheTTL <= 0 {
		keyCacheTTL = defaultJWKSCacheTTL
	}
	return &Auth{
		JWKS:        jwks,
		Issuer:      issuer,
		parser:      jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
		keyCacheTTL: keyCacheTTL,
		now:         time.Now,
	}
}

// Issue mints a token whose subject is userID.
func (a *Auth) Issue(userID int) (string, error) {
	if len(a.Secret) == 0 {
		return "", errIssueDisabled
	}
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.TokenTTL)),
	}
	if a.Issuer != "" {
		claims.Issuer = a.Issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
}

// UserIDFromAuthHeader extracts the user id from an Authorization header.
func (a *Auth) UserIDFromAuthHeader(h string) (int, error) {
	token, err := bearerToken(h)
	if err != nil {
		return 0, err
	}
	return a.UserIDFromBearer(token)
}

// UserIDFromBearer validates a raw token and returns its numeric subject.
func (a *Auth) UserIDFromBearer(token string) (int, error) {
	parsed, err := a.parser.Parse(token, func(t *jwt.Token) (any, error) {
		if a.JWKS == nil {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return a.Secret, nil
		}
		return a.keyForToken(t)
	})
	if err != nil {
		return 0, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid claims")
	}
	if !claims.VerifyExpiresAt(a.now().Unix(), true) {
		return 0, errors.New("token expired")
	}
	if a.Issuer != "" && !claims.VerifyIssuer(a.Issuer, true) {
		return 0, errors.New("invalid issuer")
	}

	sub, _ := claims["sub"].(string)
	id, err := strconv.Atoi(sub)
	if err != nil || id <= 0 {
		return 0, errors.New("missing sub")
	}
	return id, nil
}

func (a *Auth) keyForToken(token *jwt.Token) (any, error) {
	kid, _ := token.Header["kid"].(string)
	if kid != "" {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if a.now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}

	key, err := a.JWKS.Keyfunc(token)
	if err != nil {
		return nil, err
	}

	if kid != "" {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: a.now().Add(a.keyCacheTTL)})
	}
	return key, nil
}

func bearerToken(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errMissingAuthorization
	}
	scheme, token, ok := strings.Cut(raw, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errBadAuthorization
	}
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}
