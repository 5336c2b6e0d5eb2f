package devapi

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"studenthub/domain"
	"studenthub/internal/assertx"
)

var testSecret = []byte("test-secret")

func newTestAPI(t *testing.T) (*echo.Echo, *Store, *Auth) {
	t.Helper()
	store := NewStore()
	store.SetHashCost(bcrypt.MinCost)
	assertx.NoErr(t, SeedRoles(store))
	assertx.NoErr(t, SeedDemo(store))
	auth := NewSecretAuth(testSecret, "", time.Hour)
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return New(store, auth, logger), store, auth
}

func do(t *testing.T, e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func loginAs(t *testing.T, e *echo.Echo, username string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {DemoPassword}, "grant_type": {"password"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", username, rec.Code, rec.Body.String())
	}
	var tok domain.Token
	decode(t, rec, &tok)
	assertx.Equal(t, "bearer", tok.TokenType)
	return tok.AccessToken
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestIssueAndValidate(t *testing.T) {
	auth := NewSecretAuth(testSecret, "studenthub", time.Hour)
	token, err := auth.Issue(42)
	assertx.NoErr(t, err)

	id, err := auth.UserIDFromAuthHeader("Bearer " + token)
	assertx.NoErr(t, err)
	assertx.Equal(t, 42, id)

	other := NewSecretAuth([]byte("other"), "studenthub", time.Hour)
	if _, err := other.UserIDFromBearer(token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestExpiredToken(t *testing.T) {
	auth := NewSecretAuth(testSecret, "", time.Minute)
	auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := auth.Issue(1)
	assertx.NoErr(t, err)

	auth.now = time.Now
	if _, err := auth.UserIDFromBearer(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestRejectsNonNumericSubject(t *testing.T) {
	claims := jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	assertx.NoErr(t, err)

	auth := NewSecretAuth(testSecret, "", time.Hour)
	if _, err := auth.UserIDFromBearer(signed); err == nil || err.Error() != "missing sub" {
		t.Fatalf("expected missing sub, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		raw  string
		want error
	}{
		{"", errMissingAuthorization},
		{"   ", errMissingAuthorization},
		{"Basic abc", errBadAuthorization},
		{"Bearer " + strings.Repeat(".", 10), errBadAuthorization},
		{"Bearer a.b.c", nil},
		{"bearer a.b.c", nil},
	}
	for _, tc := range cases {
		_, err := bearerToken(tc.raw)
		if err != tc.want {
			t.Fatalf("bearerToken(%q) = %v, want %v", tc.raw, err, tc.want)
		}
	}
}

func TestJWKSAuthCannotIssue(t *testing.T) {
	auth := NewJWKSAuth(nil, "", 0)
	if _, err := auth.Issue(1); err != errIssueDisabled {
		t.Fatalf("expected errIssueDisabled, got %v", err)
	}
}

func newTestJWKS(t *testing.T, kid string) (*keyfunc.JWKS, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	assertx.NoErr(t, err)
	set := map[string]any{"keys": []map[string]string{{
		"kty": "RSA",
		"kid": kid,
		"alg": "RS256",
		"use": "sig",
		"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}}}
	raw, err := json.Marshal(set)
	assertx.NoErr(t, err)
	jwks, err := keyfunc.NewJSON(raw)
	assertx.NoErr(t, err)
	return jwks, key
}

func signRS256(t *testing.T, key *rsa.PrivateKey, kid, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": sub,
		"iss": "idp",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	assertx.NoErr(t, err)
	return signed
}

func TestJWKSAuthValidates(t *testing.T) {
	jwks, key := newTestJWKS(t, "k1")
	auth := NewJWKSAuth(jwks, "idp", time.Minute)

	id, err := auth.UserIDFromAuthHeader("Bearer " + signRS256(t, key, "k1", "7"))
	assertx.NoErr(t, err)
	assertx.Equal(t, 7, id)
	if _, ok := auth.keyCache.Load("k1"); !ok {
		t.Fatal("expected the resolved key to be cached")
	}

	if _, err := auth.UserIDFromBearer(signRS256(t, key, "unknown", "7")); err == nil {
		t.Fatal("expected an unknown kid to be rejected")
	}

	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	assertx.NoErr(t, err)
	if _, err := auth.UserIDFromBearer(hs); err == nil {
		t.Fatal("expected an HS256 token to be rejected")
	}

	wrongIssuer := NewJWKSAuth(jwks, "someone-else", time.Minute)
	if _, err := wrongIssuer.UserIDFromBearer(signRS256(t, key, "k1", "7")); err == nil {
		t.Fatal("expected an issuer mismatch to be rejected")
	}
}

func TestJWKSKeyCacheExpiry(t *testing.T) {
	jwks, key := newTestJWKS(t, "k1")
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	assertx.NoErr(t, err)
	auth := NewJWKSAuth(jwks, "", time.Minute)
	token := signRS256(t, key, "k1", "7")

	auth.keyCache.Store("k1", cachedKey{key: &other.PublicKey, expiresAt: time.Now().Add(time.Minute)})
	if _, err := auth.UserIDFromBearer(token); err == nil {
		t.Fatal("expected the cached key to be used")
	}

	auth.keyCache.Store("k1", cachedKey{key: &other.PublicKey, expiresAt: time.Now().Add(-time.Second)})
	id, err := auth.UserIDFromBearer(token)
	assertx.NoErr(t, err)
	assertx.Equal(t, 7, id)
}

func TestLoginAndMe(t *testing.T) {
	e, _, _ := newTestAPI(t)
	token := loginAs(t, e, "ana")

	rec := do(t, e, http.MethodGet, "/auth/users/me", token, "")
	assertx.Equal(t, http.StatusOK, rec.Code)
	var me domain.User
	decode(t, rec, &me)
	assertx.Equal(t, "ana", me.Username)
	assertx.Equal(t, true, me.HasRole(domain.RoleStudent))
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatal("expected a request id header")
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	e, _, _ := newTestAPI(t)
	form := url.Values{"username": {"ana"}, "password": {"wrong-password"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assertx.Equal(t, http.StatusUnauthorized, rec.Code)
	var body struct{ Detail string }
	decode(t, rec, &body)
	assertx.Equal(t, "Incorrect username or password", body.Detail)
}

func TestRoutesRequireToken(t *testing.T) {
	e, _, _ := newTestAPI(t)
	for _, path := range []string{"/courses", "/auth/users/me", "/task-completions"} {
		rec := do(t, e, http.MethodGet, path, "", "")
		assertx.Equal(t, http.StatusUnauthorized, rec.Code)
		assertx.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	}
	rec := do(t, e, http.MethodGet, "/courses", "not.a.jwt", "")
	assertx.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCourseCRUD(t *testing.T) {
	e, _, _ := newTestAPI(t)
	token := loginAs(t, e, "teacher")

	rec := do(t, e, http.MethodPost, "/courses", token, `{"title":"Geometry","category_id":1,"is_active":true}`)
	assertx.Equal(t, http.StatusOK, rec.Code)
	var created domain.Course
	decode(t, rec, &created)
	assertx.Equal(t, 2, created.CourseID)

	rec = do(t, e, http.MethodPut, "/courses/2", token, `{"title":"Geometry II"}`)
	assertx.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, "/courses/2", token, "")
	var got domain.Course
	decode(t, rec, &got)
	assertx.Equal(t, "Geometry II", got.Title)
	assertx.Equal(t, true, got.IsActive)

	rec = do(t, e, http.MethodDelete, "/courses/2", token, "")
	assertx.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, e, http.MethodGet, "/courses/2", token, "")
	assertx.Equal(t, http.StatusNotFound, rec.Code)
	var body struct{ Detail string }
	decode(t, rec, &body)
	assertx.Equal(t, "Course not found", body.Detail)
}

func TestValidationErrors(t *testing.T) {
	e, _, _ := newTestAPI(t)
	token := loginAs(t, e, "teacher")

	rec := do(t, e, http.MethodPost, "/categories", token, `{"name":"ab"}`)
	assertx.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body struct {
		Detail []struct {
			Loc []string `json:"loc"`
			Msg string   `json:"msg"`
		}
	}
	decode(t, rec, &body)
	assertx.Equal(t, 1, len(body.Detail))
	assertx.Equal(t, "name", body.Detail[0].Loc[1])

	rec = do(t, e, http.MethodPost, "/tasks", token, `{"title":"Orphan","course_id":99}`)
	assertx.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodGet, "/tasks/abc", token, "")
	assertx.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, e, http.MethodPost, "/tasks", token, `{not json`)
	assertx.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDuplicateUsername(t *testing.T) {
	e, _, _ := newTestAPI(t)
	token := loginAs(t, e, "admin")
	rec := do(t, e, http.MethodPost, "/users", token,
		`{"username":"ana","first_name":"A","last_name":"S","email":"a@b.cd","password":"secret1","role_id":3,"is_active":true}`)
	assertx.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnrollmentDeadlineFromCourse(t *testing.T) {
	_, store, _ := newTestAPI(t)
	fixed := time.Date(2025, 1, 10, 15, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	en, err := store.CreateEnrollment(domain.EnrollmentCreate{StudentID: 3, CourseID: 1, AssignerID: 2, IsActive: true})
	assertx.NoErr(t, err)
	assertx.Equal(t, "2025-01-10", en.EnrolledAt.String())
	assertx.Equal(t, "2025-02-09", en.Deadline.String())
}

func TestCompletionLifecycle(t *testing.T) {
	e, _, _ := newTestAPI(t)
	token := loginAs(t, e, "ana")

	rec := do(t, e, http.MethodPost, "/task-completions", token, `{"enrollment_id":1,"task_id":1,"is_active":false,"completed_at":null}`)
	assertx.Equal(t, http.StatusOK, rec.Code)
	var c domain.TaskCompletion
	decode(t, rec, &c)
	assertx.Equal(t, domain.StatusPending, domain.StatusOf(&c))

	rec = do(t, e, http.MethodPut, "/task-completions/1", token, `{"enrollment_id":1,"task_id":1,"is_active":true,"completed_at":"2025-03-01T12:00:00Z"}`)
	assertx.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &c)
	assertx.Equal(t, domain.StatusCompleted, domain.StatusOf(&c))

	rec = do(t, e, http.MethodPost, "/task-completions", token, `{"enrollment_id":9,"task_id":1,"is_active":false,"completed_at":null}`)
	assertx.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoleRenameShowsOnUsers(t *testing.T) {
	_, store, _ := newTestAPI(t)
	name := "learner"
	_, err := store.UpdateRole(3, domain.RoleUpdate{Name: &name})
	assertx.NoErr(t, err)
	u, err := store.User(3)
	assertx.NoErr(t, err)
	assertx.Equal(t, "learner", u.Role.Name)
}
