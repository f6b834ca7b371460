package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/config"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/security"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/repository"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeUsers serves a single fixed user.
type fakeUsers struct {
	mu   sync.Mutex
	user *domain.User
}

func (r *fakeUsers) get() *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.user == nil {
		return nil
	}
	copied := *r.user
	return &copied
}

func (r *fakeUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if u := r.get(); u != nil && u.ID == id {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUsers) GetByName(_ context.Context, name string) (*domain.User, error) {
	if u := r.get(); u != nil && u.Name == name {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUsers) mutate(fn func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.user == nil {
		return repository.ErrNotFound
	}
	fn(r.user)
	return nil
}

func (r *fakeUsers) UpdateFailedAttempts(_ context.Context, _ int64, attempts int, _ int64) error {
	return r.mutate(func(u *domain.User) { u.NumFailedLoginAttempts = attempts })
}

func (r *fakeUsers) Lock(_ context.Context, _ int64, lockUntil *time.Time, attempts int, _ int64) error {
	return r.mutate(func(u *domain.User) {
		u.Status = domain.UserStatusLocked
		u.LockUntil = lockUntil
		u.NumFailedLoginAttempts = attempts
	})
}

func (r *fakeUsers) Unlock(_ context.Context, _ int64, _ int64) error {
	return r.mutate(func(u *domain.User) {
		u.Status = domain.UserStatusActive
		u.LockUntil = nil
		u.NumFailedLoginAttempts = 0
	})
}

func (r *fakeUsers) ResetFailedAttempts(_ context.Context, _ int64, _ int64) error {
	return r.mutate(func(u *domain.User) { u.NumFailedLoginAttempts = 0 })
}

func (r *fakeUsers) UpdateLastLoginAt(_ context.Context, _ int64, at time.Time) error {
	return r.mutate(func(u *domain.User) { u.LastLoginAt = &at })
}

func (r *fakeUsers) UpdatePassword(_ context.Context, _ int64, hash string, _ int64) error {
	return r.mutate(func(u *domain.User) {
		u.PasswordHash = hash
		u.PasswordExpiryDate = nil
	})
}

func (r *fakeUsers) ClearFirstLogin(_ context.Context, _ int64, _ int64) error {
	return r.mutate(func(u *domain.User) { u.IsFirstLogin = false })
}

var _ port.UserRepository = (*fakeUsers)(nil)

// fakeHasher treats "hashed:<plain>" as the stored form.
type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func (fakeHasher) Verify(plain, stored string) (bool, error) {
	return stored == "hashed:"+plain, nil
}

func (fakeHasher) DummyVerify(string) {}

// fakeSessions is an in-memory port.SessionStore.
type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]*domain.Session)}
}

func (s *fakeSessions) Create(_ context.Context, maxInactive time.Duration) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := security.GenerateSessionID()
	if err != nil {
		return nil, err
	}
	session := &domain.Session{
		ID:          id,
		CreatedAt:   time.Now().UTC(),
		LastSeenAt:  time.Now().UTC(),
		MaxInactive: maxInactive,
	}
	s.sessions[id] = session
	copied := *session
	return &copied, nil
}

func (s *fakeSessions) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *fakeSessions) SetAttributes(_ context.Context, id string, attrs port.SessionAttributes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if attrs.UserID != nil {
		session.UserID = attrs.UserID
	}
	if attrs.TempToken != nil {
		session.TempToken = *attrs.TempToken
	}
	if attrs.ChangeReason != nil {
		session.ChangeReason = *attrs.ChangeReason
	}
	if attrs.Username != nil {
		session.Username = *attrs.Username
	}
	return nil
}

func (s *fakeSessions) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *fakeSessions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

var _ port.SessionStore = (*fakeSessions)(nil)

type nopPublisher struct{}

func (nopPublisher) PublishUserCreated(context.Context, domain.UserCreatedEvent) error { return nil }
func (nopPublisher) PublishUserLocked(context.Context, domain.UserLockedEvent) error  { return nil }
func (nopPublisher) PublishPasswordChanged(context.Context, domain.PasswordChangedEvent) error {
	return nil
}
func (nopPublisher) PublishUserDeactivated(context.Context, domain.UserDeactivatedEvent) error {
	return nil
}

type nopHistory struct{}

func (nopHistory) ListRecent(context.Context, int64, int) ([]domain.PasswordHistoryEntry, error) {
	return nil, nil
}
func (nopHistory) Append(context.Context, domain.PasswordHistoryEntry) error { return nil }

func testSessionConfig() config.SessionSettings {
	return config.SessionSettings{
		CookieName:      "LEANX_SESSION",
		Timeout:         time.Hour,
		RemedialTimeout: 10 * time.Minute,
	}
}

func testPolicy(t *testing.T) *security.PasswordPolicy {
	t.Helper()
	policy, err := security.NewPasswordPolicy(map[string]string{
		security.SettingMinLength:         "8",
		security.SettingMaxLength:         "64",
		security.SettingRequireUppercase:  "true",
		security.SettingRequireLowercase:  "true",
		security.SettingRequireNumbers:    "true",
		security.SettingRequireSpecial:    "true",
		security.SettingMaxFailedAttempts: "3",
		security.SettingHistorySize:       "3",
		security.SettingLockoutDuration:   "15",
	})
	if err != nil {
		t.Fatal(err)
	}
	return policy
}

type authFixture struct {
	users    *fakeUsers
	sessions *fakeSessions
	router   *gin.Engine
}

func newAuthFixture(t *testing.T, user *domain.User) *authFixture {
	t.Helper()

	users := &fakeUsers{user: user}
	sessions := newFakeSessions()
	logger := zaptest.NewLogger(t)
	policy := testPolicy(t)

	authService := usecase.NewAuthService(users, fakeHasher{}, policy, nopPublisher{}, logger)
	passwordService := usecase.NewPasswordService(users, nopHistory{}, fakeHasher{}, policy, nopPublisher{}, logger)

	authHandler := NewAuthHandler(authService, sessions, testSessionConfig(), logger)
	passwordHandler := NewPasswordHandler(passwordService, sessions, testSessionConfig(), logger)

	router := gin.New()
	router.POST("/api/auth/login", authHandler.Login)
	router.POST("/api/auth/logout", authHandler.Logout)
	router.POST("/api/auth/change-password", passwordHandler.ChangePassword)

	return &authFixture{users: users, sessions: sessions, router: router}
}

func postJSON(t *testing.T, router *gin.Engine, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "LEANX_SESSION" && cookie.Value != "" {
			return cookie
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func testUser() *domain.User {
	return &domain.User{
		ID:           7,
		Name:         "jdoe",
		Status:       domain.UserStatusActive,
		Type:         domain.UserTypeNormal,
		PasswordHash: "hashed:Correct#Horse1",
	}
}

func TestLoginSuccessPinsSession(t *testing.T) {
	fixture := newAuthFixture(t, testUser())

	w := postJSON(t, fixture.router, "/api/auth/login", `{"username":"jdoe","password":"Correct#Horse1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserID != 7 || resp.Username != "jdoe" {
		t.Errorf("unexpected response %+v", resp)
	}

	cookie := sessionCookie(t, w)
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	session, err := fixture.sessions.Get(context.Background(), cookie.Value)
	if err != nil {
		t.Fatalf("session missing: %v", err)
	}
	if !session.IsAuthenticated() || *session.UserID != 7 {
		t.Errorf("expected session pinned to user 7, got %+v", session)
	}
}

func TestLoginBadCredentialsIsGeneric(t *testing.T) {
	fixture := newAuthFixture(t, testUser())

	w := postJSON(t, fixture.router, "/api/auth/login", `{"username":"jdoe","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	unknown := postJSON(t, fixture.router, "/api/auth/login", `{"username":"ghost","password":"wrong"}`)
	if unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", unknown.Code)
	}
	if w.Body.String() != unknown.Body.String() {
		t.Errorf("wrong password and unknown user must be indistinguishable: %s vs %s", w.Body.String(), unknown.Body.String())
	}
	if fixture.sessions.count() != 0 {
		t.Errorf("no session may exist after failed logins, found %d", fixture.sessions.count())
	}
}

func TestLoginLockedAccountAnswers401WithoutLockTime(t *testing.T) {
	lockStart := time.Now().UTC()
	user := testUser()
	user.Status = domain.UserStatusLocked
	user.LockUntil = &lockStart
	user.NumFailedLoginAttempts = 3
	fixture := newAuthFixture(t, user)

	// The correct password gets no special treatment while the lock holds.
	w := postJSON(t, fixture.router, "/api/auth/login", `{"username":"jdoe","password":"Correct#Horse1"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a locked account, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, leaked := body["locked_until"]; leaked {
		t.Error("response must not disclose the remaining lock time")
	}
}

func TestLoginPermanentlyLockedAccountAnswers401(t *testing.T) {
	user := testUser()
	user.Status = domain.UserStatusLocked
	user.LockUntil = nil
	fixture := newAuthFixture(t, user)

	w := postJSON(t, fixture.router, "/api/auth/login", `{"username":"jdoe","password":"Correct#Horse1"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a permanently locked account, got %d", w.Code)
	}
}

func TestLoginReplacesPresentedSession(t *testing.T) {
	fixture := newAuthFixture(t, testUser())

	first := postJSON(t, fixture.router, "/api/auth/login", `{"username":"jdoe","password":"Correct#Horse1"}`)
	firstCookie := sessionCookie(t, first)

	second := postJSON(t, fixture.router, "/api/auth/login", `{"username":"jdoe","password":"Correct#Horse1"}`, firstCookie)
	secondCookie := sessionCookie(t, second)

	if firstCookie.Value == secondCookie.Value {
		t.Fatal("login must mint a fresh session id")
	}
	if _, err := fixture.sessions.Get(context.Background(), firstCookie.Value); err == nil {
		t.Error("the presented session must be destroyed at login")
	}
}

func TestLoginFirstLoginDefersWithTempToken(t *testing.T) {
	user := testUser()
	user.IsFirstLogin = true
	fixture := newAuthFixture(t, user)

	w := postJSON(t, fixture.router, "/api/auth/login", `{"username":"jdoe","password":"Correct#Horse1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp PasswordChangeRequiredResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TempToken == "" {
		t.Fatal("expected a temp token")
	}
	if resp.Reason != domain.ChangeReasonFirstLogin {
		t.Errorf("expected reason %q, got %q", domain.ChangeReasonFirstLogin, resp.Reason)
	}
	if resp.RedirectURL != changePasswordRedirect {
		t.Errorf("unexpected redirect %q", resp.RedirectURL)
	}

	cookie := sessionCookie(t, w)
	session, err := fixture.sessions.Get(context.Background(), cookie.Value)
	if err != nil {
		t.Fatalf("remedial session missing: %v", err)
	}
	if session.IsAuthenticated() {
		t.Error("remedial session must not be authenticated")
	}
	if session.TempToken != resp.TempToken {
		t.Error("session must carry the issued temp token")
	}
	if session.MaxInactive != 10*time.Minute {
		t.Errorf("remedial session must use the short timeout, got %v", session.MaxInactive)
	}
}

func TestMandatoryChangeConsumesToken(t *testing.T) {
	user := testUser()
	user.IsFirstLogin = true
	fixture := newAuthFixture(t, user)

	login := postJSON(t, fixture.router, "/api/auth/login", `{"username":"jdoe","password":"Correct#Horse1"}`)
	cookie := sessionCookie(t, login)

	var deferred PasswordChangeRequiredResponse
	if err := json.Unmarshal(login.Body.Bytes(), &deferred); err != nil {
		t.Fatal(err)
	}

	body := `{"new_password":"Fresh#Pass12","confirm_new_password":"Fresh#Pass12","token":"` + deferred.TempToken + `"}`
	w := postJSON(t, fixture.router, "/api/auth/change-password", body, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if fixture.users.get().IsFirstLogin {
		t.Error("first-login flag must clear after the mandatory change")
	}
	if fixture.users.get().PasswordHash != "hashed:Fresh#Pass12" {
		t.Error("new password hash not stored")
	}
	if _, err := fixture.sessions.Get(context.Background(), cookie.Value); err == nil {
		t.Error("remedial session must be destroyed after the change")
	}

	// The consumed token cannot be replayed.
	again := postJSON(t, fixture.router, "/api/auth/change-password", body, cookie)
	if again.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 on replay, got %d", again.Code)
	}
}

func TestMandatoryChangeWrongTokenBurnsSession(t *testing.T) {
	user := testUser()
	user.IsFirstLogin = true
	fixture := newAuthFixture(t, user)

	login := postJSON(t, fixture.router, "/api/auth/login", `{"username":"jdoe","password":"Correct#Horse1"}`)
	cookie := sessionCookie(t, login)

	body := `{"new_password":"Fresh#Pass12","confirm_new_password":"Fresh#Pass12","token":"forged"}`
	w := postJSON(t, fixture.router, "/api/auth/change-password", body, cookie)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if _, err := fixture.sessions.Get(context.Background(), cookie.Value); err == nil {
		t.Error("session must be destroyed after a forged token")
	}
	if !fixture.users.get().IsFirstLogin {
		t.Error("password state must be untouched")
	}
}

func TestVoluntaryChangeRequiresOldPassword(t *testing.T) {
	fixture := newAuthFixture(t, testUser())

	login := postJSON(t, fixture.router, "/api/auth/login", `{"username":"jdoe","password":"Correct#Horse1"}`)
	cookie := sessionCookie(t, login)

	missing := postJSON(t, fixture.router, "/api/auth/change-password",
		`{"new_password":"Fresh#Pass12","confirm_new_password":"Fresh#Pass12"}`, cookie)
	if missing.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without old password, got %d", missing.Code)
	}

	wrong := postJSON(t, fixture.router, "/api/auth/change-password",
		`{"old_password":"nope","new_password":"Fresh#Pass12","confirm_new_password":"Fresh#Pass12"}`, cookie)
	if wrong.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong old password, got %d", wrong.Code)
	}

	ok := postJSON(t, fixture.router, "/api/auth/change-password",
		`{"old_password":"Correct#Horse1","new_password":"Fresh#Pass12","confirm_new_password":"Fresh#Pass12"}`, cookie)
	if ok.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", ok.Code, ok.Body.String())
	}
	if fixture.users.get().PasswordHash != "hashed:Fresh#Pass12" {
		t.Error("new password hash not stored")
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	fixture := newAuthFixture(t, testUser())

	login := postJSON(t, fixture.router, "/api/auth/login", `{"username":"jdoe","password":"Correct#Horse1"}`)
	cookie := sessionCookie(t, login)

	w := postJSON(t, fixture.router, "/api/auth/logout", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if fixture.sessions.count() != 0 {
		t.Errorf("expected no sessions after logout, found %d", fixture.sessions.count())
	}

	// Logout without a session is still fine.
	again := postJSON(t, fixture.router, "/api/auth/logout", "")
	if again.Code != http.StatusOK {
		t.Fatalf("expected 200 for cold logout, got %d", again.Code)
	}
}
