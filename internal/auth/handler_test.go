package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/pawhaven/pet-adoption-api/internal/models"
	"github.com/pawhaven/pet-adoption-api/internal/store"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User // keyed by email
	seq   int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, name, email, hashedPw string, role models.Role) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[email]; exists {
		return nil, store.ErrDuplicate
	}
	f.seq++
	u := &models.User{
		ID:        fmt.Sprintf("user-%d", f.seq),
		Name:      name,
		Email:     email,
		Password:  hashedPw,
		Role:      role,
		CreatedAt: time.Now(),
	}
	f.users[email] = u
	return u, nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func newTestHandler(users *fakeUserStore) (*Handler, *TokenIssuer) {
	tokens := NewTokenIssuer("test-secret")
	return NewHandler(users, tokens, zerolog.Nop()), tokens
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRegister(t *testing.T) {
	users := newFakeUserStore()
	h, _ := newTestHandler(users)

	rec := postJSON(t, h.Register, `{"name":"Ada","email":"ada@example.com","password":"hunter2"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Message != "user registered successfully" {
		t.Errorf("response = %+v", resp)
	}

	u := users.users["ada@example.com"]
	if u == nil {
		t.Fatal("user not persisted")
	}
	if u.Role != models.RoleUser {
		t.Errorf("role = %q, want user", u.Role)
	}
	if u.Password == "hunter2" {
		t.Error("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("hunter2")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestRegisterUnknownRoleDefaultsToUser(t *testing.T) {
	users := newFakeUserStore()
	h, _ := newTestHandler(users)

	rec := postJSON(t, h.Register, `{"name":"Eve","email":"eve@example.com","password":"pw","role":"superadmin"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if got := users.users["eve@example.com"].Role; got != models.RoleUser {
		t.Errorf("role = %q, want user", got)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := newFakeUserStore()
	h, _ := newTestHandler(users)

	first := postJSON(t, h.Register, `{"name":"Ada","email":"ada@example.com","password":"pw"}`)
	if first.Code != http.StatusCreated {
		t.Fatalf("first register status = %d, want 201", first.Code)
	}
	second := postJSON(t, h.Register, `{"name":"Ada Again","email":"ada@example.com","password":"pw"}`)
	if second.Code != http.StatusConflict {
		t.Fatalf("second register status = %d, want 409", second.Code)
	}
	if len(users.users) != 1 {
		t.Errorf("user count = %d, want 1", len(users.users))
	}
}

func TestRegisterMissingFields(t *testing.T) {
	users := newFakeUserStore()
	h, _ := newTestHandler(users)

	rec := postJSON(t, h.Register, `{"email":"ada@example.com"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	users := newFakeUserStore()
	h, tokens := newTestHandler(users)

	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	users.users["ada@example.com"] = &models.User{
		ID: "user-1", Name: "Ada", Email: "ada@example.com",
		Password: string(hash), Role: models.RoleAdmin,
	}

	rec := postJSON(t, h.Login, `{"email":"ada@example.com","password":"hunter2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Token string          `json:"token"`
			User  json.RawMessage `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Data.Token == "" {
		t.Fatalf("response = %s", rec.Body)
	}

	claims, err := tokens.Verify(resp.Data.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != models.RoleAdmin {
		t.Errorf("claims = %+v", claims)
	}

	if strings.Contains(string(resp.Data.User), string(hash)) || strings.Contains(string(resp.Data.User), "password") {
		t.Error("password leaked in login response")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	users := newFakeUserStore()
	h, _ := newTestHandler(users)

	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	users.users["ada@example.com"] = &models.User{
		ID: "user-1", Email: "ada@example.com", Password: string(hash), Role: models.RoleUser,
	}

	rec := postJSON(t, h.Login, `{"email":"ada@example.com","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "token") {
		t.Error("token issued for bad credentials")
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	users := newFakeUserStore()
	h, _ := newTestHandler(users)

	rec := postJSON(t, h.Login, `{"email":"ghost@example.com","password":"pw"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
