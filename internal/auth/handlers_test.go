package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"scanx/internal/db/dbtest"
	"scanx/internal/models"
	"scanx/internal/repo"
	"scanx/internal/tz"
)

type testEnv struct {
	router *mux.Router
	tokens *Tokens
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens := NewTokens("s3cret", time.Hour)
	h := NewHandler(repo.NewAdminStore(dbtest.Open(t)), NewHasher(4), tokens, CookieOptions{})
	r := mux.NewRouter()
	RegisterRoutes(r, h, Gate(tokens, ""))
	return &testEnv{router: r, tokens: tokens}
}

func (e *testEnv) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == DefaultCookieName {
			if !c.HttpOnly {
				t.Error("session cookie must be httpOnly")
			}
			return c
		}
	}
	t.Fatalf("no %s cookie in response", DefaultCookieName)
	return nil
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorBody {
	t.Helper()
	var b models.ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&b); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return b
}

func TestRegisterLoginMe(t *testing.T) {
	e := newEnv(t)

	rec := e.do("POST", "/auth/register", `{"email":"Root@X.com","password":"pw","name":"Root"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("register response leaks password hash")
	}
	sessionCookie(t, rec)

	rec = e.do("POST", "/auth/register", `{"email":"root@x.com","password":"pw2"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate register: %d", rec.Code)
	}

	rec = e.do("POST", "/auth/login", `{"email":"root@x.com","password":"pw"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body)
	}
	c := sessionCookie(t, rec)

	rec = e.do("GET", "/auth/me", "", c)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: %d %s", rec.Code, rec.Body)
	}
	var me models.Admin
	_ = json.NewDecoder(rec.Body).Decode(&me)
	if me.Email != "root@x.com" || me.Name != "Root" {
		t.Errorf("me = %+v", me)
	}
}

func TestLogin_SameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	e := newEnv(t)
	e.do("POST", "/auth/register", `{"email":"root@x.com","password":"pw"}`)

	wrongPw := e.do("POST", "/auth/login", `{"email":"root@x.com","password":"nope"}`)
	unknown := e.do("POST", "/auth/login", `{"email":"ghost@x.com","password":"pw"}`)
	if wrongPw.Code != http.StatusBadRequest || unknown.Code != http.StatusBadRequest {
		t.Fatalf("codes: %d %d", wrongPw.Code, unknown.Code)
	}
	if wrongPw.Body.String() != unknown.Body.String() {
		t.Errorf("bodies differ: %q vs %q", wrongPw.Body, unknown.Body)
	}

	if rec := e.do("POST", "/auth/login", `{"email":"root@x.com"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing password: %d", rec.Code)
	}
}

func TestGate(t *testing.T) {
	e := newEnv(t)
	e.do("POST", "/auth/register", `{"email":"root@x.com","password":"pw"}`)

	rec := e.do("GET", "/auth/admins", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rec.Code)
	}
	if b := errorBody(t, rec); !b.Logout || b.Expired {
		t.Errorf("no token body = %+v", b)
	}

	rec = e.do("GET", "/auth/admins", "", &http.Cookie{Name: DefaultCookieName, Value: "junk"})
	if b := errorBody(t, rec); rec.Code != http.StatusUnauthorized || !b.Logout || b.Expired {
		t.Errorf("bad token: %d %+v", rec.Code, b)
	}

	old := e.tokens.now
	e.tokens.now = func() time.Time { return tz.Now().Add(-3 * time.Hour) }
	stale, _, _ := e.tokens.Issue(1, "root@x.com")
	e.tokens.now = old
	rec = e.do("GET", "/auth/admins", "", &http.Cookie{Name: DefaultCookieName, Value: stale})
	if b := errorBody(t, rec); rec.Code != http.StatusUnauthorized || !b.Logout || !b.Expired {
		t.Errorf("expired token: %d %+v", rec.Code, b)
	}

	fresh, _, _ := e.tokens.Issue(1, "root@x.com")
	req := httptest.NewRequest("GET", "/auth/admins", nil)
	req.Header.Set("Authorization", "Bearer "+fresh)
	out := httptest.NewRecorder()
	e.router.ServeHTTP(out, req)
	if out.Code != http.StatusOK {
		t.Fatalf("bearer: %d %s", out.Code, out.Body)
	}
	var list []models.Admin
	if err := json.NewDecoder(out.Body).Decode(&list); err != nil || len(list) != 1 {
		t.Errorf("admins = %v, %v", list, err)
	}
}

func TestDeleteSelfAndLogout(t *testing.T) {
	e := newEnv(t)
	c := sessionCookie(t, e.do("POST", "/auth/register", `{"email":"root@x.com","password":"pw"}`))

	rec := e.do("GET", "/auth/logout", "", c)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: %d", rec.Code)
	}
	cleared := rec.Result().Cookies()
	if len(cleared) == 0 || cleared[0].MaxAge >= 0 {
		t.Errorf("logout did not clear cookie: %+v", cleared)
	}

	if rec := e.do("DELETE", "/auth/delete", "", c); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body)
	}
	if rec := e.do("DELETE", "/auth/delete", "", c); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: %d", rec.Code)
	}
	if rec := e.do("GET", "/auth/me", "", c); rec.Code != http.StatusNotFound {
		t.Errorf("me after delete: %d", rec.Code)
	}
}
