package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"scanx/internal/logs"
	"scanx/internal/models"
	"scanx/internal/repo"
)

type AdminStore interface {
	Create(ctx context.Context, a *models.Admin) error
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	FindByID(ctx context.Context, id uint) (*models.Admin, error)
	List(ctx context.Context) ([]models.Admin, error)
	Delete(ctx context.Context, id uint) error
}

// CookieOptions: параметры cookie сессии.
type CookieOptions struct {
	Name   string
	Secure bool
}

type Handler struct {
	admins AdminStore
	hasher *Hasher
	tokens *Tokens
	cookie CookieOptions
}

func NewHandler(admins AdminStore, hasher *Hasher, tokens *Tokens, cookie CookieOptions) *Handler {
	if cookie.Name == "" {
		cookie.Name = DefaultCookieName
	}
	return &Handler{admins: admins, hasher: hasher, tokens: tokens, cookie: cookie}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type adminResponse struct {
	Message string        `json:"message"`
	Admin   *models.Admin `json:"admin"`
}

func decodeCredentials(r *http.Request) (credentials, bool) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return in, false
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	return in, in.Email != "" && in.Password != ""
}

// POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeCredentials(r)
	if !ok {
		models.WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	hash, err := h.hasher.Hash(in.Password)
	if err != nil {
		models.WriteInternal(w, err)
		return
	}
	a := &models.Admin{Email: in.Email, Password: hash, Name: in.Name}
	if err := h.admins.Create(r.Context(), a); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			models.WriteError(w, http.StatusBadRequest, "Admin already exists")
			return
		}
		models.WriteInternal(w, err)
		return
	}
	if err := h.setSession(w, a); err != nil {
		models.WriteInternal(w, err)
		return
	}
	logs.With("auth").WithFields(logrus.Fields{"admin_id": a.ID, "email": a.Email}).Info("admin registered")
	models.WriteJSON(w, http.StatusCreated, adminResponse{Message: "Admin registered successfully", Admin: a})
}

// POST /auth/login: неверный email и неверный пароль неразличимы.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeCredentials(r)
	if !ok {
		models.WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	a, err := h.admins.FindByEmail(r.Context(), in.Email)
	if err != nil {
		models.WriteInternal(w, err)
		return
	}
	if a == nil || h.hasher.Compare(a.Password, in.Password) != nil {
		models.WriteError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}
	if err := h.setSession(w, a); err != nil {
		models.WriteInternal(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, adminResponse{Message: "Login successful", Admin: a})
}

// GET /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	models.WriteJSON(w, http.StatusOK, models.Message{Message: "Logged out successfully"})
}

// GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := FromContext(r.Context())
	if !ok {
		models.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	a, err := h.admins.FindByID(r.Context(), id.ID)
	if errors.Is(err, repo.ErrNotFound) {
		models.WriteError(w, http.StatusNotFound, "Admin not found")
		return
	}
	if err != nil {
		models.WriteInternal(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, a)
}

// DELETE /auth/delete: удаляет текущего администратора.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := FromContext(r.Context())
	if !ok {
		models.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	err := h.admins.Delete(r.Context(), id.ID)
	if errors.Is(err, repo.ErrNotFound) {
		models.WriteError(w, http.StatusNotFound, "Admin not found")
		return
	}
	if err != nil {
		models.WriteInternal(w, err)
		return
	}
	logs.With("auth").WithField("admin_id", id.ID).Info("admin deleted")
	models.WriteJSON(w, http.StatusOK, models.Message{Message: "Admin deleted successfully"})
}

// GET /auth/admins
func (h *Handler) Admins(w http.ResponseWriter, r *http.Request) {
	list, err := h.admins.List(r.Context())
	if err != nil {
		models.WriteInternal(w, err)
		return
	}
	if list == nil {
		list = []models.Admin{}
	}
	models.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) setSession(w http.ResponseWriter, a *models.Admin) error {
	tok, _, err := h.tokens.Issue(a.ID, a.Email)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
