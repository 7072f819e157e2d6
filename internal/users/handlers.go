// Package users: API зеркала каталога пользователей.
package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"scanx/internal/logs"
	"scanx/internal/models"
	"scanx/internal/repo"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type Store interface {
	List(ctx context.Context, term string, offset, limit int) ([]models.DirectoryUser, error)
	Count(ctx context.Context, term string) (int64, error)
	UpdateAccountType(ctx context.Context, gid uint, accountType string) error
	Delete(ctx context.Context, gid uint) error
}

type Handler struct{ store Store }

func NewHandler(store Store) *Handler { return &Handler{store: store} }

type listResponse struct {
	Items    []models.DirectoryUser `json:"items"`
	Total    int64                  `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"pageSize"`
}

// GET /users?page&pageSize&search: page >= 1, pageSize в [1,200].
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := models.QueryInt(r, "page", 1)
	if !ok || page < 1 {
		models.WriteError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	size, ok := models.QueryInt(r, "pageSize", defaultPageSize)
	if !ok || size < 1 || size > maxPageSize {
		models.WriteError(w, http.StatusBadRequest, "pageSize must be between 1 and 200")
		return
	}
	term := strings.TrimSpace(r.URL.Query().Get("search"))

	items, err := h.store.List(r.Context(), term, (page-1)*size, size)
	if err != nil {
		models.WriteInternal(w, err)
		return
	}
	if items == nil {
		items = []models.DirectoryUser{}
	}
	total, err := h.store.Count(r.Context(), term)
	if err != nil {
		models.WriteInternal(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, listResponse{Items: items, Total: total, Page: page, PageSize: size})
}

// GET /users/totalusers
func (h *Handler) Total(w http.ResponseWriter, r *http.Request) {
	total, err := h.store.Count(r.Context(), "")
	if err != nil {
		models.WriteInternal(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]int64{"total": total})
}

// PUT /users/{id}/account-type {"account_type": "user"|"service"}
func (h *Handler) UpdateAccountType(w http.ResponseWriter, r *http.Request) {
	gid, ok := userID(w, r)
	if !ok {
		return
	}
	var in struct {
		AccountType string `json:"account_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || !models.ValidAccountType(in.AccountType) {
		models.WriteError(w, http.StatusBadRequest, `Invalid account_type. Must be "user" or "service"`)
		return
	}
	err := h.store.UpdateAccountType(r.Context(), gid, in.AccountType)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		models.WriteError(w, http.StatusNotFound, "User not found")
		return
	case errors.Is(err, repo.ErrInvalidAccountType):
		models.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		models.WriteInternal(w, err)
		return
	}
	logs.With("users").WithField("gid", gid).WithField("account_type", in.AccountType).Info("account type changed")
	models.WriteJSON(w, http.StatusOK, models.Message{Message: "User account type updated successfully"})
}

// DELETE /users/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	gid, ok := userID(w, r)
	if !ok {
		return
	}
	err := h.store.Delete(r.Context(), gid)
	if errors.Is(err, repo.ErrNotFound) {
		models.WriteError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		models.WriteInternal(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, models.Message{Message: "User deleted successfully"})
}

func userID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		models.WriteError(w, http.StatusBadRequest, "Invalid user id")
		return 0, false
	}
	return uint(id), true
}
