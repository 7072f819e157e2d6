// Package directory зеркалирует пользователей внешнего каталога
// (Google Workspace или локальный JSON-файл) в таблицу users.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Entry: пользователь каталога в форме Admin SDK.
type Entry struct {
	PrimaryEmail string    `json:"primaryEmail"`
	Name         EntryName `json:"name"`
	CreationTime string    `json:"creationTime"`
}

type EntryName struct {
	FullName string `json:"fullName"`
}

// Page: одна страница выдачи; пустой NextPageToken — страниц больше нет.
type Page struct {
	Users         []Entry
	NextPageToken string
}

// Source: постраничный источник пользователей каталога.
type Source interface {
	ListUsers(ctx context.Context, pageToken string) (Page, error)
}

// FileSource читает JSON-массив Entry с диска; всегда одна страница.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource { return &FileSource{Path: path} }

func (f *FileSource) ListUsers(_ context.Context, _ string) (Page, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return Page{}, fmt.Errorf("read directory file: %w", err)
	}
	var users []Entry
	if err := json.Unmarshal(raw, &users); err != nil {
		return Page{}, fmt.Errorf("parse directory file %s: %w", f.Path, err)
	}
	return Page{Users: users}, nil
}

// Options: выбор источника каталога.
type Options struct {
	Source   string // google|file; пусто — google, если заданы ключ и админ
	FilePath string
	Google   GoogleOptions
}

// NewSource собирает источник по настройкам.
func NewSource(ctx context.Context, o Options) (Source, error) {
	kind := o.Source
	if kind == "" {
		kind = "file"
		if o.Google.KeyFile != "" && o.Google.AdminEmail != "" {
			kind = "google"
		}
	}
	switch kind {
	case "google":
		g, err := NewGoogleSource(ctx, o.Google)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "file":
		if o.FilePath == "" {
			return nil, fmt.Errorf("directory file path is not set")
		}
		return NewFileSource(o.FilePath), nil
	default:
		return nil, fmt.Errorf("unknown directory source %q", o.Source)
	}
}
