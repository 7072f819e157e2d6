package directory

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/option"
)

const (
	DefaultCustomer = "my_customer"
	pageSize        = 500
)

// GoogleOptions: сервисный аккаунт с domain-wide delegation.
type GoogleOptions struct {
	KeyFile    string
	AdminEmail string // от чьего имени читаем каталог
	Customer   string
}

// GoogleSource читает пользователей через Admin SDK Directory API.
type GoogleSource struct {
	svc      *admin.Service
	customer string
}

func NewGoogleSource(ctx context.Context, opts GoogleOptions) (*GoogleSource, error) {
	key, err := os.ReadFile(opts.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("read service account key: %w", err)
	}
	cfg, err := google.JWTConfigFromJSON(key, admin.AdminDirectoryUserReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	cfg.Subject = opts.AdminEmail

	svc, err := admin.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("admin directory client: %w", err)
	}
	customer := opts.Customer
	if customer == "" {
		customer = DefaultCustomer
	}
	return &GoogleSource{svc: svc, customer: customer}, nil
}

func (g *GoogleSource) ListUsers(ctx context.Context, pageToken string) (Page, error) {
	call := g.svc.Users.List().
		Customer(g.customer).
		Projection("full").
		MaxResults(pageSize).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	res, err := call.Do()
	if err != nil {
		return Page{}, fmt.Errorf("list directory users: %w", err)
	}
	page := Page{NextPageToken: res.NextPageToken, Users: make([]Entry, 0, len(res.Users))}
	for _, u := range res.Users {
		if u == nil {
			continue
		}
		e := Entry{PrimaryEmail: u.PrimaryEmail, CreationTime: u.CreationTime}
		if u.Name != nil {
			e.Name.FullName = u.Name.FullName
		}
		page.Users = append(page.Users, e)
	}
	return page, nil
}
