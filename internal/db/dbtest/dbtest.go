// Package dbtest поднимает изолированную in-memory SQLite со схемой приложения.
package dbtest

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"scanx/internal/db"
)

// Open возвращает чистую БД на тест; закрывается через t.Cleanup.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "_" + uuid.NewString()[:8]
	g, err := db.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := g.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// одна in-memory БД живёт, пока открыто хотя бы одно соединение
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(g); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return g
}
