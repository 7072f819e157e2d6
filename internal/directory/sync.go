package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"scanx/internal/logs"
	"scanx/internal/models"
	"scanx/internal/repo"
	"scanx/internal/tz"
)

// DefaultInterval: период фоновой синхронизации.
const DefaultInterval = 24 * time.Hour

type Store interface {
	UpsertMany(ctx context.Context, recs []repo.DirectoryRecord) (int, error)
}

type Syncer struct {
	src      Source
	store    Store
	interval time.Duration
	log      *logrus.Entry
}

func NewSyncer(src Source, store Store, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Syncer{src: src, store: store, interval: interval, log: logs.With("directory")}
}

// SyncOnce проходит все страницы источника и возвращает число записанных строк.
func (s *Syncer) SyncOnce(ctx context.Context) (int, error) {
	written := 0
	token := ""
	for {
		page, err := s.src.ListUsers(ctx, token)
		if err != nil {
			return written, err
		}
		n, err := s.store.UpsertMany(ctx, records(page.Users))
		written += n
		if err != nil {
			return written, fmt.Errorf("upsert users: %w", err)
		}
		if page.NextPageToken == "" || page.NextPageToken == token {
			return written, nil
		}
		token = page.NextPageToken
	}
}

// Run синхронизирует сразу и затем раз в interval до отмены ctx.
// Ошибка прогона логируется, расписание не сбивается.
func (s *Syncer) Run(ctx context.Context) {
	s.tick(ctx)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Syncer) tick(ctx context.Context) {
	start := time.Now()
	n, err := s.SyncOnce(ctx)
	if err != nil {
		s.log.WithError(err).WithField("written", n).Error("users sync failed")
		return
	}
	s.log.WithFields(logrus.Fields{"written": n, "took": time.Since(start).String()}).Info("users sync completed")
}

// records отбрасывает записи без '@'; пустое имя заменяется email.
func records(users []Entry) []repo.DirectoryRecord {
	out := make([]repo.DirectoryRecord, 0, len(users))
	for _, u := range users {
		email := strings.TrimSpace(u.PrimaryEmail)
		if !strings.Contains(email, "@") {
			continue
		}
		name := strings.TrimSpace(u.Name.FullName)
		if name == "" {
			name = email
		}
		var created *time.Time
		if ts, err := tz.Parse(u.CreationTime); err == nil {
			created = &ts
		}
		out = append(out, repo.DirectoryRecord{
			Email:       email,
			Name:        name,
			CreatedAt:   created,
			AccountType: models.AccountTypeUser,
		})
	}
	return out
}
