package logs

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"scanx/internal/tz"
)

// Logger: глобальный логгер приложения. До Init пишет в stderr с уровнем info,
// чтобы пакеты можно было использовать в тестах без инициализации.
var Logger = logrus.New()

// Options: параметры инициализации логгера.
type Options struct {
	Level  string // trace|debug|info|warning|error|fatal
	Format string // text|json
	File   string // путь/префикс лог-файла; если пусто — только stdout
}

// zoneFormatter печатает время записи в канонической зоне хранилища,
// чтобы логи совпадали с отметками в БД.
type zoneFormatter struct{ inner logrus.Formatter }

func (f zoneFormatter) Format(e *logrus.Entry) ([]byte, error) {
	e.Time = tz.In(e.Time)
	return f.inner.Format(e)
}

// Init настраивает глобальный логгер по переданным опциям.
func Init(opts Options) {
	l := logrus.New()

	lvl, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	var inner logrus.Formatter = &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339}
	if opts.Format == "json" {
		inner = &logrus.JSONFormatter{TimestampFormat: time.RFC3339}
	}
	l.SetFormatter(zoneFormatter{inner: inner})

	// вывод
	if opts.File != "" {
		logFileName := fmt.Sprintf("%s_%s.log", opts.File, tz.Now().Format("2006-01-02_15-04-05"))
		file, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			l.Fatalf("failed to open log file %s: %v", logFileName, err)
		}
		l.SetOutput(io.MultiWriter(file, os.Stdout))
	} else {
		l.SetOutput(os.Stdout)
	}

	Logger = l
}

// With: логгер компонента: logs.With("ingest").WithField(...).
func With(component string) *logrus.Entry {
	return Logger.WithField("component", component)
}
