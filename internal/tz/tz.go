// Package tz держит каноническую зону хранилища (фиксированный UTC+05:30)
// и все преобразования времени к ней.
package tz

import (
	"errors"
	"strings"
	"time"
)

// Offset: смещение канонической зоны от UTC.
const Offset = 5*time.Hour + 30*time.Minute

// Location: фиксированная зона без DST; tzdata не нужна.
var Location = time.FixedZone("IST", int(Offset/time.Second))

var ErrEmpty = errors.New("empty timestamp")

// форматы с явным смещением
var zoned = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

// форматы без смещения трактуются как настенное время канонической зоны
var wall = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Now возвращает текущее время в канонической зоне.
func Now() time.Time { return time.Now().In(Location) }

// In переводит момент времени в каноническую зону (момент не меняется).
func In(t time.Time) time.Time { return t.In(Location) }

// Parse разбирает отметку времени агента и возвращает её в канонической зоне.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmpty
	}
	var firstErr error
	for _, layout := range zoned {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.In(Location), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	for _, layout := range wall {
		if t, err := time.ParseInLocation(layout, s, Location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, firstErr
}

// Normalize: Parse с откатом на fallback (обычно время получения отчёта).
func Normalize(s string, fallback time.Time) time.Time {
	t, err := Parse(s)
	if err != nil {
		return fallback.In(Location)
	}
	return t
}

// Format печатает время в канонической зоне в RFC3339.
func Format(t time.Time) string { return t.In(Location).Format(time.RFC3339) }
