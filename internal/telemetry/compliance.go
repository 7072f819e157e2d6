package telemetry

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	// StatusQueryFailed: агент не смог выполнить запрос.
	StatusQueryFailed = "failed to execute query"
	// StatusNoDataPrefix: запрос выполнен, но данных нет.
	StatusNoDataPrefix = "no_data_found for"

	// MaxGracePeriod: максимальная задержка блокировки экрана, секунды.
	MaxGracePeriod = 3600
)

// ItemErrored сообщает, несёт ли строка маркер ошибки агента.
func ItemErrored(it Item) bool {
	s, ok := it["status"].(string)
	if !ok {
		return false
	}
	return s == StatusQueryFailed || strings.HasPrefix(s, StatusNoDataPrefix)
}

// HasErrors: есть ли в списке хотя бы одна строка с маркером ошибки.
func HasErrors(items []Item) bool {
	for _, it := range items {
		if ItemErrored(it) {
			return true
		}
	}
	return false
}

// Compliant вычисляет флаг категории для сводки по только что принятым данным.
// Пустой список и неизвестная категория — не соответствуют.
func Compliant(c Category, items []Item) bool {
	s, ok := registry[c]
	if !ok || len(items) == 0 {
		return false
	}
	return s.check(items)
}

func noErrors(items []Item) bool { return !HasErrors(items) }

// screenLockCompliant: сверх маркеров ошибок — grace_period не больше часа.
// Нечитаемый grace_period на результат не влияет.
func screenLockCompliant(items []Item) bool {
	ok := noErrors(items)
	for _, it := range items {
		if gp, parsed := GracePeriod(it); parsed && gp > MaxGracePeriod {
			ok = false
		}
	}
	return ok
}

// GracePeriod читает grace_period как целое число секунд.
// Агент шлёт его строкой, но принимаем и число.
func GracePeriod(it Item) (int64, bool) {
	switch v := it["grace_period"].(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}
