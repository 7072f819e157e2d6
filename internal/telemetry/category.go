// Package telemetry описывает закрытый набор категорий телеметрии агента
// и правила, по которым категория считается соответствующей политике.
package telemetry

// Category: одна из фиксированных категорий отчёта агента.
type Category string

const (
	SystemInfo          Category = "system_info"
	DiskEncryptionInfo  Category = "disk_encryption_info"
	PasswordManagerInfo Category = "password_manager_info"
	AntivirusInfo       Category = "antivirus_info"
	ScreenLockInfo      Category = "screen_lock_info"
	AppsInfo            Category = "apps_info"
)

// All: порядок категорий в ответах API.
var All = []Category{
	SystemInfo,
	DiskEncryptionInfo,
	PasswordManagerInfo,
	AntivirusInfo,
	ScreenLockInfo,
	AppsInfo,
}

// Item: одна строка результата запроса агента (форма зависит от категории).
type Item map[string]any

type spec struct {
	table string
	check func(items []Item) bool
}

// единственная точка, где имя категории превращается в имя таблицы
var registry = map[Category]spec{
	SystemInfo:          {table: "system_info", check: noErrors},
	DiskEncryptionInfo:  {table: "disk_encryption_info", check: noErrors},
	PasswordManagerInfo: {table: "password_manager_info", check: noErrors},
	AntivirusInfo:       {table: "antivirus_info", check: noErrors},
	ScreenLockInfo:      {table: "screen_lock_info", check: screenLockCompliant},
	AppsInfo:            {table: "apps_info", check: noErrors},
}

// Parse возвращает категорию по имени из отчёта или URL.
func Parse(name string) (Category, bool) {
	c := Category(name)
	_, ok := registry[c]
	return c, ok
}

// Table: имя таблицы с историей категории.
func (c Category) Table() string { return registry[c].table }

func (c Category) String() string { return string(c) }

// Valid сообщает, входит ли категория в закрытый набор.
func (c Category) Valid() bool {
	_, ok := registry[c]
	return ok
}
