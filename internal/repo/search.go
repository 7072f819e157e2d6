package repo

import "strings"

// '!' вместо '\': в mysql обратный слэш экранирует внутри строкового литерала.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern: LIKE-шаблон "содержит term" без регистра; % и _ из ввода
// ищутся буквально (запрос обязан указать ESCAPE '!').
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}
