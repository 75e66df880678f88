package config

import "strings"

// MissingTokensError is returned by CheckTokens when required credentials
// are absent. The process must not start polling after it.
type MissingTokensError struct {
	Names []string
}

func (e *MissingTokensError) Error() string {
	return "Отсутствуют обязательные переменные окружения " + strings.Join(e.Names, ", ")
}
