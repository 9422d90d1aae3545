package validation

import (
	"fmt"
	"regexp"
)

// UsernamePattern определяет допустимый формат username
// Только латинские буквы (a-z, A-Z), цифры (0-9), нижнее подчеркивание (_)
// Длина: 3-32 символа
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

// ProjectNamePattern допустимое имя проекта. Имя становится каталогом на
// диске, поэтому точки и разделители пути запрещены.
var ProjectNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// UserIDPattern допустимый user_id из токена (username или UUID)
var UserIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)

const (
	// MinUsernameLen минимальная длина username
	MinUsernameLen = 3
	// MaxUsernameLen максимальная длина username
	MaxUsernameLen = 32
	// MaxProjectNameLen максимальная длина имени проекта
	MaxProjectNameLen = 64
)

// ValidateUsername проверяет, что username соответствует требованиям
// Формат: только латинские буквы (a-z, A-Z), цифры (0-9), нижнее подчеркивание (_)
// Длина: 3-32 символа
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	if len(username) < MinUsernameLen {
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLen)
	}

	if len(username) > MaxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	}

	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("username can only contain letters (a-z, A-Z), numbers (0-9), and underscores (_)")
	}

	return nil
}

// ValidateProjectName проверяет имя проекта
// Формат: латинские буквы, цифры, '_' и '-', длина 1-64
func ValidateProjectName(name string) error {
	if name == "" {
		return fmt.Errorf("project name cannot be empty")
	}

	if len(name) > MaxProjectNameLen {
		return fmt.Errorf("project name must not exceed %d characters", MaxProjectNameLen)
	}

	if !ProjectNamePattern.MatchString(name) {
		return fmt.Errorf("project name can only contain letters (a-z, A-Z), numbers (0-9), '_' and '-'")
	}

	return nil
}

// ValidateUserID проверяет user_id перед использованием в путях хранилища
func ValidateUserID(userID string) error {
	if !UserIDPattern.MatchString(userID) {
		return fmt.Errorf("invalid user id %q", userID)
	}
	return nil
}
