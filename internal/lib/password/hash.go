// Package password хранит пароли пользователей в виде bcrypt-хешей.
// Исходный пароль нигде не сохраняется, проверка выполняется
// сравнением введённого значения с хешем.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// GetHash возвращает bcrypt-хеш пароля для записи в учетную запись.
// Каждый вызов использует новую соль, хеши одного пароля различаются.
func GetHash(plain string) (string, error) {
	const op = "password.GetHash"

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hash), nil
}

// CompareHash проверяет введённый пароль против сохранённого хеша.
// Возвращает nil при совпадении, иначе ошибку.
func CompareHash(storedHash, plain string) error {
	const op = "password.CompareHash"

	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plain)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
