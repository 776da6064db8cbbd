package helper

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

// CtypeDigit reports whether s is non-empty and made of ASCII digits only.
func CtypeDigit(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isDigit(r) {
			return false
		}
	}
	return true
}

func IsEmptyString(str string) bool {
	return len(strings.TrimSpace(str)) == 0
}

// PadNumber formats n as a zero-padded decimal of the given width, e.g. PadNumber(7, 6) = "000007".
func PadNumber(n, width int) string {
	s := strconv.Itoa(n)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// Suffix returns the last n bytes of s, or s itself when shorter.
func Suffix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func CheckPassword(input string, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(input))
	return err == nil
}

func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
