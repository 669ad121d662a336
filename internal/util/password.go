package util

import (
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func IsAcceptablePassword(password string) bool {
	return len(password) >= MinPasswordLength && len(password) <= maxPasswordBytes
}
