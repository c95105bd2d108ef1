// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned when a password does not match its hash.
var ErrPasswordMismatch = errors.New("sec: password mismatch")

// HashPassword hashes password with bcrypt. A cost of zero uses
// [bcrypt.DefaultCost]; the mock platform's tests pass [bcrypt.MinCost].
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("sec_password_hash_failed: %w", err)
	}
	return string(hashed), nil
}

// ComparePassword checks password against hash. A wrong password yields
// [ErrPasswordMismatch]; a malformed hash yields the wrapped bcrypt error.
func ComparePassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrPasswordMismatch
	default:
		return fmt.Errorf("sec_password_compare_failed: %w", err)
	}
}
