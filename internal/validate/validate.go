// Package validate holds the input checks that run before any I/O. Each check
// returns the normalized value alongside a validation-kind error.
package validate

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"papertrade/internal/errs"
)

var (
	symbolRe   = regexp.MustCompile(`^[A-Za-z]{1,5}$`)
	usernameRe = regexp.MustCompile(`^[a-z0-9]{4,20}$`)
)

// UserID trims and checks the account identifier.
func UserID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errs.New(errs.KindValidation, "user id must be a non-empty string")
	}
	return id, nil
}

// Symbol trims and uppercases a ticker symbol. Symbols are matched
// case-insensitively everywhere; uppercase is the stored form.
func Symbol(symbol string) (string, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return "", errs.New(errs.KindValidation, "symbol must be a non-empty string")
	}
	if !symbolRe.MatchString(symbol) {
		return "", errs.New(errs.KindValidation, "symbol %q must be 1-5 letters", symbol)
	}
	return strings.ToUpper(symbol), nil
}

// Shares rejects zero and negative share counts before any price lookup.
func Shares(shares decimal.Decimal) error {
	if !shares.IsPositive() {
		return errs.New(errs.KindValidation, "shares must be a positive number, got %s", shares.String())
	}
	return nil
}

// Username normalizes to lowercase and enforces the account naming rules.
func Username(username string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernameRe.MatchString(username) {
		return "", errs.New(errs.KindValidation, "username must be 4-20 lowercase letters or digits")
	}
	return username, nil
}

// Password enforces the minimum credential rules. The hash, not the password,
// is what gets stored.
func Password(password string) error {
	if len(password) < 6 {
		return errs.New(errs.KindValidation, "password must be at least 6 characters")
	}
	if strings.ContainsAny(password, " \t\n") {
		return errs.New(errs.KindValidation, "password must not contain whitespace")
	}
	return nil
}
