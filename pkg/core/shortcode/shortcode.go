// Package shortcode generates system short codes and validates user aliases.
//
// Generated codes are random, not proven unique: callers insert them under
// the store's unique constraint and regenerate on conflict.
package shortcode

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

const (
	charset       = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultLength = 7
	MaxAliasLen   = 64
)

var aliasRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// reserved holds first path segments already taken by routes.
var reserved = map[string]struct{}{
	"api":     {},
	"auth":    {},
	"healthz": {},
	"metrics": {},
	"p":       {},
}

type Generator struct {
	length int
}

func NewGenerator(length int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{length: length}
}

func (g *Generator) Generate() (string, error) {
	b := make([]byte, g.length)
	max := big.NewInt(int64(len(charset)))
	for i := range b {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}

// ValidateAlias reports whether alias is usable as a URL path segment.
func ValidateAlias(alias string) bool {
	if alias == "" || len(alias) > MaxAliasLen {
		return false
	}
	if _, taken := reserved[strings.ToLower(alias)]; taken {
		return false
	}
	return aliasRe.MatchString(alias)
}
