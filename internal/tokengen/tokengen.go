// Package tokengen produces random opaque strings for account and refresh tokens.
package tokengen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

const (
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

	AccountTokenLength = 7
	RefreshTokenLength = 64
	DefaultMaxAttempts = 10
)

var ErrTokenGenerationExhausted = errors.New("token generation exhausted")

// ExistsFunc reports whether a candidate token is already taken.
type ExistsFunc func(ctx context.Context, token string) (bool, error)

type Generator struct {
	Alphabet           string
	AccountTokenLength int
	RefreshTokenLength int
	MaxAttempts        int
	Rand               io.Reader
}

func New(maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{
		Alphabet:           Alphabet,
		AccountTokenLength: AccountTokenLength,
		RefreshTokenLength: RefreshTokenLength,
		MaxAttempts:        maxAttempts,
		Rand:               rand.Reader,
	}
}

// GenerateUniqueAccountToken draws until exists reports a free value or
// MaxAttempts draws have collided.
func (g *Generator) GenerateUniqueAccountToken(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < g.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		token, err := g.random(g.AccountTokenLength)
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, token)
		if err != nil {
			return "", fmt.Errorf("check token: %w", err)
		}
		if !taken {
			return token, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrTokenGenerationExhausted, g.MaxAttempts)
}

// GenerateRefreshToken does not consult the store; 64 symbols of 6 bits make
// collisions negligible.
func (g *Generator) GenerateRefreshToken() (string, error) {
	return g.random(g.RefreshTokenLength)
}

func (g *Generator) random(n int) (string, error) {
	if n <= 0 || g.Alphabet == "" {
		return "", fmt.Errorf("tokengen: invalid length %d or empty alphabet", n)
	}
	max := big.NewInt(int64(len(g.Alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(g.Rand, max)
		if err != nil {
			return "", fmt.Errorf("tokengen: read random: %w", err)
		}
		out[i] = g.Alphabet[idx.Int64()]
	}
	return string(out), nil
}
