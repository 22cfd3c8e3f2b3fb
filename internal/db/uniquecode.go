package db

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/slok/ukit/internal/model"
)

// Code alphabets exclude the visually confusable 0/O/1/l.
const (
	codeDigits  = "23456789"
	codeLetters = "ABCDEFGHIJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
)

const defaultUniqueCodeAttempts = 100

// UniqueCodeOption customizes UniqueCode.
type UniqueCodeOption func(*uniqueCodeOptions)

type uniqueCodeOptions struct {
	maxAttempts int
}

// WithMaxAttempts caps the number of generated candidates before giving
// up (default 100).
func WithMaxAttempts(n int) UniqueCodeOption {
	return func(o *uniqueCodeOptions) { o.maxAttempts = n }
}

// UniqueCode generates a random code of the given length that doesn't
// exist yet in the table column. Every third character is numeric so the
// codes are hard to mistake for words.
//
// A near-full code space makes collisions likely, so the generation is
// bounded: after the configured attempts it fails wrapping
// model.ErrAlreadyExists instead of looping forever.
func (d *Database) UniqueCode(ctx context.Context, table, column string, length int, opts ...UniqueCodeOption) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("code length must be positive: %w", model.ErrNotValid)
	}

	o := uniqueCodeOptions{maxAttempts: defaultUniqueCodeAttempts}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxAttempts < 1 {
		return "", fmt.Errorf("max attempts must be >= 1: %w", model.ErrNotValid)
	}

	query := fmt.Sprintf("select count(*) from %s where %s = :code", table, column)

	for attempt := 0; attempt < o.maxAttempts; attempt++ {
		code := randomCode(length)

		count, err := FieldAs[int64](ctx, d, query, Params{"code": code}, 0)
		if err != nil {
			return "", fmt.Errorf("could not check code uniqueness: %w", err)
		}
		if count == 0 {
			return code, nil
		}

		d.logger.Debugf("code collision on %s.%s (attempt %d)", table, column, attempt+1)
	}

	return "", fmt.Errorf("could not generate a unique code for %s.%s after %d attempts: %w", table, column, o.maxAttempts, model.ErrAlreadyExists)
}

func randomCode(length int) string {
	const all = codeDigits + codeLetters

	code := make([]byte, length)
	for i := range code {
		// Positions 3, 6, 9... are forced numeric.
		if (i+1)%3 == 0 {
			code[i] = codeDigits[rand.Intn(len(codeDigits))]
			continue
		}
		code[i] = all[rand.Intn(len(all))]
	}

	return string(code)
}
