// Package reasoner asks a language model for structured JSON answers.
package reasoner

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// ErrReasonerFailure marks any failure to obtain a usable answer
var ErrReasonerFailure = errors.New("reasoner failure")

// Reasoner answers a prompt with a JSON document
type Reasoner interface {
	Reason(ctx context.Context, prompt string) (json.RawMessage, error)
}

// Func adapts a function to the Reasoner interface
type Func func(ctx context.Context, prompt string) (json.RawMessage, error)

// Reason calls f
func (f Func) Reason(ctx context.Context, prompt string) (json.RawMessage, error) {
	return f(ctx, prompt)
}

// Failure wraps err as a reasoner failure
func Failure(err error) error {
	if err == nil || errors.Is(err, ErrReasonerFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrReasonerFailure, err)
}

// Decode asks r and unmarshals the answer into T
func Decode[T any](ctx context.Context, r Reasoner, prompt string) (T, error) {
	var out T
	raw, err := r.Reason(ctx, prompt)
	if err != nil {
		return out, Failure(err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, Failure(fmt.Errorf("decode answer: %w", err))
	}
	return out, nil
}

// Static returns a Reasoner that always answers with the JSON encoding of v
func Static(v any) Reasoner {
	return Func(func(ctx context.Context, _ string) (json.RawMessage, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(data), nil
	})
}
