package charging

import (
	"context"
)

type Kind string

const (
	KindRental Kind = "rental"
	KindResult Kind = "result"
)

type Result struct {
	LimitReached bool
}

// Service executes charges against the account's billing backend.
// Callers issue at most one Charge per logical charge event; the
// service is not expected to deduplicate.
type Service interface {
	Charge(ctx context.Context, kind Kind, count int) (*Result, error)
}
