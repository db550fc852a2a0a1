package sources

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/flowbatch/flowbatch/internal/domain"
)

// RateLimited wraps a domain.VecOps with a token-bucket limiter, pacing
// every Length/Split/Materialize call the same way a rate-limiting
// middleware decorator paces outbound requests.
type RateLimited struct {
	next    domain.VecOps
	limiter *rate.Limiter
}

// NewRateLimited wraps next, pacing its calls to at most limit per second
// with bursts up to burst.
func NewRateLimited(next domain.VecOps, limit rate.Limit, burst int) *RateLimited {
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimited) Length(payload any) (int, bool) {
	if err := r.limiter.Wait(context.Background()); err != nil {
		return 0, false
	}
	return r.next.Length(payload)
}

func (r *RateLimited) Split(payload any, n int) ([]domain.Partition, bool) {
	if err := r.limiter.Wait(context.Background()); err != nil {
		return nil, false
	}
	return r.next.Split(payload, n)
}

func (r *RateLimited) Materialize(payload any) (domain.Partition, bool) {
	if err := r.limiter.Wait(context.Background()); err != nil {
		return nil, false
	}
	return r.next.Materialize(payload)
}
