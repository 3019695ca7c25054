package mail

import (
	"context"

	"golang.org/x/time/rate"
)

type rateLimited struct {
	next    Sender
	limiter *rate.Limiter
}

// RateLimited paces calls to next at perSecond with the given burst. A
// non-positive rate returns next unchanged.
func RateLimited(next Sender, perSecond float64, burst int) Sender {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *rateLimited) Send(ctx context.Context, msg Message) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return &SendError{Recipient: msg.To, Cause: err}
	}
	return r.next.Send(ctx, msg)
}
