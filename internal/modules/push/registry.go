package push

import (
	"context"
	"time"

	"go.uber.org/zap"

	"wasla/internal/metrics"
	"wasla/internal/types"
)

const (
	defaultMaxAttempts    = 3
	defaultAttemptTimeout = 5 * time.Second
	defaultBackoffBase    = 200 * time.Millisecond
	// Consecutive "endpoint gone" results before the subscription is pruned.
	pruneThreshold = 3
)

// Registry owns subscription lifecycle and drives the external Sender with a
// bounded retry budget. Delivery is best-effort acceleration; durability
// lives in the notification rows, so a spent budget only drops this attempt.
type Registry struct {
	store          Store
	sender         Sender
	log            *zap.Logger
	maxAttempts    int
	attemptTimeout time.Duration
	backoffBase    time.Duration
}

type Option func(*Registry)

func WithRetryPolicy(maxAttempts int, attemptTimeout, backoffBase time.Duration) Option {
	return func(r *Registry) {
		r.maxAttempts = maxAttempts
		r.attemptTimeout = attemptTimeout
		r.backoffBase = backoffBase
	}
}

func NewRegistry(store Store, sender Sender, log *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		store:          store,
		sender:         sender,
		log:            log,
		maxAttempts:    defaultMaxAttempts,
		attemptTimeout: defaultAttemptTimeout,
		backoffBase:    defaultBackoffBase,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register upserts a subscription keyed by (userID, endpoint). Re-registering
// the same endpoint refreshes the keys instead of duplicating.
func (r *Registry) Register(ctx context.Context, userID types.ID, endpoint, p256dh, auth string) error {
	return r.store.Upsert(ctx, &Subscription{
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   p256dh,
		Auth:     auth,
	})
}

func (r *Registry) Unregister(ctx context.Context, endpoint string) error {
	return r.store.DeleteByEndpoint(ctx, endpoint)
}

// SendToUser delivers the payload to every subscription the user owns.
// Transient failures are retried with exponential backoff inside the attempt
// budget; "gone" results strike the endpoint and prune it after repeated
// strikes. Errors never propagate: delivery is a side effect.
func (r *Registry) SendToUser(ctx context.Context, userID types.ID, payload []byte) {
	subs, err := r.store.ListByUser(ctx, userID)
	if err != nil {
		r.log.Error("push: list subscriptions failed", zap.String("user_id", string(userID)), zap.Error(err))
		return
	}
	for _, sub := range subs {
		r.sendOne(ctx, sub, payload)
	}
}

func (r *Registry) sendOne(ctx context.Context, sub Subscription, payload []byte) {
	backoff := r.backoffBase
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
		res := r.sender.Send(attemptCtx, sub, payload)
		cancel()

		switch res {
		case SendDelivered:
			metrics.PushSends.WithLabelValues("delivered").Inc()
			if err := r.store.ResetFailures(ctx, sub.Endpoint); err != nil {
				r.log.Warn("push: reset failure count", zap.Error(err))
			}
			return
		case SendGone:
			metrics.PushSends.WithLabelValues("gone").Inc()
			strikes, err := r.store.RecordGoneFailure(ctx, sub.Endpoint)
			if err != nil {
				r.log.Warn("push: record failure", zap.Error(err))
				return
			}
			if strikes >= pruneThreshold {
				if err := r.store.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
					r.log.Error("push: prune subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
					return
				}
				r.log.Info("push: pruned dead subscription",
					zap.String("user_id", string(sub.UserID)),
					zap.String("endpoint", sub.Endpoint))
			}
			return
		case SendTransient:
			metrics.PushSends.WithLabelValues("transient").Inc()
			if attempt == r.maxAttempts {
				r.log.Warn("push: retry budget spent",
					zap.String("user_id", string(sub.UserID)),
					zap.Int("attempts", attempt))
				return
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff *= 2
		}
	}
}
