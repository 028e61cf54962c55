package ports

import (
	"context"

	"github.com/prive-wellness/payments-service/internal/core/domain"
)

// GatewayPort defines the behavior of the external mobile-money gateway.
type GatewayPort interface {
	// STKPush asks the gateway to prompt the customer's phone for payment.
	STKPush(ctx context.Context, req domain.STKPushRequest) (*domain.STKPushResult, error)
	// STKQuery fetches the authoritative outcome of an earlier push, for
	// reconciling entries whose callback never arrived.
	STKQuery(ctx context.Context, checkoutRequestID string) (*domain.STKQueryResult, error)
}

// SessionStore validates admin sessions server-side on every privileged call.
type SessionStore interface {
	Get(ctx context.Context, token string) (*domain.Session, error)
	Create(ctx context.Context, session *domain.Session) error
	Revoke(ctx context.Context, token string) error
}
