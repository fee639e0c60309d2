package ports

import (
	"context"

	"github.com/edustream/session-system/internal/core/domain"
)

// ProfileStore persists account profiles. Get returns
// domain.ErrProfileNotFound for unknown accounts; Create is called once on
// first login with the default student role.
type ProfileStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
}
