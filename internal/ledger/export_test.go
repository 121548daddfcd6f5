package ledger

import (
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
)

// NewMemService wires a Service over the in-memory repository, seeded with
// accounts and a fixed clock.
func NewMemService(now time.Time, accounts ...Account) *Service {
	repo := newMemRepo()
	for _, acc := range accounts {
		repo.addAccount(acc)
	}
	svc := NewService(repo, audit.NewRecorder(), ServiceConfig{})
	svc.WithNow(func() time.Time { return now })
	return svc
}
