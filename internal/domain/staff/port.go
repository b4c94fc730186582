package staff

import "context"

// Directory port (read-only lookup over the accounts table)
type Directory interface {
	Get(ctx context.Context, id string) (*Member, error)
	DisplayName(ctx context.Context, id string) (string, error)
	// ActivePathologists returns approved pathologist accounts, stable order
	ActivePathologists(ctx context.Context) ([]*Member, error)
}
