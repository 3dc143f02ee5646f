package accounts

import (
	"context"

	"github.com/uptrace/bun"
)

// Roles reads the seeded role rows
type Roles interface {
	GetByNameTx(ctx context.Context, tx bun.IDB, name UserRole) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
}

type roles struct {
	db *bun.DB
}

// NewRolesRepository returns a bun backed Roles repository
func NewRolesRepository(db *bun.DB) Roles {
	return &roles{db: db}
}

func (r *roles) GetByNameTx(ctx context.Context, tx bun.IDB, name UserRole) (*Role, error) {
	role := &Role{}
	if err := tx.NewSelect().Model(role).Where("?TableAlias.name = ?", name).Limit(1).Scan(ctx); err != nil {
		return nil, err
	}
	return role, nil
}

func (r *roles) List(ctx context.Context) ([]*Role, error) {
	records := []*Role{}
	if err := r.db.NewSelect().Model(&records).Order("rl.id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}
