package bootstrap

import (
	"context"
	"strconv"

	"github.com/jmoiron/sqlx"
)

// Seeder loads reference data once the schema is in place. Seeders run on
// every start, so they must be idempotent.
type Seeder interface {
	Seed(ctx context.Context, db *sqlx.DB) error
}

// SeederFunc adapts a bare function to the Seeder interface.
type SeederFunc func(ctx context.Context, db *sqlx.DB) error

// Seed executes the underlying function.
func (f SeederFunc) Seed(ctx context.Context, db *sqlx.DB) error {
	return f(ctx, db)
}

type namedSeeder struct {
	name string
	SeederFunc
}

func (n namedSeeder) Name() string { return n.name }

// Named labels fn so a failure names the seeder.
func Named(name string, fn SeederFunc) Seeder {
	return namedSeeder{name: name, SeederFunc: fn}
}

func seederName(s Seeder, index int) string {
	if n, ok := s.(interface{ Name() string }); ok && n.Name() != "" {
		return strconv.Quote(n.Name())
	}
	return "#" + strconv.Itoa(index)
}
