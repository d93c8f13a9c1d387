package seeder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/nutra/internal/auth"
	"github.com/Additional-Code/nutra/internal/database"
	"github.com/Additional-Code/nutra/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Run applies all seeders.
func (s *Seeder) Run(ctx context.Context) error {
	if err := s.AdminUser(ctx); err != nil {
		return err
	}
	return s.Products(ctx)
}

// AdminUser seeds a default admin account if it is missing. The development
// password must be rotated before any non-local use.
func (s *Seeder) AdminUser(ctx context.Context) error {
	hash, err := auth.HashPassword("admin-dev-password")
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	admin := entity.User{
		Name:         "Admin",
		Email:        "admin@nutra.local",
		PasswordHash: hash,
		Role:         entity.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.db.NewInsert().Model(&admin).
		On("CONFLICT (email) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("seeded admin user", zap.String("email", admin.Email))
	}
	return nil
}

// Products seeds example catalog products if they are missing.
func (s *Seeder) Products(ctx context.Context) error {
	now := time.Now().UTC()
	samples := []entity.Product{
		{Name: "Whey Protein 1kg", Slug: "whey-protein-1kg", Price: decimal.NewFromFloat(29.99), Stock: 120, Active: true, CreatedAt: now, UpdatedAt: now},
		{Name: "Creatine Monohydrate 300g", Slug: "creatine-monohydrate-300g", Price: decimal.NewFromFloat(14.50), Stock: 200, Active: true, CreatedAt: now, UpdatedAt: now},
		{Name: "Omega-3 Fish Oil 90caps", Slug: "omega-3-fish-oil-90caps", Price: decimal.NewFromFloat(11.25), Stock: 80, Active: true, CreatedAt: now, UpdatedAt: now},
		{Name: "Vitamin D3 5000IU", Slug: "vitamin-d3-5000iu", Price: decimal.NewFromFloat(7.90), Stock: 0, Active: false, CreatedAt: now, UpdatedAt: now},
	}

	for _, sample := range samples {
		product := sample
		_, err := s.db.NewInsert().Model(&product).
			On("CONFLICT (slug) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded products", zap.Int("count", len(samples)))
	}
	return nil
}
