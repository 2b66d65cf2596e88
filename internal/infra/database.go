package infra

import (
	"fmt"

	"github.com/oliklab/mledger-sub000/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches that
// GORM cannot express (CHECK constraints, partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates the schema on db. It is safe to call on every start
// and is shared by the server, the seed command and the test databases.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
// The CHECKs back the service-side validation; the partial index serves the
// low-stock listing. Other dialects (sqlite in tests) skip them.
func applySchemaPatches(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	patches := []struct{ descr, sql string }{
		{"materials conversion factor positive", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_materials_conversion_factor') THEN
    ALTER TABLE materials ADD CONSTRAINT chk_materials_conversion_factor CHECK (conversion_factor > 0);
  END IF;
END $$`},
		{"material purchases positive quantity and cost", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_material_purchases_positive') THEN
    ALTER TABLE material_purchases
      ADD CONSTRAINT chk_material_purchases_positive CHECK (total_quantity > 0 AND total_cost > 0);
  END IF;
END $$`},
		{"product builds positive quantity", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_product_builds_quantity') THEN
    ALTER TABLE product_builds ADD CONSTRAINT chk_product_builds_quantity CHECK (quantity_built > 0);
  END IF;
END $$`},
		{"sale status domain", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_sales_status') THEN
    ALTER TABLE sales ADD CONSTRAINT chk_sales_status CHECK (status IN ('draft', 'completed', 'cancelled'));
  END IF;
END $$`},
		{"low stock partial index",
			`CREATE INDEX IF NOT EXISTS idx_materials_low_stock
			   ON materials (user_id)
			   WHERE minimum_threshold > 0 AND current_stock < minimum_threshold`},
		{"movement listing index",
			`CREATE INDEX IF NOT EXISTS idx_stock_movements_user_created
			   ON stock_movements (user_id, created_at DESC)`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
