package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	agreementdomain "github.com/smallbiznis/spacebook/internal/agreement/domain"
	auditdomain "github.com/smallbiznis/spacebook/internal/audit/domain"
	bookingdomain "github.com/smallbiznis/spacebook/internal/booking/domain"
	catalogdomain "github.com/smallbiznis/spacebook/internal/catalog/domain"
	invoicedomain "github.com/smallbiznis/spacebook/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/spacebook/internal/payment/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded postgres migrations. The overlap
// exclusion constraint and partial indexes only exist on postgres.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists the tables owned by this service in dependency order.
func Models() []any {
	return []any{
		&catalogdomain.Space{},
		&bookingdomain.Booking{},
		&paymentdomain.Payment{},
		&invoicedomain.Invoice{},
		&auditdomain.AuditLog{},
		&agreementdomain.Acceptance{},
	}
}

// AutoMigrate creates the schema on stores without SQL migrations (sqlite, mysql).
func AutoMigrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
