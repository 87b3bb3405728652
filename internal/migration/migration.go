package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	attachmentdomain "github.com/macfixkou/repair-manager/internal/attachment/domain"
	auditdomain "github.com/macfixkou/repair-manager/internal/audit/domain"
	authdomain "github.com/macfixkou/repair-manager/internal/auth/domain"
	identitydomain "github.com/macfixkou/repair-manager/internal/identity/domain"
	orgdomain "github.com/macfixkou/repair-manager/internal/organization/domain"
	casedomain "github.com/macfixkou/repair-manager/internal/repaircase/domain"
	"github.com/macfixkou/repair-manager/pkg/db"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "migrations"

// Models lists every table owned by the application, for dialects without
// SQL migrations.
func Models() []any {
	return []any{
		&orgdomain.Organization{},
		&orgdomain.OrganizationSettings{},
		&identitydomain.Identity{},
		&authdomain.User{},
		&casedomain.Case{},
		&casedomain.StatusHistory{},
		&attachmentdomain.Attachment{},
		&auditdomain.AuditLog{},
	}
}

// Run brings the schema up to date. Postgres uses the embedded SQL
// migrations; MySQL and SQLite are created from the models.
func Run(conn *gorm.DB, dbType string) error {
	if dbType != db.TypePostgres {
		if err := conn.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

func RunMigrations(sqlDB *sql.DB) error {
	if sqlDB == nil {
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
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	// migrator.Close would close the shared *sql.DB.
	return nil
}
