package migration

import (
	"io/fs"
	"strings"
	"sync"
	"testing"

	casedomain "github.com/macfixkou/repair-manager/internal/repaircase/domain"
	"github.com/macfixkou/repair-manager/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm/schema"
)

func TestRunCreatesTablesOnSQLite(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)

	require.NoError(t, Run(conn, db.TypeSQLite))
	for _, table := range []string{
		"organizations", "organization_settings", "identities", "users",
		"repair_cases", "case_status_histories", "case_attachments", "audit_logs",
	} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}

	require.NoError(t, Run(conn, db.TypeSQLite))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, 3, ups)
	assert.Equal(t, ups, downs)
}

func mysqlDialector() mysql.Dialector {
	precision := 3
	return mysql.Dialector{Config: &mysql.Config{DefaultDatetimePrecision: &precision}}
}

func TestModelsFitMySQLColumnRules(t *testing.T) {
	dialector := mysqlDialector()
	cache := &sync.Map{}

	for _, model := range Models() {
		sch, err := schema.Parse(model, cache, schema.NamingStrategy{})
		require.NoError(t, err)

		for _, idx := range sch.ParseIndexes() {
			for _, opt := range idx.Fields {
				columnType := dialector.DataTypeOf(opt.Field)
				assert.NotContains(t, columnType, "text", "%s.%s is in index %s", sch.Table, opt.DBName, idx.Name)
			}
		}
		for _, field := range sch.Fields {
			if !strings.Contains(dialector.DataTypeOf(field), "text") {
				continue
			}
			assert.False(t, field.HasDefaultValue, "%s.%s is a text column with a default", sch.Table, field.DBName)
		}
	}
}

func TestLongCaseFieldsAreText(t *testing.T) {
	dialector := mysqlDialector()
	sch, err := schema.Parse(&casedomain.Case{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	for _, name := range []string{
		"CustomerNote", "Symptom", "InitialHypothesis", "ActionsTaken",
		"Measurements", "NotDone", "NotDoneReason", "ShareNote",
	} {
		field := sch.LookUpField(name)
		require.NotNil(t, field, name)
		assert.Equal(t, "text", dialector.DataTypeOf(field), name)
	}
	for _, name := range []string{"CustomerName", "Manufacturer", "ModelNumber"} {
		field := sch.LookUpField(name)
		require.NotNil(t, field, name)
		assert.Equal(t, "varchar(200)", dialector.DataTypeOf(field), name)
	}
}
