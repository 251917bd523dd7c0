package dbtest

import (
	"testing"

	"gorm.io/gorm"

	"github.com/kbukum/gotemplate/entity"
)

// CountRows returns the number of rows in table as seen by db.
func CountRows(db *gorm.DB, table string) (int64, error) {
	var count int64
	err := db.Table(table).Count(&count).Error
	return count, err
}

// AssertTableEmpty fails the test if table has rows.
func AssertTableEmpty(t testing.TB, db *gorm.DB, table string) {
	t.Helper()
	AssertRowCount(t, db, table, 0)
}

// AssertRowCount fails the test if table does not hold expected rows.
func AssertRowCount(t testing.TB, db *gorm.DB, table string, expected int64) {
	t.Helper()
	count, err := CountRows(db, table)
	if err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
	}
	if count != expected {
		t.Errorf("table %s row count = %d, want %d", table, count, expected)
	}
}

// MissingColumns lists the fields of def, plus the server-assigned
// columns, that have no column in its table.
func MissingColumns(db *gorm.DB, def *entity.Definition) []string {
	m := db.Migrator()
	if !m.HasTable(def.Table) {
		return []string{def.Table}
	}
	var missing []string
	names := []string{entity.KeyField, entity.CreatedAtField, entity.UpdatedAtField}
	for _, f := range def.Fields {
		names = append(names, f.Name)
	}
	for _, name := range names {
		if !m.HasColumn(def.Table, name) {
			missing = append(missing, def.Table+"."+name)
		}
	}
	return missing
}
