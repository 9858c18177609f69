package db

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var clauseLockingUpdate = clause.Locking{Strength: "UPDATE"}

// InsertUnique inserts row unless another row already holds the same values
// in the uniqueOn columns. When nothing was inserted the existing row is
// loaded into row and inserted is false. Conflicts on other unique columns
// are still returned as errors.
func InsertUnique(ctx context.Context, tx *gorm.DB, row any, uniqueOn ...string) (bool, error) {
	if len(uniqueOn) == 0 {
		return false, errors.New("insert unique: no conflict columns")
	}

	columns := make([]clause.Column, 0, len(uniqueOn))
	for _, name := range uniqueOn {
		columns = append(columns, clause.Column{Name: name})
	}

	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: columns, DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	if err := loadByColumns(ctx, tx, row, uniqueOn); err != nil {
		return false, err
	}
	return false, nil
}

func loadByColumns(ctx context.Context, tx *gorm.DB, row any, uniqueOn []string) error {
	stmt := &gorm.Statement{DB: tx}
	if err := stmt.Parse(row); err != nil {
		return err
	}

	target := reflect.Indirect(reflect.ValueOf(row))
	where := make(map[string]any, len(uniqueOn))
	for _, name := range uniqueOn {
		field := stmt.Schema.LookUpField(name)
		if field == nil {
			return fmt.Errorf("insert unique: unknown column %q on %s", name, stmt.Schema.Table)
		}
		value, _ := field.ValueOf(ctx, target)
		where[field.DBName] = value
	}

	existing := reflect.New(target.Type())
	if err := tx.WithContext(ctx).Where(where).Take(existing.Interface()).Error; err != nil {
		return fmt.Errorf("insert unique: load existing %s: %w", stmt.Schema.Table, err)
	}
	target.Set(existing.Elem())
	return nil
}
