package engine

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/dbsentinel/pggatekeeper/pkg/stmt"
)

// executeCopy applies a COPY statement that survived the hook chain. File
// copies read or write CSV; stream copies are acknowledged without data
// transfer since this engine has no wire protocol.
func (e *Engine) executeCopy(ev stmt.Copy) error {
	if ev.IsProgram {
		// Only reachable with the gatekeeper disabled or uninstalled.
		return fmt.Errorf("COPY TO/FROM PROGRAM is not supported by this engine")
	}
	if ev.Filename == "" {
		return nil
	}
	if ev.IsFrom {
		return e.copyFromFile(ev.TableName, ev.Filename)
	}
	return e.copyToFile(ev.TableName, ev.Filename)
}

func (e *Engine) copyToFile(table, path string) error {
	rows, err := e.db.Query("SELECT * FROM " + quoteIdent(table))
	if err != nil {
		return err
	}
	defer rows.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	record := make([]string, len(cols))
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		for i, v := range values {
			switch x := v.(type) {
			case nil:
				record[i] = ""
			case []byte:
				record[i] = string(x)
			default:
				record[i] = fmt.Sprint(x)
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (e *Engine) copyFromFile(table, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return err
	}
	tx, err := e.db.Begin()
	if err != nil {
		return err
	}
	for _, record := range records {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(record)), ",")
		args := make([]any, len(record))
		for i, v := range record {
			args[i] = v
		}
		if _, err := tx.Exec(
			fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(table), placeholders), args...,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
