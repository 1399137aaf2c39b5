package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// RecordRow is one encrypted vault record as stored. Only the timestamps are
// kept in the clear so the list can be ordered without decrypting.
type RecordRow struct {
	ID         int64
	Ciphertext []byte
	IV         []byte
	CreatedAt  int64
	ModifiedAt int64
}

// ErrNotFound is returned when no row matches the id.
var ErrNotFound = errors.New("record not found")

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertRow(e execer, r RecordRow) (int64, error) {
	res, err := e.Exec(
		`INSERT INTO vault_records (ciphertext, iv, created_at, modified_at) VALUES (?, ?, ?, ?)`,
		r.Ciphertext, r.IV, r.CreatedAt, r.ModifiedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("fetch insert id: %w", err)
	}
	return id, nil
}

// InsertRecord stores a new row and returns its database ID. r.ID is ignored.
func InsertRecord(d *DB, r RecordRow) (int64, error) {
	if d == nil || d.sql == nil {
		return 0, fmt.Errorf("database handle is nil")
	}
	return insertRow(d.sql, r)
}

// InsertRecords stores all rows in one transaction and returns their IDs in
// order. Either every row is written or none is.
func InsertRecords(d *DB, rows []RecordRow) ([]int64, error) {
	if d == nil || d.sql == nil {
		return nil, fmt.Errorf("database handle is nil")
	}

	tx, err := d.sql.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		id, err := insertRow(tx, r)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}
	return ids, nil
}

// UpdateRecord replaces the ciphertext, IV and modification time of row r.ID.
func UpdateRecord(d *DB, r RecordRow) error {
	if d == nil || d.sql == nil {
		return fmt.Errorf("database handle is nil")
	}

	res, err := d.sql.Exec(
		`UPDATE vault_records SET ciphertext = ?, iv = ?, modified_at = ? WHERE id = ?`,
		r.Ciphertext, r.IV, r.ModifiedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return requireAffected(res)
}

// GetRecord returns the row with the given id.
func GetRecord(d *DB, id int64) (*RecordRow, error) {
	if d == nil || d.sql == nil {
		return nil, fmt.Errorf("database handle is nil")
	}

	var r RecordRow
	err := d.sql.QueryRow(
		`SELECT id, ciphertext, iv, created_at, modified_at FROM vault_records WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.Ciphertext, &r.IV, &r.CreatedAt, &r.ModifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select record: %w", err)
	}
	return &r, nil
}

// ListRecords returns every row, most recently modified first.
func ListRecords(d *DB) ([]RecordRow, error) {
	if d == nil || d.sql == nil {
		return nil, fmt.Errorf("database handle is nil")
	}

	rows, err := d.sql.Query(
		`SELECT id, ciphertext, iv, created_at, modified_at
		 FROM vault_records
		 ORDER BY modified_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer rows.Close()

	var results []RecordRow
	for rows.Next() {
		var r RecordRow
		if err := rows.Scan(&r.ID, &r.Ciphertext, &r.IV, &r.CreatedAt, &r.ModifiedAt); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %w", err)
	}
	return results, nil
}

// DeleteRecord removes the row with the given id.
func DeleteRecord(d *DB, id int64) error {
	if d == nil || d.sql == nil {
		return fmt.Errorf("database handle is nil")
	}

	res, err := d.sql.Exec(`DELETE FROM vault_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
