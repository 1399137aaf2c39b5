package service

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Save12sttm/Vaulto/internal/backup"
	"github.com/Save12sttm/Vaulto/internal/db"
	"github.com/Save12sttm/Vaulto/internal/fault"
	"github.com/Save12sttm/Vaulto/internal/totp"
	"github.com/Save12sttm/Vaulto/internal/vault"
	"github.com/Save12sttm/Vaulto/krypto"
)

var (
	ErrNotFound      = fault.New(fault.Validation, "record not found")
	ErrTitleRequired = fault.New(fault.Validation, "title is required")
	ErrItemType      = fault.New(fault.Validation, "unknown item type")
	ErrExportFormat  = fault.New(fault.Validation, "unknown export format")
)

func validateRecord(r vault.Record) error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrTitleRequired
	}
	if r.ItemType != "" && !vault.ValidItemType(r.ItemType) {
		return fmt.Errorf("%w %q", ErrItemType, r.ItemType)
	}
	if r.TOTPSecret != "" && !totp.ValidateSecret(r.TOTPSecret) {
		return totp.ErrInvalidSecret
	}
	return nil
}

func rowFor(r vault.Record, p krypto.EncryptedPayload) db.RecordRow {
	return db.RecordRow{
		ID:         r.ID,
		Ciphertext: p.Ciphertext,
		IV:         p.IV,
		CreatedAt:  r.CreatedAt,
		ModifiedAt: r.ModifiedAt,
	}
}

func notFound(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// AddRecord encrypts and stores a new record and returns its id.
func (s *Service) AddRecord(r vault.Record) (int64, error) {
	key, err := s.activeKey()
	if err != nil {
		return 0, err
	}
	if err := validateRecord(r); err != nil {
		return 0, err
	}

	r.ID = 0
	r.Normalize()
	r.CreatedAt = 0
	r.Touch(s.now())

	payload, err := vault.SealRecord(key, r)
	if err != nil {
		return 0, err
	}
	id, err := db.InsertRecord(s.db, rowFor(r, payload))
	if err != nil {
		return 0, err
	}
	s.logger.Debug("record added", zap.Int64("id", id))
	return id, nil
}

// GetRecord decrypts the record with the given id.
func (s *Service) GetRecord(id int64) (vault.Record, error) {
	key, err := s.activeKey()
	if err != nil {
		return vault.Record{}, err
	}
	row, err := db.GetRecord(s.db, id)
	if err != nil {
		return vault.Record{}, notFound(err)
	}
	return openRow(key, *row)
}

func openRow(key vault.Sealer, row db.RecordRow) (vault.Record, error) {
	r, err := vault.OpenRecord(key, krypto.EncryptedPayload{Ciphertext: row.Ciphertext, IV: row.IV})
	if err != nil {
		return vault.Record{}, fmt.Errorf("record %d: %w", row.ID, err)
	}
	r.ID = row.ID
	return r, nil
}

// ListRecords decrypts every record, most recently modified first.
func (s *Service) ListRecords() ([]vault.Record, error) {
	key, err := s.activeKey()
	if err != nil {
		return nil, err
	}
	rows, err := db.ListRecords(s.db)
	if err != nil {
		return nil, err
	}

	out := make([]vault.Record, 0, len(rows))
	for _, row := range rows {
		r, err := openRow(key, row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// UpdateRecord replaces record r.ID, keeping its creation time.
func (s *Service) UpdateRecord(r vault.Record) error {
	key, err := s.activeKey()
	if err != nil {
		return err
	}
	if err := validateRecord(r); err != nil {
		return err
	}
	row, err := db.GetRecord(s.db, r.ID)
	if err != nil {
		return notFound(err)
	}

	r.Normalize()
	r.CreatedAt = row.CreatedAt
	r.Touch(s.now())

	payload, err := vault.SealRecord(key, r)
	if err != nil {
		return err
	}
	return notFound(db.UpdateRecord(s.db, rowFor(r, payload)))
}

// DeleteRecord removes the record with the given id.
func (s *Service) DeleteRecord(id int64) error {
	if _, err := s.activeKey(); err != nil {
		return err
	}
	if err := db.DeleteRecord(s.db, id); err != nil {
		return notFound(err)
	}
	s.logger.Debug("record deleted", zap.Int64("id", id))
	return nil
}

// Export formats.
const (
	FormatJSON      = "json"
	FormatEncrypted = "encrypted"
	FormatCSV       = "csv"
)

// Export renders every record in format. Only the encrypted format uses
// passphrase.
func (s *Service) Export(format, passphrase string) ([]byte, error) {
	records, err := s.ListRecords()
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
		return backup.ExportJSON(records)
	case FormatEncrypted:
		return backup.ExportEncrypted(records, passphrase)
	case FormatCSV:
		s.logger.Warn("exporting vault as plaintext csv")
		return []byte(backup.ExportCSV(records)), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrExportFormat, format)
	}
}

// Import decodes a backup and stores all of its records in one
// transaction. The returned records carry their new ids.
func (s *Service) Import(data []byte, opts backup.ImportOptions) (backup.ImportResult, error) {
	key, err := s.activeKey()
	if err != nil {
		return backup.ImportResult{}, err
	}
	if opts.Logger == nil {
		opts.Logger = s.logger
	}

	res, err := backup.Import(data, opts)
	if err != nil {
		return backup.ImportResult{}, err
	}

	rows := make([]db.RecordRow, 0, len(res.Records))
	for _, r := range res.Records {
		if r.CreatedAt == 0 || r.ModifiedAt == 0 {
			r.Touch(s.now())
		}
		payload, err := vault.SealRecord(key, r)
		if err != nil {
			return backup.ImportResult{}, err
		}
		rows = append(rows, rowFor(r, payload))
	}

	ids, err := db.InsertRecords(s.db, rows)
	if err != nil {
		return backup.ImportResult{}, err
	}
	for i := range res.Records {
		res.Records[i].ID = ids[i]
	}
	s.logger.Info("backup imported",
		zap.Int("records", len(ids)),
		zap.Bool("encrypted", res.Encrypted),
		zap.Bool("plaintextFallback", res.PlaintextFallback))
	return res, nil
}
