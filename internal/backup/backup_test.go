package backup_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Save12sttm/Vaulto/internal/backup"
	"github.com/Save12sttm/Vaulto/internal/fault"
	"github.com/Save12sttm/Vaulto/internal/vault"
)

func sampleRecords() []vault.Record {
	records := []vault.Record{
		{
			ID:         7,
			Title:      "Mail",
			Username:   "alice@example.com",
			Password:   `p"a,ss` + "\nword",
			URL:        "https://mail.example.com",
			Notes:      "primary",
			Category:   "Work",
			IsFavorite: true,
			Tags:       []string{"email", "work"},
			TOTPSecret: "JBSWY3DPEHPK3PXP",
			CreatedAt:  1700000000000,
			ModifiedAt: 1700000500000,
		},
		{
			ID:         8,
			Title:      "Visa",
			ItemType:   vault.TypeCard,
			CardNumber: "4111111111111111",
			CardCVV:    "123",
			CardExpiry: "12/30",
			CardHolder: "Alice",
			CreatedAt:  1600000000000,
			ModifiedAt: 1600000000000,
		},
	}
	for i := range records {
		records[i].Normalize()
	}
	return records
}

func withoutIDs(records []vault.Record) []vault.Record {
	out := make([]vault.Record, len(records))
	for i, r := range records {
		r.ID = 0
		out[i] = r
	}
	return out
}

func TestExportImportJSONRoundTrip(t *testing.T) {
	records := sampleRecords()

	data, err := backup.ExportJSON(records)
	require.NoError(t, err)

	got, err := backup.ImportJSON(data, "")
	require.NoError(t, err)
	assert.Equal(t, withoutIDs(records), got)
}

func TestExportJSONEnvelope(t *testing.T) {
	before := time.Now().UnixMilli()
	data, err := backup.ExportJSON([]vault.Record{{Title: "x"}})
	require.NoError(t, err)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &env))
	assert.JSONEq(t, "1", string(env["version"]))
	assert.JSONEq(t, "1", string(env["itemCount"]))

	var exported int64
	require.NoError(t, json.Unmarshal(env["exportDate"], &exported))
	assert.GreaterOrEqual(t, exported, before)

	var items []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(env["items"], &items))
	require.Len(t, items, 1)
	assert.JSONEq(t, "[]", string(items[0]["tags"]))
	assert.JSONEq(t, `"General"`, string(items[0]["category"]))

	assert.True(t, strings.HasPrefix(string(data), "{\n    \"version\": 1,"))
	idx := strings.Index(string(data), `"id"`)
	assert.Less(t, idx, strings.Index(string(data), `"modifiedAt"`))
}

func TestExportImportEncryptedRoundTrip(t *testing.T) {
	records := sampleRecords()

	data, err := backup.ExportEncrypted(records, "backup pass")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("VLTB")))
	assert.False(t, bytes.Contains(data, []byte("alice@example.com")))

	got, err := backup.ImportJSON(data, "backup pass")
	require.NoError(t, err)
	assert.Equal(t, withoutIDs(records), got)

	res, err := backup.Import(data, backup.ImportOptions{Passphrase: "backup pass"})
	require.NoError(t, err)
	assert.True(t, res.Encrypted)
	assert.False(t, res.PlaintextFallback)
}

func TestImportEncryptedWrongPassphrase(t *testing.T) {
	data, err := backup.ExportEncrypted(sampleRecords(), "right")
	require.NoError(t, err)

	_, err = backup.ImportJSON(data, "wrong")
	require.ErrorIs(t, err, backup.ErrDecryptionFailed)
	assert.Equal(t, fault.Authentication, fault.KindOf(err))

	// A real container never falls back to plaintext.
	_, err = backup.Import(data, backup.ImportOptions{Passphrase: "wrong", AllowPlaintextFallback: true})
	require.ErrorIs(t, err, backup.ErrDecryptionFailed)
}

func TestImportEncryptedHeaderIsAuthenticated(t *testing.T) {
	data, err := backup.ExportEncrypted(sampleRecords(), "pass")
	require.NoError(t, err)

	tampered := bytes.Clone(data)
	tampered[20] ^= 0x01 // inside the salt
	_, err = backup.ImportJSON(tampered, "pass")
	assert.ErrorIs(t, err, backup.ErrDecryptionFailed)

	tampered = bytes.Clone(data)
	tampered[4] = 9
	_, err = backup.ImportJSON(tampered, "pass")
	assert.ErrorIs(t, err, backup.ErrMalformedBackup)

	tampered = bytes.Clone(data)
	tampered[5] = 0xff
	_, err = backup.ImportJSON(tampered, "pass")
	assert.ErrorIs(t, err, backup.ErrMalformedBackup)

	_, err = backup.ImportJSON(data[:40], "pass")
	assert.ErrorIs(t, err, backup.ErrMalformedBackup)
}

func TestImportStrictModes(t *testing.T) {
	plain, err := backup.ExportJSON(sampleRecords())
	require.NoError(t, err)
	enc, err := backup.ExportEncrypted(sampleRecords(), "pass")
	require.NoError(t, err)

	_, err = backup.ImportJSON(enc, "")
	require.ErrorIs(t, err, backup.ErrPassphraseRequired)
	assert.Equal(t, fault.Validation, fault.KindOf(err))

	_, err = backup.ImportJSON(plain, "pass")
	require.ErrorIs(t, err, backup.ErrNotEncrypted)
	assert.Equal(t, fault.Format, fault.KindOf(err))

	_, err = backup.ExportEncrypted(sampleRecords(), "")
	assert.ErrorIs(t, err, backup.ErrPassphraseRequired)
}

func TestImportPlaintextFallbackIsExplicit(t *testing.T) {
	plain, err := backup.ExportJSON(sampleRecords())
	require.NoError(t, err)

	core, logs := observer.New(zap.WarnLevel)
	res, err := backup.Import(plain, backup.ImportOptions{
		Passphrase:             "pass",
		AllowPlaintextFallback: true,
		Logger:                 zap.New(core),
	})
	require.NoError(t, err)
	assert.True(t, res.PlaintextFallback)
	assert.False(t, res.Encrypted)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, 1, logs.Len())
}

func TestImportRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":      "hello",
		"array":         "[]",
		"version zero":  `{"version":0,"exportDate":0,"itemCount":0,"items":[]}`,
		"missing ver":   `{"itemCount":0,"items":[]}`,
		"count high":    `{"version":1,"exportDate":0,"itemCount":2,"items":[{"title":"a"}]}`,
		"count low":     `{"version":1,"exportDate":0,"itemCount":0,"items":[{"title":"a"}]}`,
		"bad totp":      `{"version":1,"exportDate":0,"itemCount":1,"items":[{"title":"a","totpSecret":"!!!"}]}`,
		"bad item type": `{"version":1,"exportDate":0,"itemCount":1,"items":[{"title":"a","itemType":"wallet"}]}`,
		"wrong types":   `{"version":"1","exportDate":0,"itemCount":0,"items":[]}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := backup.ImportJSON([]byte(in), "")
			require.ErrorIs(t, err, backup.ErrMalformedBackup)
			assert.Equal(t, fault.Format, fault.KindOf(err))
		})
	}
}

func TestImportIgnoresUnknownFieldsAndResetsIDs(t *testing.T) {
	in := `{"version":2,"exportDate":5,"itemCount":1,"extra":true,
		"items":[{"id":42,"title":"a","customFields":{"k":"v"},"totpSecret":"jbsw y3dp ehpk 3pxp"}]}`

	got, err := backup.ImportJSON([]byte(in), "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Zero(t, got[0].ID)
	assert.Equal(t, "a", got[0].Title)
	assert.True(t, got[0].HasTOTP)
	assert.Equal(t, vault.DefaultCategory, got[0].Category)
}

func TestFileName(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 3, 0, time.UTC)
	assert.Equal(t, "vaulto_backup_2024-03-09_07-05-03.json", backup.FileName(false, ts))
	assert.Equal(t, "vaulto_backup_2024-03-09_07-05-03.vaulto", backup.FileName(true, ts))
}
