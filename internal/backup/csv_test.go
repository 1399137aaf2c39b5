package backup_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Save12sttm/Vaulto/internal/backup"
	"github.com/Save12sttm/Vaulto/internal/vault"
)

func TestExportCSV(t *testing.T) {
	out := backup.ExportCSV([]vault.Record{
		{
			Title:      `Say "hi"`,
			Username:   "bob",
			Password:   "line1\r\nline2",
			URL:        "https://a.example",
			Notes:      "a,b",
			Category:   "Personal",
			IsFavorite: true,
			TOTPSecret: "JBSWY3DPEHPK3PXP",
			CreatedAt:  1,
			ModifiedAt: 2,
		},
		{Title: "plain", Category: "General", CreatedAt: 3, ModifiedAt: 4},
	})

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "Title,Username,Password,URL,Notes,Category,Favorite,TOTP Secret,Created,Modified", lines[0])
	assert.Equal(t, `"Say ""hi""","bob","line1 line2","https://a.example","a,b","Personal",Yes,"JBSWY3DPEHPK3PXP",1,2`, lines[1])
	assert.Equal(t, `"plain","","","","","General",No,"",3,4`, lines[2])
}

func TestExportCSVEmpty(t *testing.T) {
	assert.Equal(t, "Title,Username,Password,URL,Notes,Category,Favorite,TOTP Secret,Created,Modified\n", backup.ExportCSV(nil))
}
