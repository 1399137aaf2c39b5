package backup

import (
	"strconv"
	"strings"

	"github.com/Save12sttm/Vaulto/internal/vault"
)

const csvHeader = "Title,Username,Password,URL,Notes,Category,Favorite,TOTP Secret,Created,Modified\n"

// ExportCSV renders records as CSV. Every text field is quoted. The output
// contains passwords in the clear.
func ExportCSV(records []vault.Record) string {
	var b strings.Builder
	b.WriteString(csvHeader)
	for _, r := range records {
		for _, field := range []string{r.Title, r.Username, r.Password, r.URL, r.Notes, r.Category} {
			writeQuoted(&b, field)
			b.WriteByte(',')
		}
		if r.IsFavorite {
			b.WriteString("Yes,")
		} else {
			b.WriteString("No,")
		}
		writeQuoted(&b, r.TOTPSecret)
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(r.CreatedAt, 10))
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(r.ModifiedAt, 10))
		b.WriteByte('\n')
	}
	return b.String()
}

var csvEscaper = strings.NewReplacer(`"`, `""`, "\n", " ", "\r", "")

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	b.WriteString(csvEscaper.Replace(s))
	b.WriteByte('"')
}
