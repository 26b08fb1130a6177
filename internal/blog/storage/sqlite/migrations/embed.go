// Package migrations contains embedded SQL migrations for the blog schema.
package migrations

import (
	"embed"

	"github.com/louisbranch/postbook/internal/platform/storage/sqlitemigrate"
)

//go:embed *.sql
var FS embed.FS

// InitScript returns the Up sections of every migration as one script, for
// databases that are initialised once instead of migrated.
func InitScript() (string, error) {
	return sqlitemigrate.UpScript(FS, "")
}
