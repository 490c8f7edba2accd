package connector

import (
	"strings"
	"time"
)

// expirationFormat is how {{expiration}} renders inside statements. The
// space-separated form is accepted by every SQL variant the engine ships.
const expirationFormat = "2006-01-02 15:04:05-0700"

// RenderStatement substitutes the {{name}}, {{username}}, {{password}}, and
// {{expiration}} placeholders in one statement template.
func RenderStatement(statement, username, password string, expiresAt time.Time) string {
	return strings.NewReplacer(
		"{{name}}", username,
		"{{username}}", username,
		"{{password}}", password,
		"{{expiration}}", expiresAt.UTC().Format(expirationFormat),
	).Replace(statement)
}

// renderDSN substitutes the admin credentials into a connection URL template.
func renderDSN(cfg *Config) string {
	return strings.NewReplacer(
		"{{username}}", cfg.AdminUsername,
		"{{password}}", cfg.AdminPassword,
	).Replace(cfg.URL)
}
