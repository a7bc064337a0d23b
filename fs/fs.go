// Package appfs embeds the database migrations and the email templates.
package appfs

import "embed"

//go:embed migrations/*.sql templates/email/* common-passwords.txt.gz
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
	CommonPasswords   = "common-passwords.txt.gz"
)
