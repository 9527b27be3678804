// internal/config/database.go
package config

import (
	"fmt"
)

// DSN builds the pgx keyword/value connection string. application_name lets
// the sessions holding checkout row locks be identified in pg_stat_activity.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s application_name=greencart-backend",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}
