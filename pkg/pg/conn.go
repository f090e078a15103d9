package pg

import (
	"database/sql"
	"strings"
)

type Config struct {
	User     string `env:"USER"`
	Host     string `env:"HOST"`
	Port     string `env:"PORT"`
	Password string `env:"PASSWORD"`
	Database string `env:"DBNAME"`
	SSLMode  string `env:"SSLMODE"`
}

// dsn renders a libpq key/value connection string. Empty fields are left to
// the driver defaults, except sslmode which defaults to disable.
func dsn(config Config) string {
	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	pairs := [][2]string{
		{"host", config.Host},
		{"user", config.User},
		{"password", config.Password},
		{"dbname", config.Database},
		{"port", config.Port},
		{"sslmode", sslMode},
	}

	var b strings.Builder
	for _, p := range pairs {
		if p[1] == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(quoteValue(p[1]))
	}
	return b.String()
}

// quoteValue applies libpq quoting when v holds a space, quote or backslash.
func quoteValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// newSqlConnection opens a plain database/sql handle for goose.
func newSqlConnection(config Config) (*sql.DB, error) {
	return sql.Open("postgres", dsn(config))
}

type gooseDB = *sql.DB
