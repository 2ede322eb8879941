package database

const (
	// DriverPostgres selects github.com/lib/pq.
	DriverPostgres = "postgres"
	// DriverPgx selects the database/sql adapter of github.com/jackc/pgx/v5.
	DriverPgx = "pgx"

	defaultMigrationsDir = "migrations"
)

// Config holds database connection settings.
type Config struct {
	Driver         string `yaml:"driver" envconfig:"DB_DRIVER"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// DriverName returns the database/sql driver to open; unknown or empty
// values fall back to lib/pq.
func (c Config) DriverName() string {
	if c.Driver == DriverPgx {
		return DriverPgx
	}
	return DriverPostgres
}

// Migrations returns the migrations directory, defaulting to "migrations".
func (c Config) Migrations() string {
	if c.MigrationsDir == "" {
		return defaultMigrationsDir
	}
	return c.MigrationsDir
}

// Enabled reports whether a database is configured at all.
func (c Config) Enabled() bool {
	return c.Host != "" && c.Name != ""
}
