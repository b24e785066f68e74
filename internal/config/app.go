package config

import "time"

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// DBConfig holds database connection settings.
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN renders the connection string understood by the postgres driver.
func (c DBConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode
}

// RedisConfig holds cache connection settings.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// KafkaConfig holds notification producer settings.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// AppConfig is the infrastructure configuration for the server binaries.
type AppConfig struct {
	Port        string
	StoreDriver string
	JWTSecret   string
	CORSOrigins string
	DB          DBConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Ledger      LedgerConfig
}

// Load reads the whole application configuration from the environment.
func Load() AppConfig {
	return AppConfig{
		Port:        GetEnv("PORT", "3000"),
		StoreDriver: GetEnv("STORE_DRIVER", StoreDriverPostgres),
		JWTSecret:   GetEnv("JWT_SECRET", "coursepay"),
		CORSOrigins: GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		DB: DBConfig{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "coursepay"),
			SSLMode:         GetEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  GetBoolEnv("REDIS_ENABLED", true),
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: GetListEnv("KAFKA_BROKERS"),
			Topic:   GetEnv("KAFKA_TOPIC", "wallet.events"),
		},
		Ledger: LoadLedgerConfig(),
	}
}
