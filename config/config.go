package config

import (
	"os"
	"strings"
	"time"

	"restaurant-menu/models"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// EnvPrefix prefixes every environment variable read through viper,
// e.g. MENU_SESSION_SECRET for session.secret.
const EnvPrefix = "MENU"

// devSecret signs session cookies when running in gin debug mode without a
// configured secret. Any other mode refuses to start without one.
const devSecret = "restaurant_menu_dev_secret_change_me"

// Config is the full runtime configuration of the server.
type Config struct {
	HTTPAddr string
	GinMode  string
	DBPath   string

	LogLevel  string
	LogFormat string

	SessionSecret  []byte
	SessionTTL     time.Duration
	SessionCookie  string
	SecureCookie   bool
	SessionBackend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	BcryptCost int
	LoginRate  float64
	LoginBurst int

	AllowedOrigins []string

	// ExemptOwnEmail lets a profile keep its current email address. Off by
	// default: the uniqueness check compares against every user, the
	// caller included.
	ExemptOwnEmail bool
}

// NewViper returns a viper instance reading MENU_* environment variables
// with every key defaulted.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// SetDefaults registers the default value of every configuration key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("gin.mode", gin.ReleaseMode)
	v.SetDefault("db.path", "restaurant_menu.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", 14*24*time.Hour)
	v.SetDefault("session.cookie", "sessionid")
	v.SetDefault("session.secure_cookie", false)
	v.SetDefault("session.backend", "db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.bcrypt_cost", bcrypt.DefaultCost)
	v.SetDefault("auth.login_rate", 1.0)
	v.SetDefault("auth.login_burst", 5)
	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("profile.exempt_own_email", false)
}

// Load reads the configuration out of v and checks it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		HTTPAddr:       v.GetString("http.addr"),
		GinMode:        v.GetString("gin.mode"),
		DBPath:         v.GetString("db.path"),
		LogLevel:       v.GetString("log.level"),
		LogFormat:      v.GetString("log.format"),
		SessionSecret:  []byte(v.GetString("session.secret")),
		SessionTTL:     v.GetDuration("session.ttl"),
		SessionCookie:  v.GetString("session.cookie"),
		SecureCookie:   v.GetBool("session.secure_cookie"),
		SessionBackend: v.GetString("session.backend"),
		RedisAddr:      v.GetString("redis.addr"),
		RedisPassword:  v.GetString("redis.password"),
		RedisDB:        v.GetInt("redis.db"),
		BcryptCost:     v.GetInt("auth.bcrypt_cost"),
		LoginRate:      v.GetFloat64("auth.login_rate"),
		LoginBurst:     v.GetInt("auth.login_burst"),
		AllowedOrigins: v.GetStringSlice("cors.allowed_origins"),
		ExemptOwnEmail: v.GetBool("profile.exempt_own_email"),
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if len(c.SessionSecret) == 0 {
		if c.GinMode != gin.DebugMode {
			return errors.New("session.secret must be set (MENU_SESSION_SECRET) outside debug mode")
		}
		c.SessionSecret = []byte(devSecret)
	}
	if c.SessionTTL <= 0 {
		return errors.Errorf("session.ttl must be positive, got %s", c.SessionTTL)
	}
	switch c.SessionBackend {
	case "db", "redis":
	default:
		return errors.Errorf("session.backend must be db or redis, got %q", c.SessionBackend)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return errors.Errorf("auth.bcrypt_cost must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.LoginBurst < 1 {
		return errors.New("auth.login_burst must be at least 1")
	}
	return nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "loading %s", f)
		}
	}
	return nil
}

// InitDB opens the SQLite database at path and migrates every model.
func InitDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to access database handle")
	}
	// SQLite has a single writer; one connection also keeps in-memory
	// databases alive for the life of the pool.
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the schema of every model.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.FoodItem{},
		&models.Session{},
	)
	return errors.Wrap(err, "failed to migrate database")
}
