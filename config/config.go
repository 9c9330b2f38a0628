package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vehicle-rental-api/models"
)

var DB *gorm.DB

var AppEnv Config

type Config struct {
	Port          string
	DBPath        string
	QueueDir      string
	JWTSecret     []byte
	UpstreamURL   string
	UpstreamToken string
	MailURL       string
	PollInterval  time.Duration
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "rental.db"),
		QueueDir:      getEnv("QUEUE_DIR", "localqueue.db"),
		JWTSecret:     []byte(getEnv("JWT_SECRET", "vehicle_rental_super_secret_2024")),
		UpstreamURL:   getEnv("UPSTREAM_ORDERS_URL", "http://localhost:9090/api"),
		UpstreamToken: getEnv("UPSTREAM_ORDERS_TOKEN", ""),
		MailURL:       getEnv("MAIL_API_URL", "http://localhost:9090/api"),
		PollInterval:  getDurationEnv("POLL_INTERVAL_SECONDS", 30, time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func InitDB() {
	var err error
	DB, err = gorm.Open(sqlite.Open(AppEnv.DBPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate all models
	err = DB.AutoMigrate(
		&models.User{},
		&models.Vehicle{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	log.Println("✅ Database connected and migrated successfully")
}
