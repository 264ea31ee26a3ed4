package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/farellandr/payrecon/internal/models"
	"github.com/xendit/xendit-go/v6"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
	if cfg.DBHost == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("DB_HOST and DB_NAME are required")
	}
	return cfg, nil
}

type AppConfig struct {
	Port                 string
	Env                  string
	FrontendURL          string
	PublicURL            string
	GatewayTimeout       time.Duration
	CallbackRatePerMin   int
	CallbackRateBurst    int
	ReceiptSigningSecret string
}

func LoadAppConfig() (*AppConfig, error) {
	timeout, err := time.ParseDuration(getEnv("GATEWAY_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid GATEWAY_TIMEOUT: %w", err)
	}
	perMin, err := strconv.Atoi(getEnv("CALLBACK_RATE_PER_MIN", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid CALLBACK_RATE_PER_MIN: %w", err)
	}
	burst, err := strconv.Atoi(getEnv("CALLBACK_RATE_BURST", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid CALLBACK_RATE_BURST: %w", err)
	}

	return &AppConfig{
		Port:                 getEnv("PORT", "8080"),
		Env:                  getEnv("APP_ENV", "development"),
		FrontendURL:          getEnv("FRONTEND_URL", "http://localhost:3000"),
		PublicURL:            getEnv("PUBLIC_URL", "http://localhost:8080"),
		GatewayTimeout:       timeout,
		CallbackRatePerMin:   perMin,
		CallbackRateBurst:    burst,
		ReceiptSigningSecret: os.Getenv("RECEIPT_SIGNING_SECRET"),
	}, nil
}

func (a *AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type AuthConfig struct {
	JWTSecret string
}

func LoadAuthConfig() (*AuthConfig, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return &AuthConfig{JWTSecret: secret}, nil
}

type GatewayConfig struct {
	StoreID       string
	StorePassword string
	BaseURL       string
	Currency      string
	VerifyIPN     bool
}

func LoadGatewayConfig() (*GatewayConfig, error) {
	baseURL := "https://sandbox.sslcommerz.com"
	if getEnv("SSL_IS_LIVE", "false") == "true" {
		baseURL = "https://securepay.sslcommerz.com"
	}
	return &GatewayConfig{
		StoreID:       os.Getenv("SSL_STORE_ID"),
		StorePassword: os.Getenv("SSL_STORE_PASSWORD"),
		BaseURL:       getEnv("SSL_BASE_URL", baseURL),
		Currency:      getEnv("SSL_CURRENCY", "BDT"),
		VerifyIPN:     getEnv("SSL_VERIFY_IPN", "true") == "true",
	}, nil
}

func (g *GatewayConfig) Enabled() bool {
	return g.StoreID != "" && g.StorePassword != ""
}

type XenditConfig struct {
	SecretKey     string
	PublicKey     string
	CallbackToken string
	Currency      string
}

func LoadXenditConfig() (*XenditConfig, error) {
	return &XenditConfig{
		SecretKey:     os.Getenv("XENDIT_SECRET_KEY"),
		PublicKey:     os.Getenv("XENDIT_PUBLIC_KEY"),
		CallbackToken: os.Getenv("XENDIT_CALLBACK_TOKEN"),
		Currency:      getEnv("XENDIT_CURRENCY", "IDR"),
	}, nil
}

func (x *XenditConfig) Enabled() bool {
	return x.SecretKey != ""
}

func InitXenditClient(config *XenditConfig) (*xendit.APIClient, error) {
	if !config.Enabled() {
		return nil, fmt.Errorf("XENDIT_SECRET_KEY is not set")
	}
	client := xendit.NewClient(config.SecretKey)

	return client, nil
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func LoadKafkaConfig() (*KafkaConfig, error) {
	var brokers []string
	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return &KafkaConfig{
		Brokers: brokers,
		Topic:   getEnv("KAFKA_PAYMENT_TOPIC", "payment-events"),
	}, nil
}

func (k *KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := enableUUIDExtension(db); err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&models.User{}, &models.Payment{}, &models.FundTransaction{})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
