package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Mode string // gin mode: debug | release | test

	// Database: sqlite (default, single-host study deployments) or mysql.
	DBDriver   string
	DBDSN      string
	SQLitePath string

	JWTSecret         string
	AdminPasswordHash string // bcrypt hash; admin login disabled when empty

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitURL   string
	RabbitQueue string

	// Chat providers
	OllamaBaseURL       string
	HuggingFaceEndpoint string
	HuggingFaceToken    string
	OpenRouterBaseURL   string
	OpenRouterAPIKey    string
	OpenRouterSiteURL   string
	OpenRouterAppName   string

	// Image generation
	ReplicateBaseURL string
	ReplicateToken   string
	ReplicateModel   string
	ImageStylePrefix string

	// Local file storage root (generated images, moodboard uploads)
	DataDir string

	LogLevel  string
	LogFormat string
}

func Load() Config {
	// .env is optional; real env vars win.
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	mode := os.Getenv("GIN_MODE")
	if mode == "" {
		mode = "debug"
	}

	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}

	// DSN demo:
	// app:apppass@tcp(127.0.0.1:3306)/study?charset=utf8mb4&parseTime=true&loc=Local
	dsn := os.Getenv("DB_DSN")

	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = "data/study.db"
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	rabbitQueue := os.Getenv("RABBIT_QUEUE")
	if rabbitQueue == "" {
		rabbitQueue = "image_jobs"
	}

	ollamaBaseURL := os.Getenv("OLLAMA_BASE_URL")
	if ollamaBaseURL == "" {
		ollamaBaseURL = "http://localhost:11434"
	}

	openRouterBaseURL := os.Getenv("OPENROUTER_BASE_URL")
	if openRouterBaseURL == "" {
		openRouterBaseURL = "https://openrouter.ai/api/v1"
	}

	replicateBaseURL := os.Getenv("REPLICATE_BASE_URL")
	if replicateBaseURL == "" {
		replicateBaseURL = "https://api.replicate.com"
	}
	replicateModel := os.Getenv("REPLICATE_MODEL")
	if replicateModel == "" {
		replicateModel = "black-forest-labs/flux-schnell"
	}

	stylePrefix := os.Getenv("IMAGE_STYLE_PREFIX")
	if stylePrefix == "" {
		stylePrefix = "A professional product design photograph, clean white background, high-end furniture catalog"
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "console"
	}

	return Config{
		Port: port,
		Mode: mode,

		DBDriver:   driver,
		DBDSN:      dsn,
		SQLitePath: sqlitePath,

		JWTSecret:         secret,
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		RabbitURL:   os.Getenv("RABBIT_URL"),
		RabbitQueue: rabbitQueue,

		OllamaBaseURL:       ollamaBaseURL,
		HuggingFaceEndpoint: os.Getenv("HUGGINGFACE_ENDPOINT"),
		HuggingFaceToken:    os.Getenv("HUGGINGFACE_API_TOKEN"),
		OpenRouterBaseURL:   openRouterBaseURL,
		OpenRouterAPIKey:    os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterSiteURL:   os.Getenv("OPENROUTER_SITE_URL"),
		OpenRouterAppName:   os.Getenv("OPENROUTER_APP_NAME"),

		ReplicateBaseURL: replicateBaseURL,
		ReplicateToken:   os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateModel:   replicateModel,
		ImageStylePrefix: stylePrefix,

		DataDir: dataDir,

		LogLevel:  logLevel,
		LogFormat: logFormat,
	}
}
