package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig
	Models   ModelConfig
	Train    TrainConfig
	LogLevel string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type ModelConfig struct {
	// Dir is where trained model artifacts are written and loaded from.
	Dir string
}

type TrainConfig struct {
	DaysBack     int
	TestFraction float64
	HorizonDays  int
}

var (
	once     sync.Once
	instance *Config
)

// Load reads configuration from the environment, falling back to defaults.
// A .env file is honored when present.
func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()

		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "minimarket")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("MODEL_DIR", "./data/models")
		viper.SetDefault("TRAIN_DAYS_BACK", 730)
		viper.SetDefault("TRAIN_TEST_FRACTION", 0.2)
		viper.SetDefault("PREDICT_HORIZON_DAYS", 30)
		viper.SetDefault("LOG_LEVEL", "info")

		viper.AutomaticEnv()

		instance = &Config{
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Models: ModelConfig{
				Dir: viper.GetString("MODEL_DIR"),
			},
			Train: TrainConfig{
				DaysBack:     viper.GetInt("TRAIN_DAYS_BACK"),
				TestFraction: viper.GetFloat64("TRAIN_TEST_FRACTION"),
				HorizonDays:  viper.GetInt("PREDICT_HORIZON_DAYS"),
			},
			LogLevel: viper.GetString("LOG_LEVEL"),
		}
	})

	return instance
}
