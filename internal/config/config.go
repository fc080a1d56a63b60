package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	App             App             `mapstructure:",squash"`
	Server          Server          `mapstructure:",squash"`
	Database        Database        `mapstructure:",squash"`
	Auth            Auth            `mapstructure:",squash"`
	Pluggy          Pluggy          `mapstructure:",squash"`
	Pagarme         Pagarme         `mapstructure:",squash"`
	ContaAzul       ContaAzul       `mapstructure:",squash"`
	Convenia        Convenia        `mapstructure:",squash"`
	ProviderSync    ProviderSync    `mapstructure:",squash"`
	SnapshotRefresh SnapshotRefresh `mapstructure:",squash"`
	Snapshot        Snapshot        `mapstructure:",squash"`
	Exceptions      Exceptions      `mapstructure:",squash"`
}

type Server struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type Database struct {
	DSN      string `mapstructure:"-"`
	Driver   string `mapstructure:"database_driver"`
	Password string `mapstructure:"database_password"`
	URL      string `mapstructure:"database_url"`
	User     string `mapstructure:"database_user"`
}

type App struct {
	LogLevel string `mapstructure:"log_level"`
}

type Auth struct {
	Secret          string `mapstructure:"auth_secret"`
	TokenTTLMinutes int    `mapstructure:"auth_token_ttl_minutes"`
}

// Pluggy é o agregador bancário. O par client_id/client_secret troca por
// uma api key de curta duração, renovada pelo token manager do cliente.
type Pluggy struct {
	BaseURL        string    `mapstructure:"pluggy_base_url"`
	ClientID       string    `mapstructure:"pluggy_client_id"`
	ClientSecret   string    `mapstructure:"pluggy_client_secret"`
	WebhookSecret  string    `mapstructure:"pluggy_webhook_secret"`
	APIKey         string    `mapstructure:"pluggy_api_key"`
	TokenExpiresAt time.Time `mapstructure:"-"`
}

type Pagarme struct {
	BaseURL       string `mapstructure:"pagarme_base_url"`
	SecretKey     string `mapstructure:"pagarme_secret_key"`
	WebhookSecret string `mapstructure:"pagarme_webhook_secret"`
}

type ContaAzul struct {
	BaseURL       string `mapstructure:"contaazul_base_url"`
	AccessToken   string `mapstructure:"contaazul_access_token"`
	WebhookSecret string `mapstructure:"contaazul_webhook_secret"`
}

type Convenia struct {
	BaseURL       string `mapstructure:"convenia_base_url"`
	APIToken      string `mapstructure:"convenia_api_token"`
	WebhookSecret string `mapstructure:"convenia_webhook_secret"`
}

type ProviderSync struct {
	CronSchedule          string `mapstructure:"provider_sync_cron"`
	LookbackDays          int    `mapstructure:"provider_sync_lookback_days"`
	MaxConcurrentJobs     int    `mapstructure:"provider_sync_max_concurrent_jobs"`
	RequestTimeoutSeconds int    `mapstructure:"provider_sync_request_timeout_seconds"`
	Enabled               bool   `mapstructure:"provider_sync_enabled"`
}

type SnapshotRefresh struct {
	CronSchedule      string `mapstructure:"snapshot_refresh_cron"`
	MaxConcurrentJobs int    `mapstructure:"snapshot_refresh_max_concurrent_jobs"`
	Enabled           bool   `mapstructure:"snapshot_refresh_enabled"`
}

type Snapshot struct {
	MaxAgeMinutes        int `mapstructure:"snapshot_max_age_minutes"`
	ForecastLookbackDays int `mapstructure:"snapshot_forecast_lookback_days"`
	ForecastHorizonDays  int `mapstructure:"snapshot_forecast_horizon_days"`
	ProvenanceWindowDays int `mapstructure:"snapshot_provenance_window_days"`
}

// Exceptions define os pisos configuráveis das regras de superfície.
// Valores são strings decimais para não passar dinheiro por float.
type Exceptions struct {
	CashFloor         string `mapstructure:"exception_cash_floor"`
	CashCriticalFloor string `mapstructure:"exception_cash_critical_floor"`
	ForecastCritical  string `mapstructure:"exception_forecast_critical"`
}

func SetDefaults() {
	viper.SetDefault("HOST", "localhost")
	viper.SetDefault("PORT", 8000)

	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("DATABASE_URL", "localhost:5432/opsledger")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "root")

	viper.SetDefault("AUTH_SECRET", "your_auth_secret")
	viper.SetDefault("AUTH_TOKEN_TTL_MINUTES", 60)

	viper.SetDefault("PLUGGY_BASE_URL", "https://api.pluggy.ai")
	viper.SetDefault("PLUGGY_CLIENT_ID", "your_client_id")
	viper.SetDefault("PLUGGY_CLIENT_SECRET", "your_client_secret")
	viper.SetDefault("PLUGGY_WEBHOOK_SECRET", "")

	viper.SetDefault("PAGARME_BASE_URL", "https://api.pagar.me/core/v5")
	viper.SetDefault("PAGARME_SECRET_KEY", "your_secret_key")
	viper.SetDefault("PAGARME_WEBHOOK_SECRET", "")

	viper.SetDefault("CONTAAZUL_BASE_URL", "https://api.contaazul.com/v1")
	viper.SetDefault("CONTAAZUL_ACCESS_TOKEN", "your_access_token")
	viper.SetDefault("CONTAAZUL_WEBHOOK_SECRET", "")

	viper.SetDefault("CONVENIA_BASE_URL", "https://public-api.convenia.com.br/api/v3")
	viper.SetDefault("CONVENIA_API_TOKEN", "your_api_token")
	viper.SetDefault("CONVENIA_WEBHOOK_SECRET", "")

	// Defaults para o poll dos provedores
	viper.SetDefault("PROVIDER_SYNC_CRON", "*/15 * * * *")          // A cada 15 minutos
	viper.SetDefault("PROVIDER_SYNC_LOOKBACK_DAYS", 30)             // Janela inicial quando não há cursor
	viper.SetDefault("PROVIDER_SYNC_MAX_CONCURRENT_JOBS", 4)        // Um worker por provedor
	viper.SetDefault("PROVIDER_SYNC_REQUEST_TIMEOUT_SECONDS", 8)    // Timeout por chamada a provedor
	viper.SetDefault("PROVIDER_SYNC_ENABLED", false)                // Habilitar o poll periódico

	// Defaults para o pré-aquecimento de snapshots
	viper.SetDefault("SNAPSHOT_REFRESH_CRON", "*/10 * * * *")   // A cada 10 minutos
	viper.SetDefault("SNAPSHOT_REFRESH_MAX_CONCURRENT_JOBS", 3) // 3 offices em paralelo
	viper.SetDefault("SNAPSHOT_REFRESH_ENABLED", false)         // Habilitar o pré-aquecimento

	viper.SetDefault("SNAPSHOT_MAX_AGE_MINUTES", 5)
	viper.SetDefault("SNAPSHOT_FORECAST_LOOKBACK_DAYS", 14)
	viper.SetDefault("SNAPSHOT_FORECAST_HORIZON_DAYS", 7)
	viper.SetDefault("SNAPSHOT_PROVENANCE_WINDOW_DAYS", 30)

	viper.SetDefault("EXCEPTION_CASH_FLOOR", "10000")
	viper.SetDefault("EXCEPTION_CASH_CRITICAL_FLOOR", "2500")
	viper.SetDefault("EXCEPTION_FORECAST_CRITICAL", "5000")

	viper.SetDefault("LOG_LEVEL", "debug")
}

func NewConfig() (*Config, error) {
	// Primeiro carregar o arquivo .env usando godotenv
	loadEnvFile() // ONLY LOCAL

	config := &Config{}

	// Configurar valores padrão
	SetDefaults()

	// Configurar o Viper
	viper.SetConfigType("env")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv() // Isso permite que o Viper leia variáveis de ambiente

	// Tentar ler o arquivo .env com o Viper (opcional, já que usamos godotenv)
	if err := viper.ReadInConfig(); err != nil {
		logrus.Info("Usando variáveis carregadas pelo godotenv (viper não conseguiu ler .env):", err)
	} else {
		logrus.Info("Arquivo .env lido pelo Viper com sucesso")
	}

	err := viper.Unmarshal(&config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	config.Database.DSN = fmt.Sprintf(
		"%s://%s:%s@%s",
		config.Database.Driver,
		config.Database.User,
		config.Database.Password,
		config.Database.URL,
	)

	return config, nil
}

// WebhookSecret devolve o segredo HMAC do provedor, ou vazio quando o
// provedor não é conhecido
func (c *Config) WebhookSecret(provider string) string {
	switch provider {
	case "pluggy":
		return c.Pluggy.WebhookSecret
	case "pagarme":
		return c.Pagarme.WebhookSecret
	case "contaazul":
		return c.ContaAzul.WebhookSecret
	case "convenia":
		return c.Convenia.WebhookSecret
	}
	return ""
}

// Função auxiliar para carregar o arquivo .env usando godotenv
func loadEnvFile() {
	// Obter diretório atual
	cwd, err := os.Getwd()
	if err != nil {
		logrus.Warn("Não foi possível obter o diretório atual:", err)
		return
	}

	// Tentar várias localizações possíveis para o arquivo .env
	locations := []string{
		filepath.Join(cwd, ".env"),               // Diretório atual
		filepath.Join(filepath.Dir(cwd), ".env"), // Diretório pai
		filepath.Join(cwd, "../.env"),            // Diretório acima
		filepath.Join(cwd, "../../.env"),         // Dois diretórios acima
	}

	for _, location := range locations {
		logrus.Info("Tentando carregar .env de:", location)
		err := godotenv.Load(location)
		if err == nil {
			logrus.Info("Arquivo .env carregado com sucesso de:", location)
			return
		}
	}

	logrus.Warn("Não foi possível carregar o arquivo .env de nenhuma localização conhecida")
}
