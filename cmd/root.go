package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "darwinbox-screener"
)

type Config struct {
	BatchSize   int             `mapstructure:"batch-size" json:"batch-size" validate:"gte=1"`
	ResumeDir   string          `mapstructure:"resume-dir" json:"resume-dir"`
	KeepResumes bool            `mapstructure:"keep-resumes" json:"keep-resumes"`
	Fetch       FetchConfig     `mapstructure:"fetch" json:"fetch"`
	AI          AIConfig        `mapstructure:"ai" json:"ai"`
	Extract     ExtractConfig   `mapstructure:"extract" json:"extract"`
	Darwinbox   DarwinboxConfig `mapstructure:"darwinbox" json:"darwinbox"`
	Archive     ArchiveConfig   `mapstructure:"archive" json:"archive"`
}

type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" json:"timeout" validate:"gte=0"`
	UserAgent string        `mapstructure:"user-agent" json:"user-agent"`
}

type AIConfig struct {
	Provider          string        `mapstructure:"provider" json:"provider" validate:"required,oneof=mistral gemini"`
	Endpoint          string        `mapstructure:"endpoint" json:"endpoint" validate:"omitempty,url"`
	Model             string        `mapstructure:"model" json:"model"`
	MaxAttempts       int           `mapstructure:"max-attempts" json:"max-attempts" validate:"gte=0,lte=10"`
	BackoffBase       time.Duration `mapstructure:"backoff-base" json:"backoff-base" validate:"gte=0"`
	Timeout           time.Duration `mapstructure:"timeout" json:"timeout" validate:"gte=0"`
	RequestsPerMinute float64       `mapstructure:"requests-per-minute" json:"requests-per-minute" validate:"gte=0"`
	MaxLogLength      int           `mapstructure:"max-log-length" json:"max-log-length" validate:"gte=0"`
	APIKeys           []string      `mapstructure:"api-keys" json:"-"`
	APIKeyFiles       []string      `mapstructure:"api-key-files" json:"api-key-files"`
	APIKeyEnvPrefix   string        `mapstructure:"api-key-env-prefix" json:"api-key-env-prefix"`
}

type ExtractConfig struct {
	OCRDPI    int    `mapstructure:"ocr-dpi" json:"ocr-dpi" validate:"gte=0,lte=1200"`
	PDFToText string `mapstructure:"pdftotext" json:"pdftotext"`
	PDFToPPM  string `mapstructure:"pdftoppm" json:"pdftoppm"`
	Tesseract string `mapstructure:"tesseract" json:"tesseract"`
	Language  string `mapstructure:"language" json:"language"`
}

type DarwinboxConfig struct {
	Subdomain  string              `mapstructure:"subdomain" json:"subdomain" validate:"omitempty,hostname_rfc1123"`
	BaseURL    string              `mapstructure:"base-url" json:"base-url" validate:"omitempty,url"`
	Jobs       EndpointCredentials `mapstructure:"jobs" json:"jobs"`
	Candidates EndpointCredentials `mapstructure:"candidates" json:"candidates"`
	Decisions  DecisionCredentials `mapstructure:"decisions" json:"decisions"`
	Window     time.Duration       `mapstructure:"window" json:"window" validate:"gte=0"`
}

// Configured reports whether enough is set to reach the API.
func (d DarwinboxConfig) Configured() bool {
	return d.Subdomain != "" || d.BaseURL != ""
}

type EndpointCredentials struct {
	Username     string `mapstructure:"username" json:"username"`
	Password     string `mapstructure:"password" json:"-"`
	PasswordFile string `mapstructure:"password-file" json:"password-file"`
	APIKey       string `mapstructure:"api-key" json:"-"`
	APIKeyFile   string `mapstructure:"api-key-file" json:"api-key-file"`
}

type DecisionCredentials struct {
	Username            string `mapstructure:"username" json:"username"`
	Password            string `mapstructure:"password" json:"-"`
	PasswordFile        string `mapstructure:"password-file" json:"password-file"`
	ShortlistAPIKey     string `mapstructure:"shortlist-api-key" json:"-"`
	ShortlistAPIKeyFile string `mapstructure:"shortlist-api-key-file" json:"shortlist-api-key-file"`
	RejectAPIKey        string `mapstructure:"reject-api-key" json:"-"`
	RejectAPIKeyFile    string `mapstructure:"reject-api-key-file" json:"reject-api-key-file"`
}

type ArchiveConfig struct {
	Dir      string         `mapstructure:"dir" json:"dir"`
	Sheets   SheetsConfig   `mapstructure:"sheets" json:"sheets"`
	Postgres PostgresConfig `mapstructure:"postgres" json:"postgres"`
	SFTP     SFTPConfig     `mapstructure:"sftp" json:"sftp"`
}

type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet-id" json:"spreadsheet-id"`
	Worksheet       string `mapstructure:"worksheet" json:"worksheet"`
	CredentialsFile string `mapstructure:"credentials-file" json:"credentials-file" validate:"omitempty,file"`
}

type PostgresConfig struct {
	DSN     string `mapstructure:"dsn" json:"-"`
	DSNFile string `mapstructure:"dsn-file" json:"dsn-file"`
	Table   string `mapstructure:"table" json:"table"`
}

type SFTPConfig struct {
	Host           string `mapstructure:"host" json:"host"`
	Port           int    `mapstructure:"port" json:"port" validate:"gte=0,lte=65535"`
	User           string `mapstructure:"user" json:"user" validate:"required_with=Host"`
	Password       string `mapstructure:"password" json:"-"`
	PasswordFile   string `mapstructure:"password-file" json:"password-file"`
	RemoteDir      string `mapstructure:"remote-dir" json:"remote-dir"`
	KnownHostsFile string `mapstructure:"known-hosts-file" json:"known-hosts-file"`
}

// envBindings map configuration keys to the environment variables the
// deployment has always used.
var envBindings = map[string]string{
	"darwinbox.subdomain":             "DARWINBOX_SUBDOMAIN",
	"darwinbox.jobs.username":         "DARWINBOX_USERNAME_GET_JOBS",
	"darwinbox.candidates.username":   "DARWINBOX_USERNAME_GET_CANDIDATES",
	"darwinbox.decisions.username":    "DARWINBOX_USERNAME_UPDATE_SCORE",
	"archive.sheets.spreadsheet-id":   "GOOGLE_SHEET_KEY",
	"archive.sheets.credentials-file": "GOOGLE_APPLICATION_CREDENTIALS",
	"archive.sftp.host":               "SFTP_HOST",
	"archive.sftp.user":               "SFTP_USER",
}

var (
	// Used for flags.
	cfgFile string

	validate = validator.New()

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "darwinbox-screener scores Darwinbox applicants against a job description with an LLM",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}
	setDefaults(viper.GetViper())

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is darwinbox-screener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("batch-size", 3)
	v.SetDefault("keep-resumes", false)
	v.SetDefault("ai.provider", "mistral")
	v.SetDefault("ai.api-key-env-prefix", "MISTRAL_API_KEY_")
	v.SetDefault("archive.dir", "run_archive")
	v.SetDefault("archive.sheets.worksheet", "AI Analysis Results")
}

func initConfig() {
	// Config is only needed by commands that talk to external services.
	if screenCmd.CalledAs() == "" && jobsCmd.CalledAs() == "" {
		return
	}

	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Running from flags and environment alone is allowed without --config.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}

	config.AI.Provider = strings.ToLower(strings.TrimSpace(config.AI.Provider))

	if err := validate.Struct(config); err != nil {
		return config, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}
