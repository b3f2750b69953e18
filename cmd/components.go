package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kellatirupathi/darwinbox/internal/ai"
	"github.com/kellatirupathi/darwinbox/internal/ai/chat"
	"github.com/kellatirupathi/darwinbox/internal/ai/gemini"
	"github.com/kellatirupathi/darwinbox/internal/archive"
	"github.com/kellatirupathi/darwinbox/internal/darwinbox"
	"github.com/kellatirupathi/darwinbox/internal/extract"
	"github.com/kellatirupathi/darwinbox/internal/fetcher"
	"github.com/kellatirupathi/darwinbox/internal/secrets"
)

func newBackend(cfg AIConfig, logger *zap.Logger) (ai.Backend, error) {
	switch cfg.Provider {
	case "", "mistral":
		return chat.New(cfg.Endpoint, cfg.Model, logger), nil
	case "gemini":
		return gemini.NewGenerator(cfg.Model, logger), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func newScorer(cfg AIConfig, logger *zap.Logger) (*ai.Scorer, error) {
	backend, err := newBackend(cfg, logger)
	if err != nil {
		return nil, err
	}

	return ai.NewScorer(backend, ai.Options{
		MaxAttempts:       cfg.MaxAttempts,
		BackoffBase:       cfg.BackoffBase,
		Timeout:           cfg.Timeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
		MaxLogLength:      cfg.MaxLogLength,
	}, logger), nil
}

func loadCredentials(cfg AIConfig) ([]string, error) {
	return secrets.LoadPool(secrets.Pool{
		Name:      cfg.Provider + " api keys",
		Values:    cfg.APIKeys,
		Files:     cfg.APIKeyFiles,
		EnvPrefix: cfg.APIKeyEnvPrefix,
	})
}

func newFetcher(cfg FetchConfig, logger *zap.Logger) *fetcher.Fetcher {
	return fetcher.New(fetcher.Options{Timeout: cfg.Timeout, UserAgent: cfg.UserAgent}, logger)
}

func newExtractor(cfg ExtractConfig, logger *zap.Logger) *extract.Extractor {
	return extract.New(extract.Options{
		PDFToText: cfg.PDFToText,
		PDFToPPM:  cfg.PDFToPPM,
		Tesseract: cfg.Tesseract,
		Language:  cfg.Language,
		DPI:       cfg.OCRDPI,
	}, logger)
}

func loadEndpoint(name string, cfg EndpointCredentials, passwordEnv, keyEnv string) (darwinbox.Credentials, error) {
	password, err := secrets.Load(secrets.Source{Name: name + " password", Value: cfg.Password, File: cfg.PasswordFile, Env: passwordEnv})
	if err != nil {
		return darwinbox.Credentials{}, err
	}
	key, err := secrets.Load(secrets.Source{Name: name + " api key", Value: cfg.APIKey, File: cfg.APIKeyFile, Env: keyEnv})
	if err != nil {
		return darwinbox.Credentials{}, err
	}
	return darwinbox.Credentials{Username: cfg.Username, Password: password, APIKey: key}, nil
}

// newDarwinbox resolves only the credentials the caller needs: list jobs,
// fetch candidates, or submit decisions.
func newDarwinbox(cfg DarwinboxConfig, needCandidates, needDecisions bool, logger *zap.Logger) (*darwinbox.Client, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("darwinbox.subdomain is not configured (set DARWINBOX_SUBDOMAIN)")
	}

	dbCfg := darwinbox.Config{Subdomain: cfg.Subdomain, BaseURL: cfg.BaseURL, Window: cfg.Window}

	var err error
	if dbCfg.Jobs, err = loadEndpoint("darwinbox jobs", cfg.Jobs, "DARWINBOX_PASSWORD_GET_JOBS", "DARWINBOX_API_KEY_GET_JOBS"); err != nil {
		return nil, err
	}

	if needCandidates {
		dbCfg.Candidates, err = loadEndpoint("darwinbox candidates", cfg.Candidates, "DARWINBOX_PASSWORD_GET_CANDIDATES", "DARWINBOX_API_KEY_GET_CANDIDATES")
		if err != nil {
			return nil, err
		}
	}

	if needDecisions {
		d := cfg.Decisions
		dbCfg.Decisions.Username = d.Username
		if dbCfg.Decisions.Password, err = secrets.Load(secrets.Source{Name: "darwinbox decisions password", Value: d.Password, File: d.PasswordFile, Env: "DARWINBOX_PASSWORD_UPDATE_SCORE"}); err != nil {
			return nil, err
		}
		if dbCfg.Decisions.ShortlistAPIKey, err = secrets.Load(secrets.Source{Name: "darwinbox shortlist api key", Value: d.ShortlistAPIKey, File: d.ShortlistAPIKeyFile, Env: "DARWINBOX_API_KEY_SHORTLIST"}); err != nil {
			return nil, err
		}
		if dbCfg.Decisions.RejectAPIKey, err = secrets.Load(secrets.Source{Name: "darwinbox reject api key", Value: d.RejectAPIKey, File: d.RejectAPIKeyFile, Env: "DARWINBOX_API_KEY_REJECT"}); err != nil {
			return nil, err
		}
	}

	return darwinbox.New(dbCfg, logger), nil
}

// newSinks builds the configured archive sinks. The returned closer releases
// database connections.
func newSinks(ctx context.Context, cfg ArchiveConfig, saver *archive.Saver, logger *zap.Logger) ([]archive.Sink, func(), error) {
	closer := func() {}

	var uploader archive.Uploader
	if cfg.SFTP.Host != "" {
		password, err := secrets.Load(secrets.Source{Name: "sftp password", Value: cfg.SFTP.Password, File: cfg.SFTP.PasswordFile, Env: "SFTP_PASS"})
		if err != nil {
			return nil, closer, err
		}
		u, err := archive.NewSFTPUploader(archive.SFTPConfig{
			Host:           cfg.SFTP.Host,
			Port:           cfg.SFTP.Port,
			User:           cfg.SFTP.User,
			Password:       password,
			RemoteDir:      cfg.SFTP.RemoteDir,
			KnownHostsFile: cfg.SFTP.KnownHostsFile,
		}, logger)
		if err != nil {
			return nil, closer, err
		}
		uploader = u
	}

	sinks := []archive.Sink{archive.NewFileSink(saver, uploader)}

	if cfg.Sheets.SpreadsheetID != "" {
		credsJSON, err := secrets.LoadOptional(secrets.Source{Name: "google service account", Env: "GCP_SERVICE_ACCOUNT"})
		if err != nil {
			return nil, closer, err
		}
		sheets, err := archive.NewSheetsSink(ctx, archive.SheetsConfig{
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			Worksheet:       cfg.Sheets.Worksheet,
			CredentialsFile: cfg.Sheets.CredentialsFile,
			CredentialsJSON: []byte(credsJSON),
		}, logger)
		if err != nil {
			logger.Warn("google sheets archive disabled", zap.Error(err))
		} else {
			sinks = append(sinks, sheets)
		}
	}

	dsn, err := secrets.LoadOptional(secrets.Source{Name: "postgres dsn", Value: cfg.Postgres.DSN, File: cfg.Postgres.DSNFile, Env: "DATABASE_URL"})
	if err != nil {
		return nil, closer, err
	}
	if dsn != "" {
		pg, err := archive.ConnectPostgres(ctx, dsn, cfg.Postgres.Table)
		if err != nil {
			logger.Warn("postgres archive disabled", zap.Error(err))
		} else {
			sinks = append(sinks, pg)
			closer = pg.Close
		}
	}

	return sinks, closer, nil
}
