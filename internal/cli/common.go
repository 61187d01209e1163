package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/danieljhkim/appmigrate/internal/apperrors"
	"github.com/danieljhkim/appmigrate/internal/clock"
	"github.com/danieljhkim/appmigrate/internal/config"
	"github.com/danieljhkim/appmigrate/internal/engine"
	"github.com/danieljhkim/appmigrate/internal/fsops"
	"github.com/danieljhkim/appmigrate/internal/hash"
	"github.com/danieljhkim/appmigrate/internal/persist"
	"github.com/danieljhkim/appmigrate/internal/store"
)

// formatText selects the human-readable rendering of a document.
const formatText = "text"

// newLogger builds the diagnostics logger. Logs go to stderr so stdout stays
// clean for documents.
func newLogger(level string, debug bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: log level: %w", apperrors.ErrValidation, err)
	}
	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = zap.NewAtomicLevelAt(lvl)
	if debug {
		logConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		logConfig.DisableStacktrace = true
	}
	return logConfig.Build()
}

// openSite resolves --site to a record store. An existing snapshot file
// opens a FileStore; anything else is a site name looked up in the bench.
func openSite(ctx context.Context, site string) (store.Client, error) {
	if site == "" {
		return nil, fmt.Errorf("%w: --site is required", apperrors.ErrValidation)
	}

	if store.IsSnapshotPath(site) {
		logger.Debug("opening site snapshot", zap.String("path", site))
		return store.OpenFileStore(fsops.NewRealFS(), site)
	}

	sc, err := config.LoadSiteConfig(fsops.NewRealFS(), cfg.BenchPath, site)
	if err != nil {
		return nil, err
	}
	if cfg.DBPassword != "" {
		sc.DBPassword = cfg.DBPassword
	}

	dialect, err := store.DialectFor(sc.DBType)
	if err != nil {
		return nil, err
	}

	logger.Debug("connecting to site database",
		zap.String("site", site),
		zap.String("db_type", dialect.Name),
		zap.String("host", sc.DBHost))

	return store.OpenSQL(ctx, dialect, store.ConnConfig{
		Host:     sc.DBHost,
		Port:     sc.DBPort,
		User:     sc.DBUser,
		Password: sc.DBPassword,
		Database: sc.DBName,
	}, logger)
}

// newEngine creates an engine over client with real implementations of the
// remaining dependencies.
func newEngine(client store.Client) *engine.Engine {
	return engine.New(client, hash.NewSHA256Hasher(), &clock.RealClock{}, logger, engine.Options{
		SimilarityThreshold: cfg.SimilarityThreshold,
		BatchSize:           cfg.BatchSize,
		Policy:              cfg.Policy(),
	})
}

func newDocuments() *persist.Documents {
	return persist.NewDocuments(fsops.NewRealFS(), hash.NewSHA256Hasher())
}

// closeSite closes client, logging rather than masking the command's error.
func closeSite(client store.Client) {
	if err := client.Close(); err != nil {
		logger.Warn("failed to close site store", zap.Error(err))
	}
}

// writeDocument emits v according to --output and --format.
//
// With an output path the document is saved through save (format from the
// flag, else the file extension). Without one it goes to stdout: text through
// the text renderer, json or yaml as a document.
func writeDocument(output, format string, v any, save func(string, persist.Format) error, text func()) error {
	if format == formatText {
		if output != "" {
			return fmt.Errorf("%w: --format text cannot be written to --output", apperrors.ErrValidation)
		}
		text()
		return nil
	}

	f, err := persist.ParseFormat(format)
	if err != nil {
		return err
	}

	if output == "" {
		if f == "" {
			text()
			return nil
		}
		data, err := persist.Marshal(v, f)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	if err := save(output, f); err != nil {
		return err
	}
	PrintSuccess(fmt.Sprintf("Wrote %s", output))
	return nil
}
