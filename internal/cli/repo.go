package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/arslant84/vendori/internal/config"
	"github.com/arslant84/vendori/internal/durability"
	"github.com/arslant84/vendori/internal/repository"
)

// openMedium builds the snapshot medium selected by cfg.
func openMedium(cfg config.StorageConfig, logger *slog.Logger) (durability.Medium, error) {
	switch cfg.Medium {
	case config.MediumFile:
		return durability.NewFileMedium(cfg.File.Path), nil
	case config.MediumKV:
		return durability.OpenKVMedium(cfg.KV.Dir, cfg.KV.Key, logger)
	case config.MediumRemote:
		return durability.NewRemoteMedium(durability.RemoteConfig{
			BaseURL:      cfg.Remote.BaseURL,
			UploadPath:   cfg.Remote.UploadPath,
			SnapshotPath: cfg.Remote.SnapshotPath,
			Timeout:      cfg.Remote.Timeout,
		})
	case config.MediumMemory:
		return durability.NewMemoryMedium(), nil
	default:
		return nil, fmt.Errorf("unknown medium %q", cfg.Medium)
	}
}

// openRepository builds the repository described by the loaded config.
// Nothing is read from the medium until the first operation.
func openRepository(opts *RootOptions) (*repository.Repository, error) {
	logger := slog.Default()
	cfg := opts.Config.Storage

	policy, err := repository.ParseCorruptPolicy(cfg.CorruptPolicy)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	medium, err := openMedium(cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open "+cfg.Medium+" medium", err)
	}

	adapter := durability.NewAdapter(medium,
		durability.WithCompression(cfg.Compress),
		durability.WithAdapterLogger(logger),
	)
	return repository.New(adapter,
		repository.WithLogger(logger),
		repository.WithCorruptPolicy(policy),
		repository.WithMetrics(opts.Metrics),
	), nil
}

// closeRepository closes r, logging instead of failing the command.
func closeRepository(r *repository.Repository) {
	if err := r.Close(); err != nil {
		slog.Error("error closing repository", "error", err)
	}
}

// reportError writes err through the formatter and maps it to an exit code.
func reportError(f *OutputFormatter, action string, err error) error {
	code, exit := classify(err)
	_ = f.Error(code, fmt.Sprintf("%s: %v", action, err), nil)
	return WrapExitError(exit, action, err)
}

func classify(err error) (string, int) {
	switch {
	case repository.IsUnavailable(err):
		return ErrCodeUnavailable, ExitUnavailable
	case errors.Is(err, repository.ErrInvalidKey):
		return ErrCodeInvalidKey, ExitFailure
	case errors.Is(err, repository.ErrNotFound):
		return ErrCodeNotFound, ExitFailure
	case errors.Is(err, repository.ErrKeyExists):
		return ErrCodeKeyExists, ExitFailure
	case durability.IsIOError(err):
		return ErrCodePersist, ExitFailure
	default:
		return ErrCodeGeneric, ExitFailure
	}
}
