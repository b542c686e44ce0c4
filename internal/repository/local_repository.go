package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Shinokawa/Web-annotation-tool/internal/config"
	"github.com/Shinokawa/Web-annotation-tool/internal/domain"
	"github.com/Shinokawa/Web-annotation-tool/pkg/utils"
)

// FileRepository stores source images and masks in two directories related
// by filename stem.
type FileRepository interface {
	ListImages(ctx context.Context) ([]string, error)
	OpenImage(ctx context.Context, name string) (*os.File, fs.FileInfo, error)
	SaveImage(ctx context.Context, name string, body io.Reader) error
	MaskExists(ctx context.Context, maskName string) (bool, error)
	ReadMask(ctx context.Context, maskName string) ([]byte, error)
	WriteMask(ctx context.Context, maskName string, data []byte) error
}

type localRepository struct {
	inputDir  string
	outputDir string
	allowed   []string
	log       *zap.Logger
}

func NewLocalRepository(cfg *config.AppConfig, log *zap.Logger) FileRepository {
	return &localRepository{
		inputDir:  cfg.InputDir,
		outputDir: cfg.OutputDir,
		allowed:   cfg.AllowedFormats,
		log:       log,
	}
}

// ListImages returns the names of allowed images in the input directory. A
// missing directory is an empty listing.
func (r *localRepository) ListImages(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.inputDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.log.Warn("Input directory does not exist", zap.String("dir", r.inputDir))
			return []string{}, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !utils.IsAllowedImage(entry.Name(), r.allowed) {
			continue
		}
		names = append(names, entry.Name())
	}

	return names, nil
}

// OpenImage opens a source image for reading. Anything that is not a regular,
// readable file is reported as not found.
func (r *localRepository) OpenImage(ctx context.Context, name string) (*os.File, fs.FileInfo, error) {
	path, err := r.resolve(r.inputDir, name)
	if err != nil {
		return nil, nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("image %s: %w: %w", name, domain.ErrNotFound, err)
	}
	if !info.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("image %s is not a regular file: %w", name, domain.ErrNotFound)
	}

	file, err := os.Open(path)
	if err != nil {
		r.log.Warn("Failed to open image",
			zap.String("path", path),
			zap.Error(err))
		return nil, nil, fmt.Errorf("image %s: %w: %w", name, domain.ErrNotFound, err)
	}

	return file, info, nil
}

func (r *localRepository) SaveImage(ctx context.Context, name string, body io.Reader) error {
	path, err := r.resolve(r.inputDir, name)
	if err != nil {
		return err
	}

	if err := utils.WriteFile(path, body); err != nil {
		r.log.Error("Failed to save image",
			zap.String("path", path),
			zap.Error(err))
		return err
	}

	r.log.Info("Image saved", zap.String("path", path))
	return nil
}

func (r *localRepository) MaskExists(ctx context.Context, maskName string) (bool, error) {
	path, err := r.resolve(r.outputDir, maskName)
	if err != nil {
		return false, nil
	}

	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (r *localRepository) ReadMask(ctx context.Context, maskName string) ([]byte, error) {
	path, err := r.resolve(r.outputDir, maskName)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("mask %s: %w", maskName, domain.ErrNotFound)
		}
		return nil, err
	}

	return data, nil
}

// WriteMask overwrites any existing mask of the same name.
func (r *localRepository) WriteMask(ctx context.Context, maskName string, data []byte) error {
	path, err := r.resolve(r.outputDir, maskName)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		r.log.Error("Failed to write mask",
			zap.String("path", path),
			zap.Error(err))
		return err
	}

	r.log.Info("Mask written",
		zap.String("path", path),
		zap.Int("size", len(data)))
	return nil
}

// resolve joins a bare file name onto dir. Names that carry a path component
// are reported as not found.
func (r *localRepository) resolve(dir, name string) (string, error) {
	if !utils.IsBareName(name) {
		return "", fmt.Errorf("invalid file name %q: %w", name, domain.ErrNotFound)
	}
	return filepath.Join(dir, name), nil
}
