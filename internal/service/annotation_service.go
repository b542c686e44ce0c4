package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Shinokawa/Web-annotation-tool/internal/config"
	"github.com/Shinokawa/Web-annotation-tool/internal/domain"
	"github.com/Shinokawa/Web-annotation-tool/internal/repository"
	"github.com/Shinokawa/Web-annotation-tool/pkg/utils"
)

type AnnotationService interface {
	ListImages(ctx context.Context) (*domain.ImageList, error)
	OpenImage(ctx context.Context, filename string) (*os.File, fs.FileInfo, error)
	GetMask(ctx context.Context, filename string) ([]byte, error)
	SaveMask(ctx context.Context, req domain.SaveMaskRequest) (string, error)
	UploadImages(ctx context.Context, files []domain.UploadFile) (*domain.UploadResult, error)
}

type annotationService struct {
	files  repository.FileRepository
	mirror repository.S3Repository
	cfg    *config.Config
	log    *zap.Logger
	proc   *utils.ImageProcessor
}

// NewAnnotationService wires the service. mirror may be nil, in which case
// nothing is replicated to object storage.
func NewAnnotationService(files repository.FileRepository, mirror repository.S3Repository, cfg *config.Config, log *zap.Logger) AnnotationService {
	return &annotationService{
		files:  files,
		mirror: mirror,
		cfg:    cfg,
		log:    log,
		proc:   utils.NewImageProcessor(log),
	}
}

func (s *annotationService) ListImages(ctx context.Context) (*domain.ImageList, error) {
	names, err := s.files.ListImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	images := make([]domain.ImageEntry, 0, len(names))
	for _, name := range names {
		hasMask, err := s.files.MaskExists(ctx, utils.MaskFilename(name))
		if err != nil {
			return nil, fmt.Errorf("check mask for %s: %w", name, err)
		}
		images = append(images, domain.ImageEntry{
			Filename: name,
			HasMask:  hasMask,
		})
	}

	return &domain.ImageList{
		Images: images,
		Total:  len(images),
	}, nil
}

// OpenImage opens a source image. The caller closes the file.
func (s *annotationService) OpenImage(ctx context.Context, filename string) (*os.File, fs.FileInfo, error) {
	return s.files.OpenImage(ctx, filename)
}

// GetMask returns the stored mask bytes as-is, or a blank PNG sized like the
// source image when no mask has been saved yet. The blank mask is not stored.
func (s *annotationService) GetMask(ctx context.Context, filename string) ([]byte, error) {
	maskName := utils.MaskFilename(filename)

	data, err := s.files.ReadMask(ctx, maskName)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("read mask %s: %w", maskName, err)
	}

	file, _, err := s.files.OpenImage(ctx, filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	blank, err := s.proc.BlankMask(file)
	if err != nil {
		s.log.Warn("Source image is not decodable",
			zap.String("filename", filename),
			zap.Error(err))
		return nil, fmt.Errorf("image %s: %w", filename, domain.ErrNotFound)
	}

	return blank, nil
}

// SaveMask decodes the data-url payload, normalizes it to grayscale and
// overwrites <stem>.png. Decoding finishes before anything touches the disk.
func (s *annotationService) SaveMask(ctx context.Context, req domain.SaveMaskRequest) (string, error) {
	if req.Filename == "" || req.MaskData == "" {
		return "", fmt.Errorf("missing filename or mask data: %w", domain.ErrBadRequest)
	}
	if !utils.IsBareName(req.Filename) {
		return "", fmt.Errorf("save mask for %q: %w", req.Filename, domain.ErrInvalidName)
	}

	gray, err := s.proc.DecodeMask(req.MaskData)
	if err != nil {
		return "", &domain.DecodeError{Err: err}
	}

	data, err := utils.EncodePNG(gray)
	if err != nil {
		return "", &domain.DecodeError{Err: err}
	}

	maskName := utils.MaskFilename(req.Filename)
	if err := s.files.WriteMask(ctx, maskName, data); err != nil {
		return "", fmt.Errorf("write mask %s: %w", maskName, err)
	}

	s.log.Info("Mask saved",
		zap.String("filename", req.Filename),
		zap.String("mask", maskName),
		zap.Int("width", gray.Bounds().Dx()),
		zap.Int("height", gray.Bounds().Dy()))

	s.mirrorFile(ctx, "masks/"+maskName, data, "image/png")

	return maskName, nil
}

// UploadImages stores every part with an allowed extension under its base
// name, overwriting. Other parts are skipped without error.
func (s *annotationService) UploadImages(ctx context.Context, files []domain.UploadFile) (*domain.UploadResult, error) {
	uploaded := make([]string, 0, len(files))

	for _, f := range files {
		name := baseName(f.Filename)
		if name == "" || !utils.IsAllowedImage(name, s.cfg.App.AllowedFormats) {
			s.log.Debug("Skipping upload", zap.String("filename", f.Filename))
			continue
		}

		data, err := readUpload(f)
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", name, err)
		}

		if err := s.files.SaveImage(ctx, name, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("save upload %s: %w", name, err)
		}

		s.mirrorFile(ctx, "images/"+name, data, contentType(f))
		uploaded = append(uploaded, name)
	}

	s.log.Info("Images uploaded",
		zap.Int("received", len(files)),
		zap.Int("accepted", len(uploaded)))

	return &domain.UploadResult{
		UploadedFiles: uploaded,
		Count:         len(uploaded),
	}, nil
}

func (s *annotationService) mirrorFile(ctx context.Context, key string, data []byte, contentType string) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.UploadFile(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		s.log.Warn("Failed to mirror file to object storage",
			zap.String("key", key),
			zap.Error(err))
	}
}

// baseName drops any client supplied directory, whichever separator it uses.
func baseName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	base := filepath.Base(name)
	if base == "." || base == ".." || base == "/" {
		return ""
	}
	return base
}

func readUpload(f domain.UploadFile) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

func contentType(f domain.UploadFile) string {
	if f.ContentType != "" {
		return f.ContentType
	}
	if strings.EqualFold(filepath.Ext(f.Filename), ".png") {
		return "image/png"
	}
	return "image/jpeg"
}
