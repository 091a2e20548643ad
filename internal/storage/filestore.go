package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ErrFileProcessing indicates a failure storing or post-processing an upload.
var ErrFileProcessing = errors.New("file processing failed")

// ErrInvalidUpload indicates the upload was rejected before any write.
var ErrInvalidUpload = errors.New("invalid upload")

// SaveInput carries one raw upload plus the identifiers used to build a
// deterministic, addressable filename.
type SaveInput struct {
	Data             []byte
	OriginalFilename string
	ContentType      string
	PatientID        string
	AnalysisID       string
	ViewName         string
}

// FileRecord describes a stored file.
type FileRecord struct {
	FileID           string
	Filename         string
	OriginalFilename string
	FilePath         string
	RelativePath     string
	ThumbnailPath    *string
	FileSize         int64
	FileHash         string
	ContentType      string
	Width            int
	Height           int
}

// Options configures a FileStore.
type Options struct {
	BaseDir           string
	ThumbnailWidth    int
	ThumbnailHeight   int
	MaxUploadBytes    int64
	AllowedExtensions []string
}

// FileStore persists uploaded images under a base directory, organised by
// date, and derives JPEG thumbnails alongside them.
type FileStore struct {
	baseDir     string
	imagesDir   string
	thumbsDir   string
	thumbW      int
	thumbH      int
	maxBytes    int64
	allowedExts map[string]bool
	now         func() time.Time
}

// NewFileStore creates the storage directories and returns a FileStore.
func NewFileStore(opts Options) (*FileStore, error) {
	if opts.ThumbnailWidth <= 0 {
		opts.ThumbnailWidth = 300
	}
	if opts.ThumbnailHeight <= 0 {
		opts.ThumbnailHeight = 300
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	if len(opts.AllowedExtensions) == 0 {
		opts.AllowedExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff"}
	}

	fs := &FileStore{
		baseDir:     opts.BaseDir,
		imagesDir:   filepath.Join(opts.BaseDir, "images"),
		thumbsDir:   filepath.Join(opts.BaseDir, "thumbnails"),
		thumbW:      opts.ThumbnailWidth,
		thumbH:      opts.ThumbnailHeight,
		maxBytes:    opts.MaxUploadBytes,
		allowedExts: map[string]bool{},
		now:         time.Now,
	}
	for _, ext := range opts.AllowedExtensions {
		fs.allowedExts[strings.ToLower(ext)] = true
	}
	for _, dir := range []string{fs.imagesDir, fs.thumbsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating storage dir %s: %w", dir, err)
		}
	}
	return fs, nil
}

// Save validates and writes the upload, computes its content hash and creates
// a thumbnail. A failed thumbnail is logged but does not fail the save.
func (fs *FileStore) Save(ctx context.Context, input SaveInput) (*FileRecord, error) {
	if err := fs.validate(input); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileProcessing, err)
	}

	ext := strings.ToLower(filepath.Ext(input.OriginalFilename))
	if ext == "" {
		ext = ".jpg"
	}
	fileID := uuid.New().String()
	now := fs.now().UTC()

	// Filename carries its identifiers: aANALYSIS_pPATIENT_TIMESTAMP_UUID_VIEW.ext
	parts := []string{}
	if input.AnalysisID != "" {
		parts = append(parts, "a"+input.AnalysisID)
	}
	if input.PatientID != "" {
		parts = append(parts, "p"+input.PatientID)
	}
	parts = append(parts, now.Format("20060102_150405"), fileID)
	if input.ViewName != "" {
		parts = append(parts, input.ViewName)
	}
	filename := strings.Join(parts, "_") + ext

	dateDir := filepath.Join(fs.imagesDir, now.Format("2006/01/02"))
	if err := os.MkdirAll(dateDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileProcessing, err)
	}
	fullPath := filepath.Join(dateDir, filename)
	if err := os.WriteFile(fullPath, input.Data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileProcessing, err)
	}

	hash := sha256.Sum256(input.Data)

	relPath, err := filepath.Rel(fs.baseDir, fullPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileProcessing, err)
	}

	record := &FileRecord{
		FileID:           fileID,
		Filename:         filename,
		OriginalFilename: input.OriginalFilename,
		FilePath:         fullPath,
		RelativePath:     filepath.ToSlash(relPath),
		FileSize:         int64(len(input.Data)),
		FileHash:         hex.EncodeToString(hash[:]),
		ContentType:      input.ContentType,
	}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(input.Data)); err == nil {
		record.Width = cfg.Width
		record.Height = cfg.Height
	}

	if thumb, err := fs.createThumbnail(input.Data, fileID, now); err != nil {
		log.Printf("storage: thumbnail for %s failed: %v", filename, err)
	} else {
		record.ThumbnailPath = &thumb
	}

	return record, nil
}

func (fs *FileStore) createThumbnail(data []byte, fileID string, now time.Time) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", err
	}
	thumb := imaging.Fit(img, fs.thumbW, fs.thumbH, imaging.Lanczos)

	dateDir := filepath.Join(fs.thumbsDir, now.Format("2006/01/02"))
	if err := os.MkdirAll(dateDir, 0o755); err != nil {
		return "", err
	}
	thumbPath := filepath.Join(dateDir, fileID+"_thumb.jpg")
	if err := imaging.Save(thumb, thumbPath, imaging.JPEGQuality(85)); err != nil {
		return "", err
	}
	rel, err := filepath.Rel(fs.baseDir, thumbPath)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func (fs *FileStore) validate(input SaveInput) error {
	if input.OriginalFilename == "" {
		return fmt.Errorf("%w: filename is required", ErrInvalidUpload)
	}
	if int64(len(input.Data)) > fs.maxBytes {
		return fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidUpload, fs.maxBytes)
	}
	ext := strings.ToLower(filepath.Ext(input.OriginalFilename))
	if ext != "" && !fs.allowedExts[ext] {
		return fmt.Errorf("%w: file type %s not allowed", ErrInvalidUpload, ext)
	}
	if input.ContentType != "" && !strings.HasPrefix(input.ContentType, "image/") {
		return fmt.Errorf("%w: content type %s is not an image", ErrInvalidUpload, input.ContentType)
	}
	return nil
}

// Resolve maps a stored relative path back to an absolute path, refusing
// paths that escape the base directory.
func (fs *FileStore) Resolve(relativePath string) (string, error) {
	full := filepath.Join(fs.baseDir, filepath.FromSlash(relativePath))
	clean, err := filepath.Abs(full)
	if err != nil {
		return "", err
	}
	base, err := filepath.Abs(fs.baseDir)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(clean, base+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: path escapes storage root", ErrInvalidUpload)
	}
	return clean, nil
}

// Delete removes a stored file and its thumbnail, if any. Missing files are
// not treated as errors.
func (fs *FileStore) Delete(relativePath string, thumbnailPath *string) error {
	full, err := fs.Resolve(relativePath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	if thumbnailPath != nil {
		thumb, err := fs.Resolve(*thumbnailPath)
		if err != nil {
			return err
		}
		if err := os.Remove(thumb); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
