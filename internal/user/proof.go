package user

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/noah-isme/backend-resto/internal/common"
)

const (
	proofJPEGQuality = 85
	// defaultMaxPixels bounds width*height before decoding; the decoded buffer costs
	// four bytes per pixel.
	defaultMaxPixels = 40_000_000
)

// ErrInvalidImage is returned when an upload cannot be decoded as JPEG, PNG or GIF.
var ErrInvalidImage = errors.New("file is not a supported image")

// ImageStore normalises proof images and writes them to local disk.
type ImageStore struct {
	Dir          string
	PublicBase   string
	MaxDimension int
	// MaxPixels rejects images whose declared width*height exceeds it. Zero means 40 MP.
	MaxPixels int
}

// Save decodes src, fits it within MaxDimension on both sides and writes it as JPEG.
// It returns the public URL of the stored file.
func (s ImageStore) Save(addressID string, src io.Reader) (string, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("read proof image: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	maxPixels := s.MaxPixels
	if maxPixels <= 0 {
		maxPixels = defaultMaxPixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, cfg.Width, cfg.Height, maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	maxDim := s.MaxDimension
	if maxDim <= 0 {
		maxDim = 1600
	}
	b := img.Bounds()
	if b.Dx() > maxDim || b.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(proofJPEGQuality)); err != nil {
		return "", fmt.Errorf("encode proof image: %w", err)
	}

	suffix, err := common.RandomToken(6)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("address-%s-%s.jpg", addressID, suffix)
	dir := filepath.Join(s.Dir, "proofs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write proof image: %w", err)
	}
	return s.PublicBase + "/proofs/" + name, nil
}

// Remove deletes a file previously returned by Save. URLs outside the proof
// directory are ignored.
func (s ImageStore) Remove(url string) error {
	prefix := s.PublicBase + "/proofs/"
	if !strings.HasPrefix(url, prefix) {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(url, prefix))
	if name == "." || name == string(filepath.Separator) {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, "proofs", name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
