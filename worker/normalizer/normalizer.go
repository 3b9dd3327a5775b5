package normalizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

const (
	maxWidth    = 800
	maxHeight   = 600
	jpegQuality = 85
)

// Metadata describes the normalization outcome for the result payload.
type Metadata struct {
	OriginalSize    int64
	ProcessedSize   int64
	OriginalWidth   int
	OriginalHeight  int
	ProcessedWidth  int
	ProcessedHeight int
}

// Normalizer re-encodes uploads into a predictable shape: 3-channel,
// bounded to 800x600 with aspect ratio preserved, JPEG at quality 85.
type Normalizer struct {
	logger *zap.Logger
}

func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// OutputPath derives the processed file location for an original upload.
func OutputPath(uploadDir, originalPath string) string {
	base := filepath.Base(originalPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(uploadDir, "processed", "processed_"+stem+".jpg")
}

func (n *Normalizer) Normalize(inputPath, outputPath string) (*Metadata, error) {
	n.logger.Info("Normalizing image",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
	)

	src, err := imaging.Open(inputPath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	originalBounds := src.Bounds()

	// Fit never upscales; small images pass through at original size.
	processed := src
	if originalBounds.Dx() > maxWidth || originalBounds.Dy() > maxHeight {
		processed = imaging.Fit(src, maxWidth, maxHeight, imaging.Lanczos)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create processed dir: %w", err)
	}

	// JPEG encoding drops any alpha channel, giving the 3-channel output.
	if err := imaging.Save(processed, outputPath, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("save processed image: %w", err)
	}

	meta := &Metadata{
		OriginalWidth:   originalBounds.Dx(),
		OriginalHeight:  originalBounds.Dy(),
		ProcessedWidth:  processed.Bounds().Dx(),
		ProcessedHeight: processed.Bounds().Dy(),
	}

	if info, err := os.Stat(inputPath); err == nil {
		meta.OriginalSize = info.Size()
	}
	if info, err := os.Stat(outputPath); err == nil {
		meta.ProcessedSize = info.Size()
	}

	n.logger.Info("Normalization completed",
		zap.String("output", outputPath),
		zap.Int("width", meta.ProcessedWidth),
		zap.Int("height", meta.ProcessedHeight),
	)

	return meta, nil
}
