package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/logger"
)

const strategyOCR = "ocr"

// CommandRunner executes an external program and returns its stdout.
type CommandRunner interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ImageExtractor writes the embedded page images of a PDF into outDir.
type ImageExtractor func(pdfPath, outDir string) error

type execRunner struct{}

func (execRunner) LookPath(name string) (string, error) { return exec.LookPath(name) }

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

func extractPageImages(pdfPath, outDir string) error {
	return api.ExtractImagesFile(pdfPath, outDir, nil, pdfcpuConfig())
}

// ocrStrategy runs an OCR engine over the images embedded in a scanned PDF.
type ocrStrategy struct {
	Toggle
	binary   string
	language string
	runner   CommandRunner
	images   ImageExtractor
	logger   *zap.Logger
}

func newOCRStrategy(cfg OCRConfig, runner CommandRunner, images ImageExtractor, log *zap.Logger) *ocrStrategy {
	s := &ocrStrategy{
		binary:   cfg.Binary,
		language: cfg.Language,
		runner:   runner,
		images:   images,
		logger:   logger.OrNop(log),
	}
	if s.binary == "" {
		s.binary = "tesseract"
	}
	if s.language == "" {
		s.language = "eng"
	}

	switch {
	case !cfg.Enabled:
		s.Disable("disabled by configuration")
	default:
		if _, err := runner.LookPath(s.binary); err != nil {
			s.Disable(fmt.Sprintf("%s not found in PATH", s.binary))
		}
	}

	return s
}

func (s *ocrStrategy) Name() string { return strategyOCR }

func (s *ocrStrategy) Extract(ctx context.Context, src *Source) (string, error) {
	outDir := filepath.Join(src.Dir, "images")
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	if err := s.images(src.Path, outDir); err != nil {
		return "", fmt.Errorf("extract images: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("list images: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sortByPage(names)

	var (
		b    strings.Builder
		errs []error
		ok   int
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		out, err := s.runner.Run(ctx, s.binary, filepath.Join(outDir, name), "stdout", "-l", s.language)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		ok++
		b.Write(out)
		b.WriteByte('\n')
	}

	if ok == 0 && len(errs) > 0 {
		return "", errors.Join(errs...)
	}

	if len(errs) > 0 {
		s.logger.Debug("ocr skipped images", zap.Int("failed", len(errs)), zap.Int("total", len(names)))
	}

	return b.String(), nil
}

// sortByPage orders image files named <base>_<page>_<id>.<ext> by page
// number, then by name.
func sortByPage(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		pi, pj := pageNumber(names[i]), pageNumber(names[j])
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})
}

// pageNumber returns the first all-digit underscore separated segment of the
// file name, or -1 when there is none.
func pageNumber(name string) int {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	for _, part := range strings.Split(base, "_") {
		if n, err := strconv.Atoi(part); err == nil && n >= 0 {
			return n
		}
	}
	return -1
}
