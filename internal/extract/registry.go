// Package extract turns uploaded résumé and job-description files into plain
// text. Each supported extension owns an ordered chain of strategies; the
// registry picks the chain by filename suffix and runs it against a scoped
// temporary copy of the content.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/logger"
)

var (
	// ErrUnsupportedFormat is returned for filenames whose extension has no chain.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrExtractionFailed is returned when every strategy of a chain failed.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrTooLarge is returned when the content exceeds the configured upload limit.
	ErrTooLarge = errors.New("document too large")
)

// Document is an uploaded file. It only lives for the duration of one extraction.
type Document struct {
	Filename string
	Content  []byte
}

// Source is the materialized form of a Document handed to strategies.
// Path and Dir are removed once the chain returns.
type Source struct {
	Filename string
	Ext      string
	Content  []byte
	// Path is a temporary file holding Content.
	Path string
	// Dir is a scratch directory strategies may write intermediate files to.
	Dir string
}

type Config struct {
	SupportedExtensions []string
	MaxUploadSize       int64
	TempDir             string
	OCR                 OCRConfig
}

type OCRConfig struct {
	Enabled  bool
	Binary   string
	Language string
}

// Registry maps extensions to fallback chains.
type Registry struct {
	chains  map[string]*Chain
	maxSize int64
	tempDir string
	logger  *zap.Logger
}

// New builds a registry with the built-in chains for the configured extensions.
func New(cfg Config, log *zap.Logger) (*Registry, error) {
	log = logger.OrNop(log)

	r := &Registry{
		chains:  make(map[string]*Chain),
		maxSize: cfg.MaxUploadSize,
		tempDir: cfg.TempDir,
		logger:  log,
	}

	exts := cfg.SupportedExtensions
	if len(exts) == 0 {
		exts = []string{"pdf", "docx", "txt"}
	}

	for _, ext := range exts {
		ext = normalizeExt(ext)
		chain, err := builtinChain(ext, cfg.OCR, log)
		if err != nil {
			return nil, err
		}
		r.Register(chain)
	}

	return r, nil
}

// NewEmpty builds a registry without any chains.
func NewEmpty(maxSize int64, log *zap.Logger) *Registry {
	return &Registry{
		chains:  make(map[string]*Chain),
		maxSize: maxSize,
		logger:  logger.OrNop(log),
	}
}

func builtinChain(ext string, ocr OCRConfig, log *zap.Logger) (*Chain, error) {
	switch ext {
	case "pdf":
		return NewChain("pdf",
			newLayoutStrategy(),
			newStructuralStrategy(log),
			newOCRStrategy(ocr, execRunner{}, extractPageImages, log),
		), nil
	case "docx":
		return NewChain("docx", newDocxStrategy()), nil
	case "txt":
		return NewChain("txt", newTextStrategy()), nil
	default:
		return nil, fmt.Errorf("no built-in extractor for extension %q", ext)
	}
}

// Register adds or replaces the chain for its format.
func (r *Registry) Register(chain *Chain) {
	r.chains[normalizeExt(chain.Format())] = chain
}

// Extensions returns the supported extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.chains))
	for ext := range r.chains {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether the filename has a supported extension.
func (r *Registry) Supports(filename string) bool {
	_, ok := r.chains[Extension(filename)]
	return ok
}

// Extract returns the whitespace-trimmed text of the document. The extension
// is checked before the content is touched.
func (r *Registry) Extract(ctx context.Context, doc Document) (string, error) {
	if err := r.check(doc.Filename, int64(len(doc.Content))); err != nil {
		return "", err
	}

	ext := Extension(doc.Filename)
	chain := r.chains[ext]

	log := logger.WithDocument(r.logger, doc.Filename)

	dir, err := os.MkdirTemp(r.tempDir, "resume-matcher-*")
	if err != nil {
		return "", fmt.Errorf("%w: create scratch dir: %w", ErrExtractionFailed, err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn("removing scratch dir", zap.String("dir", dir), zap.Error(err))
		}
	}()

	path := filepath.Join(dir, "source."+ext)
	if err := os.WriteFile(path, doc.Content, 0o600); err != nil {
		return "", fmt.Errorf("%w: materialize %q: %w", ErrExtractionFailed, doc.Filename, err)
	}

	src := &Source{
		Filename: doc.Filename,
		Ext:      ext,
		Content:  doc.Content,
		Path:     path,
		Dir:      dir,
	}

	text, err := chain.Run(ctx, src, log)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(text), nil
}

// Load reads a document from disk. The extension and the file size are
// checked before any content is read.
func (r *Registry) Load(path string) (Document, error) {
	doc := Document{Filename: filepath.Base(path)}

	if err := r.check(doc.Filename, 0); err != nil {
		return doc, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return doc, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	if info.IsDir() {
		return doc, fmt.Errorf("%w: %q is a directory", ErrExtractionFailed, path)
	}

	if err := r.check(doc.Filename, info.Size()); err != nil {
		return doc, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	doc.Content = content

	return doc, nil
}

func (r *Registry) check(filename string, size int64) error {
	if _, ok := r.chains[Extension(filename)]; !ok {
		return fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupportedFormat, filename, strings.Join(r.Extensions(), ", "))
	}

	if r.maxSize > 0 && size > r.maxSize {
		return fmt.Errorf("%w: %q is %d bytes, limit is %d", ErrTooLarge, filename, size, r.maxSize)
	}

	return nil
}

// Describe lists the strategies of every chain, ordered by extension.
func (r *Registry) Describe() []Status {
	var statuses []Status
	for _, ext := range r.Extensions() {
		statuses = append(statuses, r.chains[ext].Describe()...)
	}
	return statuses
}

// Extension returns the lower-cased filename suffix without the dot.
func Extension(filename string) string {
	return normalizeExt(filepath.Ext(strings.TrimSpace(filename)))
}

func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}
