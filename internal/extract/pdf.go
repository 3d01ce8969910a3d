package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/logger"
)

const (
	strategyLayout     = "layout"
	strategyStructural = "structural"
)

var pdfcpuOnce sync.Once

// pdfcpuConfig returns a relaxed configuration that never touches the user config dir.
func pdfcpuConfig() *model.Configuration {
	pdfcpuOnce.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// layoutStrategy rebuilds lines from positioned glyph runs so that columns and
// tables keep their word boundaries.
type layoutStrategy struct {
	Toggle
}

func newLayoutStrategy() *layoutStrategy { return &layoutStrategy{} }

func (s *layoutStrategy) Name() string { return strategyLayout }

func (s *layoutStrategy) Extract(ctx context.Context, src *Source) (string, error) {
	f, r, err := pdf.Open(src.Path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}

		for _, row := range rows {
			line := joinRow(row.Content)
			if line == "" {
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	return b.String(), nil
}

// joinRow concatenates glyph runs, inserting a space when the horizontal gap
// between two runs is wider than a fraction of the font size.
func joinRow(texts pdf.TextHorizontal) string {
	var (
		b    strings.Builder
		prev *pdf.Text
	)

	for i := range texts {
		t := &texts[i]
		if t.S == "" {
			continue
		}

		if prev != nil {
			gap := t.X - (prev.X + prev.W)
			threshold := prev.FontSize * 0.15
			if threshold <= 0 {
				threshold = 1
			}
			if gap > threshold && !strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(t.S, " ") {
				b.WriteByte(' ')
			}
		}

		b.WriteString(t.S)
		prev = t
	}

	return strings.TrimSpace(b.String())
}

// structuralStrategy repairs the file with pdfcpu and reads it page by page,
// skipping pages that fail to decode.
type structuralStrategy struct {
	Toggle
	logger *zap.Logger
	repair func(in, out string) error
}

func newStructuralStrategy(log *zap.Logger) *structuralStrategy {
	return &structuralStrategy{
		logger: logger.OrNop(log),
		repair: func(in, out string) error {
			return api.OptimizeFile(in, out, pdfcpuConfig())
		},
	}
}

func (s *structuralStrategy) Name() string { return strategyStructural }

func (s *structuralStrategy) Extract(ctx context.Context, src *Source) (string, error) {
	path := src.Path

	repaired := filepath.Join(src.Dir, "repaired.pdf")
	if err := s.repair(src.Path, repaired); err != nil {
		s.logger.Debug("pdf repair failed, reading original", zap.Error(err))
	} else {
		path = repaired
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var (
		b       strings.Builder
		pageErr []error
		read    int
	)

	total := r.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := readPlainText(page)
		if err != nil {
			pageErr = append(pageErr, fmt.Errorf("page %d: %w", i, err))
			continue
		}

		read++
		b.WriteString(text)
		b.WriteString("\n\n")
	}

	if read == 0 && len(pageErr) > 0 {
		return "", errors.Join(pageErr...)
	}

	if len(pageErr) > 0 {
		s.logger.Debug("skipped unreadable pdf pages", zap.Int("skipped", len(pageErr)), zap.Int("total", total))
	}

	return b.String(), nil
}

// readPlainText isolates per-page panics so a single broken page does not
// abort the whole document.
func readPlainText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return page.GetPlainText(nil)
}
