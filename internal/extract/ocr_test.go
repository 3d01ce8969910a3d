package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	lookErr error
	outputs map[string]string
	fail    map[string]error
	calls   [][]string
}

func (m *mockRunner) LookPath(name string) (string, error) {
	if m.lookErr != nil {
		return "", m.lookErr
	}
	return "/usr/bin/" + name, nil
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.calls = append(m.calls, append([]string{name}, args...))
	base := filepath.Base(args[0])
	if err := m.fail[base]; err != nil {
		return nil, err
	}
	return []byte(m.outputs[base]), nil
}

func fakeImages(names ...string) ImageExtractor {
	return func(_ string, outDir string) error {
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(outDir, name), []byte("img"), 0o600); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestOCRDisabledWhenBinaryMissing(t *testing.T) {
	s := newOCRStrategy(OCRConfig{Enabled: true, Binary: "tesseract"}, &mockRunner{lookErr: errors.New("not found")}, fakeImages(), nil)

	assert.False(t, s.IsEnabled())
	assert.Equal(t, "tesseract not found in PATH", s.Reason())
}

func TestOCRDisabledByConfig(t *testing.T) {
	s := newOCRStrategy(OCRConfig{Enabled: false}, &mockRunner{}, fakeImages(), nil)

	assert.False(t, s.IsEnabled())
	assert.Equal(t, "disabled by configuration", s.Reason())
}

func TestOCRReadsImagesInOrder(t *testing.T) {
	runner := &mockRunner{outputs: map[string]string{
		"page_1.png": "Python developer",
		"page_2.png": "Docker, AWS",
	}}
	s := newOCRStrategy(OCRConfig{Enabled: true, Language: "deu"}, runner, fakeImages("page_2.png", "page_1.png"), nil)
	require.True(t, s.IsEnabled())

	text, err := s.Extract(context.Background(), &Source{Path: "scan.pdf", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "Python developer\nDocker, AWS\n", text)

	require.Len(t, runner.calls, 2)
	assert.Equal(t, "tesseract", runner.calls[0][0])
	assert.Equal(t, []string{"stdout", "-l", "deu"}, runner.calls[0][2:])
}

func TestOCRReadsPagesNumerically(t *testing.T) {
	runner := &mockRunner{outputs: map[string]string{
		"source_1_Im0.png":  "page one",
		"source_2_Im0.png":  "page two",
		"source_2_Im1.png":  "page two, second image",
		"source_10_Im0.png": "page ten",
	}}
	images := fakeImages("source_10_Im0.png", "source_2_Im1.png", "source_2_Im0.png", "source_1_Im0.png")
	s := newOCRStrategy(OCRConfig{Enabled: true}, runner, images, nil)

	text, err := s.Extract(context.Background(), &Source{Path: "scan.pdf", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "page one\npage two\npage two, second image\npage ten\n", text)
}

func TestSortByPage(t *testing.T) {
	names := []string{"page_10.png", "cover.png", "page_2.png", "page_1.png"}
	sortByPage(names)
	assert.Equal(t, []string{"cover.png", "page_1.png", "page_2.png", "page_10.png"}, names)
}

func TestOCRSkipsFailedImages(t *testing.T) {
	runner := &mockRunner{
		outputs: map[string]string{"b.png": "kept"},
		fail:    map[string]error{"a.png": errors.New("unreadable")},
	}
	s := newOCRStrategy(OCRConfig{Enabled: true}, runner, fakeImages("a.png", "b.png"), nil)

	text, err := s.Extract(context.Background(), &Source{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "kept\n", text)
}

func TestOCRFailsWhenEveryImageFails(t *testing.T) {
	runner := &mockRunner{fail: map[string]error{"a.png": errors.New("unreadable")}}
	s := newOCRStrategy(OCRConfig{Enabled: true}, runner, fakeImages("a.png"), nil)

	_, err := s.Extract(context.Background(), &Source{Dir: t.TempDir()})
	require.Error(t, err)
}

func TestOCRNoImagesIsEmpty(t *testing.T) {
	s := newOCRStrategy(OCRConfig{Enabled: true}, &mockRunner{}, fakeImages(), nil)

	text, err := s.Extract(context.Background(), &Source{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestJoinRowInsertsSpacesOnGaps(t *testing.T) {
	row := pdf.TextHorizontal{
		{FontSize: 10, X: 0, W: 20, S: "Senior"},
		{FontSize: 10, X: 25, W: 10, S: "Go"},
		{FontSize: 10, X: 35, W: 5, S: "!"},
	}

	assert.Equal(t, "Senior Go!", joinRow(row))
}
