package refdata

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

type fileSource struct {
	path string
	xlsx XLSXOptions
}

// NewFileSource reads a local .csv or .xlsx file, dispatching on extension.
func NewFileSource(path string) Source {
	return &fileSource{path: path}
}

// NewXLSXFileSource reads a local workbook with explicit sheet selection.
func NewXLSXFileSource(path string, opts XLSXOptions) Source {
	return &fileSource{path: path, xlsx: opts}
}

func (s *fileSource) Name() string { return s.path }

func (s *fileSource) Load(ctx context.Context) ([]model.RateObservation, error) {
	switch ext := strings.ToLower(filepath.Ext(s.path)); ext {
	case ".csv":
		f, err := os.Open(s.path)
		if err != nil {
			return nil, eris.Wrapf(err, "open %s", s.path)
		}
		defer f.Close() //nolint:errcheck
		return ParseCSV(f)
	case ".xlsx":
		return ParseXLSX(s.path, s.xlsx)
	default:
		return nil, eris.Errorf("unsupported rate file extension %q", ext)
	}
}
