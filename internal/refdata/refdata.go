// Package refdata loads reference rental-rate observations from the
// supported source kinds (CSV and XLSX files, HTTPS URLs, FTP drops, and a
// Postgres table) and validates them into model.RateObservation records for
// calibration.
package refdata

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

// Sentinel errors for row-level validation. Callers classify with errors.Is.
var (
	// ErrDataFormat marks a row missing a required field or carrying a
	// value that does not parse.
	ErrDataFormat = eris.New("refdata: bad row format")

	// ErrDataRange marks a row whose numeric values are outside the valid
	// domain (capacity, rate, or ratio not positive).
	ErrDataRange = eris.New("refdata: value out of range")
)

// Source supplies raw rate observations. Load returns the full set or fails
// on the first invalid row; a partial set is never returned.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]model.RateObservation, error)
}

// Load reads all observations from the source and logs the outcome. It is
// the single entry point the reload path goes through.
func Load(ctx context.Context, src Source) ([]model.RateObservation, error) {
	obs, err := src.Load(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "load %s", src.Name())
	}

	zap.L().Info("refdata: loaded observations",
		zap.String("source", src.Name()),
		zap.Int("rows", len(obs)),
	)
	return obs, nil
}

// ResolveSource maps a --source style argument onto a concrete Source:
// ftp:// and http(s):// URLs to fetching sources, postgres:// DSNs to the
// database source, anything else to a local file by extension.
func ResolveSource(raw string, opts SourceOptions) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, eris.New("refdata: empty source")
	}

	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		switch u.Scheme {
		case "http", "https":
			return NewHTTPSource(raw, opts.Fetcher), nil
		case "ftp":
			return NewFTPSource(raw, opts.FTP), nil
		case "postgres", "postgresql":
			return nil, eris.New("refdata: postgres sources are constructed from a connected pool, not a DSN string")
		}
	}

	switch strings.ToLower(filepath.Ext(raw)) {
	case ".csv", ".xlsx":
		return NewFileSource(raw), nil
	}
	return nil, eris.Errorf("refdata: cannot resolve source %q: expected a .csv/.xlsx path or an http(s)/ftp URL", raw)
}

// SourceOptions carries the collaborators ResolveSource may need.
type SourceOptions struct {
	Fetcher *HTTPFetcher
	FTP     FTPOptions
}
