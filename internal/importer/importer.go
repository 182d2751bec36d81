// Package importer loads country outlines from the Natural Earth CSV export
// (columns NAME;wkt_geom) into a boundary store.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"

	"github.com/playperu/cityguesser/internal/geoquiz"
)

// BoundaryWriter receives the parsed outlines.
type BoundaryWriter interface {
	PutCountryBoundary(ctx context.Context, name string, g orb.Geometry) error
}

// LocationWriter receives a country location at the outline's centroid when
// Options.Difficulty is set.
type LocationWriter interface {
	AddLocation(ctx context.Context, mode geoquiz.Mode, loc geoquiz.Location) (geoquiz.Location, error)
}

type Options struct {
	// Difficulty, when set, also registers each country as a game location.
	Difficulty geoquiz.Difficulty
	Locations  LocationWriter
}

type Report struct {
	Imported  int
	Skipped   int
	Locations int
}

// Row is one parsed line of the export.
type Row struct {
	Line     int
	Name     string
	Geometry orb.Geometry
}

var ErrMissingColumn = errors.New("missing column")

// rowReader walks the CSV, yielding parsed rows and per-row errors.
type rowReader struct {
	r       *csv.Reader
	nameCol int
	geomCol int
	line    int
}

func newRowReader(src io.Reader) (*rowReader, error) {
	r := csv.NewReader(src)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	rr := &rowReader{r: r, nameCol: -1, geomCol: -1, line: 1}
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))) {
		case "name":
			rr.nameCol = i
		case "wkt_geom":
			rr.geomCol = i
		}
	}
	if rr.nameCol < 0 {
		return nil, fmt.Errorf("%w: NAME", ErrMissingColumn)
	}
	if rr.geomCol < 0 {
		return nil, fmt.Errorf("%w: wkt_geom", ErrMissingColumn)
	}
	return rr, nil
}

// next returns io.EOF at the end. Other errors refer to the current row only.
func (rr *rowReader) next() (Row, error) {
	rec, err := rr.r.Read()
	rr.line++
	if err != nil {
		return Row{}, err
	}
	row := Row{Line: rr.line}
	if rr.nameCol >= len(rec) || rr.geomCol >= len(rec) {
		return row, fmt.Errorf("line %d: expected %d columns, got %d", rr.line, max(rr.nameCol, rr.geomCol)+1, len(rec))
	}
	row.Name = strings.TrimSpace(rec[rr.nameCol])
	if row.Name == "" {
		return row, fmt.Errorf("line %d: empty name", rr.line)
	}
	row.Geometry, err = wkt.Unmarshal(strings.TrimSpace(rec[rr.geomCol]))
	if err != nil {
		return row, fmt.Errorf("line %d (%s): parsing wkt: %w", rr.line, row.Name, err)
	}
	return row, nil
}

// Import reads the export from src and writes every valid row to dst. Bad
// rows are logged and skipped; only I/O on src or a cancelled ctx aborts.
func Import(ctx context.Context, src io.Reader, dst BoundaryWriter, opts Options, logger *slog.Logger) (Report, error) {
	var rep Report

	rr, err := newRowReader(src)
	if err != nil {
		return rep, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		row, err := rr.next()
		if errors.Is(err, io.EOF) {
			return rep, nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if row.Line == 0 && !errors.As(err, &parseErr) {
				return rep, fmt.Errorf("reading csv: %w", err)
			}
			logger.Warn("skipping row", "error", err)
			rep.Skipped++
			continue
		}

		if err := dst.PutCountryBoundary(ctx, row.Name, row.Geometry); err != nil {
			logger.Warn("skipping country", "line", row.Line, "name", row.Name, "error", err)
			rep.Skipped++
			continue
		}
		rep.Imported++

		if opts.Difficulty != "" && opts.Locations != nil {
			if err := addCountryLocation(ctx, opts, row); err != nil {
				logger.Warn("country location not added", "name", row.Name, "error", err)
				continue
			}
			rep.Locations++
		}
	}
}

func addCountryLocation(ctx context.Context, opts Options, row Row) error {
	c, _ := planar.CentroidArea(row.Geometry)
	_, err := opts.Locations.AddLocation(ctx, geoquiz.ModeCountry, geoquiz.Location{
		Name:       row.Name,
		Lat:        c.Lat(),
		Lon:        c.Lon(),
		Difficulty: opts.Difficulty,
	})
	return err
}
