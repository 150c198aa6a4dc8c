package rankmodel

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/okian/rankpredictor/internal/domain/model"
)

// RankColumn names the label column of a training CSV.
const RankColumn = "rank"

// Dataset is a dense feature matrix with rank labels.
type Dataset struct {
	Features []string
	Rows     [][]float64
	Ranks    []float64
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Validate checks shape and finiteness.
func (d *Dataset) Validate() error {
	if len(d.Features) == 0 {
		return fmt.Errorf("no feature columns: %w", ErrInvalidDataset)
	}
	if len(d.Rows) != len(d.Ranks) {
		return fmt.Errorf("%d rows but %d labels: %w", len(d.Rows), len(d.Ranks), ErrInvalidDataset)
	}
	for i, r := range d.Rows {
		if len(r) != len(d.Features) {
			return fmt.Errorf("row %d has %d values, want %d: %w", i, len(r), len(d.Features), ErrInvalidDataset)
		}
		for _, v := range r {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("row %d has a non-finite value: %w", i, ErrInvalidDataset)
			}
		}
		if math.IsNaN(d.Ranks[i]) || math.IsInf(d.Ranks[i], 0) {
			return fmt.Errorf("row %d has a non-finite rank: %w", i, ErrInvalidDataset)
		}
	}
	return nil
}

// FromVectors aligns feature vectors on the sorted union of their names.
// Features a vector lacks are filled with zero.
func FromVectors(vectors []model.FeatureVector, ranks []float64) (*Dataset, error) {
	if len(vectors) != len(ranks) {
		return nil, fmt.Errorf("%d vectors but %d ranks: %w", len(vectors), len(ranks), ErrInvalidDataset)
	}
	seen := make(map[string]struct{})
	for _, fv := range vectors {
		for k := range fv {
			seen[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)

	d := &Dataset{Features: names, Rows: make([][]float64, len(vectors)), Ranks: append([]float64(nil), ranks...)}
	for i, fv := range vectors {
		row := make([]float64, len(names))
		for j, name := range names {
			row[j] = fv[name]
		}
		d.Rows[i] = row
	}
	return d, nil
}

// ReadCSV parses a header of feature names followed by a rank column.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	rankAt := -1
	var names []string
	for i, h := range header {
		if h == RankColumn {
			rankAt = i
			continue
		}
		names = append(names, h)
	}
	if rankAt < 0 {
		return nil, fmt.Errorf("missing %q column: %w", RankColumn, ErrInvalidDataset)
	}

	d := &Dataset{Features: names}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := make([]float64, 0, len(names))
		for i, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, header[i], ErrInvalidDataset)
			}
			if i == rankAt {
				d.Ranks = append(d.Ranks, v)
				continue
			}
			row = append(row, v)
		}
		d.Rows = append(d.Rows, row)
	}
	return d, d.Validate()
}

// WriteCSV writes the dataset in the format ReadCSV accepts.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string(nil), d.Features...), RankColumn)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(d.Features)+1)
	for i, row := range d.Rows {
		for j, v := range row {
			rec[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		rec[len(row)] = strconv.FormatFloat(d.Ranks[i], 'g', -1, 64)
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
