// Package cutoffs loads college cutoff tables from YAML files.
//
// File layout:
//
//	cutoffs:
//	  - college: AIIMS Delhi
//	    location: New Delhi
//	    category: general
//	    year: 2024
//	    rank: 50
package cutoffs

import (
	"errors"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/okian/rankpredictor/internal/domain/college"
)

// ErrInvalidTable marks a cutoff file that parses but holds bad rows.
var ErrInvalidTable = errors.New("invalid cutoff table")

// LoadFile reads a cutoff table from a YAML file.
func LoadFile(path string) (*college.Table, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load cutoffs %s: %w", path, err)
	}
	return fromKoanf(k)
}

// LoadBytes reads a cutoff table from YAML content.
func LoadBytes(b []byte) (*college.Table, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(b), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse cutoffs: %w", err)
	}
	return fromKoanf(k)
}

func fromKoanf(k *koanf.Koanf) (*college.Table, error) {
	var rows []college.Cutoff
	if err := k.UnmarshalWithConf("cutoffs", &rows, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode cutoffs: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no cutoffs", ErrInvalidTable)
	}
	for i := range rows {
		cat, err := college.ParseCategory(string(rows[i].Category))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrInvalidTable, i, err)
		}
		rows[i].Category = cat
		if rows[i].College == "" || rows[i].Rank < 1 {
			return nil, fmt.Errorf("%w: row %d needs a college and a positive rank", ErrInvalidTable, i)
		}
	}
	return college.NewTable(rows), nil
}
