package main

import (
	"fmt"
	"strconv"
	"strings"
)

// rowsFlag collects repeated --x values, each a comma-separated composition.
type rowsFlag [][]float64

func (f *rowsFlag) String() string {
	if f == nil {
		return ""
	}
	rows := make([]string, len(*f))
	for i, row := range *f {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		rows[i] = strings.Join(cells, ",")
	}
	return strings.Join(rows, " ")
}

func (f *rowsFlag) Set(value string) error {
	parts := strings.Split(value, ",")
	row := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return fmt.Errorf("parse mole fraction %q: %w", part, err)
		}
		row = append(row, v)
	}
	*f = append(*f, row)
	return nil
}
