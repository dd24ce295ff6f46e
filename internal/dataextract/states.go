package dataextract

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"unifac/internal/activity"
)

type StatesOptions struct {
	// Components names the mole-fraction columns in model order.
	Components []string
	// DefaultTemperature applies to rows without a T value.
	DefaultTemperature float64
}

// ReadStatesCSV reads one mixture state per row. Columns are matched to component
// names case-insensitively, optionally prefixed with "x_"; a "T" column carries
// the temperature.
func ReadStatesCSV(in io.Reader, opts StatesOptions) ([]activity.State, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("states csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read states csv header: %w", err)
	}

	columns, tempColumn, err := mapStateColumns(header, opts.Components)
	if err != nil {
		return nil, err
	}

	var states []activity.State
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read states csv: %w", err)
		}
		if blankRecord(record) {
			continue
		}
		line, _ := reader.FieldPos(0)

		st := activity.State{X: make([]float64, len(columns)), T: opts.DefaultTemperature}
		for c, col := range columns {
			if col >= len(record) {
				return nil, fmt.Errorf("states csv line %d: missing column %s", line, opts.Components[c])
			}
			value, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
			if err != nil {
				return nil, fmt.Errorf("parse states csv line %d column %d: %w", line, col+1, err)
			}
			st.X[c] = value
		}
		if tempColumn >= 0 && tempColumn < len(record) && strings.TrimSpace(record[tempColumn]) != "" {
			value, err := strconv.ParseFloat(strings.TrimSpace(record[tempColumn]), 64)
			if err != nil {
				return nil, fmt.Errorf("parse states csv line %d temperature: %w", line, err)
			}
			if !(value > 0) || math.IsInf(value, 1) {
				return nil, fmt.Errorf("states csv line %d: temperature %g: %w", line, value, activity.ErrInvalidTemperature)
			}
			st.T = value
		}
		if st.T == 0 {
			return nil, fmt.Errorf("states csv line %d has no temperature", line)
		}
		states = append(states, st)
	}
	return states, nil
}

func mapStateColumns(header, components []string) ([]int, int, error) {
	byName := make(map[string]int, len(components))
	for i, name := range components {
		byName[strings.ToLower(strings.TrimSpace(name))] = i
	}

	columns := make([]int, len(components))
	for i := range columns {
		columns[i] = -1
	}
	tempColumn := -1
	for i, raw := range header {
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "t" || key == "temperature" {
			tempColumn = i
			continue
		}
		c, ok := byName[strings.TrimPrefix(key, "x_")]
		if !ok {
			c, ok = byName[key]
		}
		if !ok {
			return nil, 0, fmt.Errorf("states csv column %q matches no component", raw)
		}
		columns[c] = i
	}
	for c, col := range columns {
		if col < 0 {
			return nil, 0, fmt.Errorf("states csv has no column for component %s", components[c])
		}
	}
	return columns, tempColumn, nil
}

// WriteResultCSV writes states and coefficients, one row per state.
func WriteResultCSV(out io.Writer, components []string, states []activity.State, res activity.Result) error {
	writer := csv.NewWriter(out)

	header := make([]string, 0, 4*len(components)+1)
	for _, name := range components {
		header = append(header, "x_"+name)
	}
	header = append(header, "T")
	for _, prefix := range []string{"gammaC_", "gammaR_", "gamma_"} {
		for _, name := range components {
			header = append(header, prefix+name)
		}
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	blocks := [][][]float64{activity.Rows(res.Combinatorial), activity.Rows(res.Residual), activity.Rows(res.Activity)}
	for i, st := range states {
		row := make([]string, 0, len(header))
		for _, x := range st.X {
			row = append(row, formatFloat(x))
		}
		row = append(row, formatFloat(st.T))
		for _, d := range blocks {
			if i >= len(d) {
				return fmt.Errorf("result has %d rows for %d states", len(d), len(states))
			}
			for _, v := range d[i] {
				row = append(row, formatFloat(v))
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
