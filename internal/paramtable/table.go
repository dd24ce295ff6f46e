// Package paramtable turns named group-contribution tables into the dense arrays
// consumed by the activity model.
package paramtable

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"unifac/internal/activity"
	"unifac/internal/model"
)

var (
	ErrInvalidTable       = errors.New("paramtable: invalid table")
	ErrUnknownSubgroup    = errors.New("paramtable: unknown subgroup")
	ErrMissingInteraction = errors.New("paramtable: missing main-group interaction")
)

// Decode reads and validates a YAML parameter table. Unknown keys are rejected.
func Decode(r io.Reader) (model.ParameterTable, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var table model.ParameterTable
	if err := dec.Decode(&table); err != nil {
		return model.ParameterTable{}, fmt.Errorf("decode parameter table: %w", err)
	}
	if err := Validate(table); err != nil {
		return model.ParameterTable{}, err
	}
	return table, nil
}

func LoadFile(path string) (model.ParameterTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.ParameterTable{}, err
	}
	defer f.Close()

	table, err := Decode(f)
	if err != nil {
		return model.ParameterTable{}, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

func Encode(w io.Writer, table model.ParameterTable) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(table); err != nil {
		return err
	}
	return enc.Close()
}

// Validate checks names, references and shapes. Numeric invariants of the
// resolved arrays are checked again by activity.New.
func Validate(table model.ParameterTable) error {
	if table.Name == "" {
		return fmt.Errorf("table name is required: %w", ErrInvalidTable)
	}
	if len(table.Subgroups) == 0 {
		return fmt.Errorf("table %s has no subgroups: %w", table.Name, ErrInvalidTable)
	}
	if len(table.Components) == 0 {
		return fmt.Errorf("table %s has no components: %w", table.Name, ErrInvalidTable)
	}

	index := make(map[string]int, len(table.Subgroups))
	for i, sg := range table.Subgroups {
		if sg.Name == "" {
			return fmt.Errorf("subgroup %d has no name: %w", i, ErrInvalidTable)
		}
		if _, dup := index[sg.Name]; dup {
			return fmt.Errorf("duplicate subgroup %s: %w", sg.Name, ErrInvalidTable)
		}
		if !(sg.R >= 0) || !(sg.Q >= 0) || math.IsInf(sg.R, 0) || math.IsInf(sg.Q, 0) {
			return fmt.Errorf("subgroup %s: R=%g Q=%g: %w", sg.Name, sg.R, sg.Q, ErrInvalidTable)
		}
		index[sg.Name] = i
	}

	seen := make(map[string]struct{}, len(table.Components))
	for i, comp := range table.Components {
		if comp.Name == "" {
			return fmt.Errorf("component %d has no name: %w", i, ErrInvalidTable)
		}
		if _, dup := seen[comp.Name]; dup {
			return fmt.Errorf("duplicate component %s: %w", comp.Name, ErrInvalidTable)
		}
		seen[comp.Name] = struct{}{}
		for group, count := range comp.Groups {
			if _, ok := index[group]; !ok {
				return fmt.Errorf("component %s references %s: %w", comp.Name, group, ErrUnknownSubgroup)
			}
			if count < 0 {
				return fmt.Errorf("component %s: %s count %d: %w", comp.Name, group, count, ErrInvalidTable)
			}
		}
	}

	hasDense := len(table.Interactions) > 0
	hasSparse := len(table.MainGroupInteractions) > 0
	switch {
	case hasDense && hasSparse:
		return fmt.Errorf("table %s sets both interactions and main_group_interactions: %w", table.Name, ErrInvalidTable)
	case !hasDense && !hasSparse:
		return fmt.Errorf("table %s has no interaction parameters: %w", table.Name, ErrInvalidTable)
	case hasDense:
		n := len(table.Subgroups)
		if len(table.Interactions) != n {
			return fmt.Errorf("interactions has %d rows for %d subgroups: %w", len(table.Interactions), n, ErrInvalidTable)
		}
		for i, row := range table.Interactions {
			if len(row) != n {
				return fmt.Errorf("interactions row %d has %d columns, want %d: %w", i, len(row), n, ErrInvalidTable)
			}
		}
	}
	return nil
}

// ComponentNames returns component names in column order.
func ComponentNames(table model.ParameterTable) []string {
	names := make([]string, len(table.Components))
	for i, comp := range table.Components {
		names[i] = comp.Name
	}
	return names
}

// InteractionMatrix returns the per-subgroup interaction table, expanding
// main-group pairs when the table is written that way.
func InteractionMatrix(table model.ParameterTable) ([][]float64, error) {
	if len(table.MainGroupInteractions) > 0 {
		return ExpandMainGroupInteractions(table.Subgroups, table.MainGroupInteractions)
	}
	out := make([][]float64, len(table.Interactions))
	for i, row := range table.Interactions {
		out[i] = append([]float64(nil), row...)
	}
	return out, nil
}

// ExpandMainGroupInteractions builds a[s1][s2] = a_main[mg(s1)][mg(s2)], zero on
// shared main groups. Every pair of distinct main groups present must be listed.
func ExpandMainGroupInteractions(subgroups []model.Subgroup, pairs []model.MainGroupInteraction) ([][]float64, error) {
	lookup := make(map[[2]int]float64, len(pairs))
	for _, p := range pairs {
		key := [2]int{p.From, p.To}
		if _, dup := lookup[key]; dup {
			return nil, fmt.Errorf("duplicate interaction %d->%d: %w", p.From, p.To, ErrInvalidTable)
		}
		lookup[key] = p.A
	}

	out := make([][]float64, len(subgroups))
	for i, from := range subgroups {
		out[i] = make([]float64, len(subgroups))
		for j, to := range subgroups {
			if from.MainGroup == to.MainGroup {
				continue
			}
			a, ok := lookup[[2]int{from.MainGroup, to.MainGroup}]
			if !ok {
				return nil, fmt.Errorf("%s (main group %d) -> %s (main group %d): %w",
					from.Name, from.MainGroup, to.Name, to.MainGroup, ErrMissingInteraction)
			}
			out[i][j] = a
		}
	}
	return out, nil
}

// Resolve converts a table into activity.Parameters. Subgroup order is the
// table's catalog order and component order is the table's component order.
func Resolve(table model.ParameterTable) (activity.Parameters, error) {
	if err := Validate(table); err != nil {
		return activity.Parameters{}, err
	}

	n := len(table.Subgroups)
	p := activity.Parameters{
		R:  make([]float64, n),
		Q:  make([]float64, n),
		Nu: make([][]int, n),
	}
	index := make(map[string]int, n)
	for i, sg := range table.Subgroups {
		p.R[i] = sg.R
		p.Q[i] = sg.Q
		p.Nu[i] = make([]int, len(table.Components))
		index[sg.Name] = i
	}
	for c, comp := range table.Components {
		for group, count := range comp.Groups {
			p.Nu[index[group]][c] = count
		}
	}

	a, err := InteractionMatrix(table)
	if err != nil {
		return activity.Parameters{}, err
	}
	p.A = a
	return p, nil
}

// Build resolves table and constructs a model with states as its default batch.
func Build(table model.ParameterTable, states ...activity.State) (*activity.Model, error) {
	p, err := Resolve(table)
	if err != nil {
		return nil, err
	}
	p.States = states
	m, err := activity.New(p)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", table.Name, err)
	}
	return m, nil
}
