package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// ParameterTable is a named group-contribution data set: subgroup catalog,
// component decompositions and interaction energies.
type ParameterTable struct {
	VersionedRecord       `yaml:"-"`
	Name                  string                 `json:"name" yaml:"name"`
	Description           string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Subgroups             []Subgroup             `json:"subgroups" yaml:"subgroups"`
	Components            []Component            `json:"components" yaml:"components"`
	Interactions          [][]float64            `json:"interactions,omitempty" yaml:"interactions,omitempty"`
	MainGroupInteractions []MainGroupInteraction `json:"main_group_interactions,omitempty" yaml:"main_group_interactions,omitempty"`
}

type Subgroup struct {
	Name      string  `json:"name" yaml:"name"`
	MainGroup int     `json:"main_group" yaml:"main_group"`
	R         float64 `json:"r" yaml:"r"`
	Q         float64 `json:"q" yaml:"q"`
}

// Component lists subgroup occurrence counts keyed by subgroup name.
type Component struct {
	Name   string         `json:"name" yaml:"name"`
	Groups map[string]int `json:"groups" yaml:"groups"`
}

type MainGroupInteraction struct {
	From int     `json:"from" yaml:"from"`
	To   int     `json:"to" yaml:"to"`
	A    float64 `json:"a" yaml:"a"`
}

type StateRecord struct {
	X []float64 `json:"x"`
	T float64   `json:"t"`
}

type EvaluationRecord struct {
	VersionedRecord
	ID            string        `json:"id"`
	TableName     string        `json:"table_name"`
	CreatedAtUTC  string        `json:"created_at_utc"`
	Components    []string      `json:"components"`
	States        []StateRecord `json:"states"`
	Combinatorial [][]float64   `json:"combinatorial"`
	Residual      [][]float64   `json:"residual"`
	Gamma         [][]float64   `json:"gamma"`
}
