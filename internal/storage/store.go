package storage

import (
	"context"

	"unifac/internal/model"
)

// Store defines persistence for parameter tables and evaluation runs.
type Store interface {
	Init(ctx context.Context) error
	SaveTable(ctx context.Context, table model.ParameterTable) error
	GetTable(ctx context.Context, name string) (model.ParameterTable, bool, error)
	ListTables(ctx context.Context) ([]string, error)
	DeleteTable(ctx context.Context, name string) error
	SaveEvaluation(ctx context.Context, record model.EvaluationRecord) error
	GetEvaluation(ctx context.Context, id string) (model.EvaluationRecord, bool, error)
	ListEvaluations(ctx context.Context, limit int) ([]model.EvaluationRecord, error)
}
