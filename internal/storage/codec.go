package storage

import (
	"encoding/json"
	"errors"

	"unifac/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Versioned returns the record header for the current schema and codec.
func Versioned() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeTable(t model.ParameterTable) ([]byte, error) {
	return json.Marshal(t)
}

func DecodeTable(data []byte) (model.ParameterTable, error) {
	var table model.ParameterTable
	if err := json.Unmarshal(data, &table); err != nil {
		return model.ParameterTable{}, err
	}
	if err := checkVersion(table.VersionedRecord); err != nil {
		return model.ParameterTable{}, err
	}
	return table, nil
}

func EncodeEvaluation(r model.EvaluationRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeEvaluation(data []byte) (model.EvaluationRecord, error) {
	var record model.EvaluationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.EvaluationRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.EvaluationRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
