package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingRecord 触发信封中没有 record
var ErrMissingRecord = errors.New("trigger envelope has no record")

// TriggerEnvelope 数据库 webhook 的触发信封
type TriggerEnvelope[T any] struct {
	Type      string          `json:"type"`
	Table     string          `json:"table"`
	Schema    string          `json:"schema"`
	Record    *T              `json:"record"`
	OldRecord json.RawMessage `json:"old_record,omitempty"`
}

// DecodeRecord 解析信封并返回新插入的行
func DecodeRecord[T any](body []byte) (T, error) {
	var zero T
	var env TriggerEnvelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return zero, fmt.Errorf("failed to decode trigger envelope: %w", err)
	}
	if env.Record == nil {
		return zero, ErrMissingRecord
	}
	return *env.Record, nil
}
