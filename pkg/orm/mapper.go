package orm

import (
	"encoding/json"
	"fmt"
)

// MapRow shapes one raw driver row into a Record. Byte slices become
// strings and JSON columns are decoded; a JSON value that fails to decode
// is replaced by its shape's empty value and reported as a warning.
// Columns not declared on the schema (join and computed aliases) are
// merged after the base columns and never replace them.
func MapRow(raw map[string]interface{}, schema *Schema) (Record, []*MappingWarning) {
	rec := make(Record, len(raw))
	var warnings []*MappingWarning

	for _, col := range schema.Columns {
		v, ok := raw[col]
		if !ok {
			continue
		}
		v = normalizeValue(v)

		if shape, isJSON := schema.JSONColumns[col]; isJSON && v != nil {
			decoded, err := decodeJSON(v)
			if err != nil {
				warnings = append(warnings, &MappingWarning{Table: schema.Table, Column: col, Err: err})
				decoded = shape.Default()
			}
			v = decoded
		}
		rec[col] = v
	}

	for key, v := range raw {
		if _, exists := rec[key]; exists || schema.HasColumn(key) {
			continue
		}
		rec[key] = normalizeValue(v)
	}

	return rec, warnings
}

// MapRows applies MapRow to every row
func MapRows(rows []map[string]interface{}, schema *Schema) ([]Record, []*MappingWarning) {
	records := make([]Record, 0, len(rows))
	var warnings []*MappingWarning
	for _, row := range rows {
		rec, w := MapRow(row, schema)
		records = append(records, rec)
		warnings = append(warnings, w...)
	}
	return records, warnings
}

func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func decodeJSON(v interface{}) (interface{}, error) {
	var text string
	switch val := v.(type) {
	case string:
		text = val
	case json.RawMessage:
		text = string(val)
	default:
		return nil, fmt.Errorf("unexpected %T for JSON column", v)
	}

	var decoded interface{}
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}
