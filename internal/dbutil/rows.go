// Package dbutil converts SQL result rows into the JSON document model.
package dbutil

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// ScanMaps reads every remaining row into a map keyed by column name. A
// limit above zero stops after that many rows.
func ScanMaps(rows *sql.Rows, limit int) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var out []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		doc := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			doc[col] = ColumnValue(values[i])
		}
		out = append(out, doc)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// ColumnValue maps a driver value into the document model. json and jsonb
// columns arrive as bytes and are decoded when they hold a JSON object or
// array.
func ColumnValue(v interface{}) interface{} {
	switch t := v.(type) {
	case []byte:
		var decoded interface{}
		if json.Valid(t) && json.Unmarshal(t, &decoded) == nil {
			switch decoded.(type) {
			case map[string]interface{}, []interface{}:
				return decoded
			}
		}
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return t
	}
}
