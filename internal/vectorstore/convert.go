package vectorstore

import (
	"encoding/json"
	"fmt"

	v1 "github.com/fyrsmithlabs/ragd/pkg/api/v1"
)

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: unsupported metadata value %T", v1.ErrInvalidInput, v)
	}
}
