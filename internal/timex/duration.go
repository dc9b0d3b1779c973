// Package timex contains time helpers shared by the config loaders.
package timex

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Duration wraps time.Duration so it can be read from JSON either as a
// string ("1s", "5m") or as an integer number of nanoseconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return errors.New("invalid duration")
	}
}
