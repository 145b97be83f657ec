package record

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Amplitudes is stored as comma-joined decimal text.
type Amplitudes []float64

// Scan implements sql.Scanner.
func (a *Amplitudes) Scan(value interface{}) error {
	var text string
	switch v := value.(type) {
	case nil:
		*a = Amplitudes{}
		return nil
	case []byte:
		text = string(v)
	case string:
		text = v
	default:
		return fmt.Errorf("cannot scan %T into Amplitudes", value)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		*a = Amplitudes{}
		return nil
	}
	parts := strings.Split(text, ",")
	out := make(Amplitudes, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fmt.Errorf("invalid amplitude %q: %w", p, err)
		}
		out[i] = f
	}
	*a = out
	return nil
}

// Value implements driver.Valuer.
func (a Amplitudes) Value() (driver.Value, error) {
	parts := make([]string, len(a))
	for i, f := range a {
		parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.Join(parts, ","), nil
}
