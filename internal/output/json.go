package output

import (
	"encoding/json"
	"io"
)

// WriteJSON encodes v as indented JSON. Reports carry their summary.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
