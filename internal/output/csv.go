package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"capi-inspector/internal/model"
)

var csvHeader = []string{"ID", "Severity", "Category", "Resource", "Field", "Message", "Recommendation", "Source", "Line"}

// WriteCSV writes one row per finding in evaluation order.
func WriteCSV(w io.Writer, r *model.Report) error {
	cw := csv.NewWriter(w)
	_ = cw.Write(csvHeader)
	for _, f := range r.Findings {
		line := ""
		if f.Line > 0 {
			line = strconv.Itoa(f.Line)
		}
		_ = cw.Write([]string{f.ID, string(f.Severity), f.Category, f.ResourceID, f.Field, f.Message, f.Recommendation, f.Source, line})
	}
	cw.Flush()
	return cw.Error()
}
