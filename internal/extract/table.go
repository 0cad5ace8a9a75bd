package extract

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// TableBatchSize is how many rows go into one document. Large tables are
// split so each batch embeds and searches independently.
const TableBatchSize = 100

// TableBatch is one renderable slice of a table. Batches inherit the table
// name and record their position so callers can reassemble provenance.
type TableBatch struct {
	Content  string
	Metadata map[string]any
}

// Table parses CSV data and renders it into row-per-line text batches of at
// most TableBatchSize rows. The first record is treated as the header.
func Table(tableName string, data []byte) ([]*TableBatch, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse table %q: %w", tableName, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("table %q has no data rows", tableName)
	}

	headers := records[0]
	rows := records[1:]

	totalBatches := (len(rows) + TableBatchSize - 1) / TableBatchSize
	batches := make([]*TableBatch, 0, totalBatches)
	for i := 0; i < len(rows); i += TableBatchSize {
		end := i + TableBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[i:end]
		batches = append(batches, &TableBatch{
			Content: renderTable(tableName, headers, batch),
			Metadata: map[string]any{
				"tableName":    tableName,
				"batchNumber":  i/TableBatchSize + 1,
				"totalBatches": totalBatches,
				"rowCount":     len(batch),
			},
		})
	}
	return batches, nil
}

// renderTable produces the "Table / Columns / Row N" text layout that keeps
// column names adjacent to their values, so row-level facts survive chunking.
func renderTable(tableName string, headers []string, rows [][]string) string {
	if tableName == "" {
		tableName = "Data"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Table: %s\n\n", tableName)
	fmt.Fprintf(&b, "Columns: %s\n\n", strings.Join(headers, ", "))
	for i, row := range rows {
		fmt.Fprintf(&b, "Row %d:\n", i+1)
		for j, header := range headers {
			value := ""
			if j < len(row) {
				value = row[j]
			}
			fmt.Fprintf(&b, "  %s: %s\n", header, value)
		}
		b.WriteString("\n")
	}
	return b.String()
}
