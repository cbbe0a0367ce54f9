package genai

import (
	"fmt"
	"strings"
)

// MaxContextRows caps how many rows are rendered into a prompt.
const MaxContextRows = 50

const noResults = "Database query results: no matching records were found. The database may be empty or not initialised."

var columnLabels = map[string]string{
	"visit_date":  "Visit date",
	"description": "Description",
	"pet_name":    "Pet name",
	"pet_type":    "Pet type",
}

// FormatContext renders query rows as prompt context, one line per row,
// with the person's name first.
func FormatContext(rows []Row) string {
	if len(rows) == 0 {
		return noResults
	}

	var b strings.Builder
	b.WriteString("Database query results:\n")
	for i, row := range rows {
		if i >= MaxContextRows {
			fmt.Fprintf(&b, "... and %d more\n", len(rows)-i)
			break
		}
		b.WriteString("- ")
		b.WriteString(strings.Join(formatRow(row), " | "))
		b.WriteString("\n")
	}
	return b.String()
}

func formatRow(row Row) []string {
	var parts []string

	first, hasFirst := row.Get("first_name")
	last, hasLast := row.Get("last_name")
	switch {
	case hasFirst && hasLast:
		parts = append(parts, fmt.Sprintf("%v %v", first, last))
	default:
		if owner, ok := row.Get("owner_name"); ok && owner != nil {
			parts = append(parts, fmt.Sprint(owner))
		}
	}

	for i, col := range row.Columns {
		v := row.Values[i]
		if v == nil {
			continue
		}
		switch col {
		case "first_name", "last_name", "owner_name", "count":
			continue
		}
		label := col
		if l, ok := columnLabels[col]; ok {
			label = l
		}
		parts = append(parts, fmt.Sprintf("%s: %v", label, v))
	}

	if c, ok := row.Get("count"); ok {
		if n, isNum := toInt(c); isNum && n > 0 {
			parts = append(parts, fmt.Sprintf("Result: %d", n))
		} else {
			parts = append(parts, "Result: none")
		}
	}
	return parts
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
