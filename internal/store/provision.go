package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

var provisionColumns = []string{"access_code", "company", "position", "question", "doc"}

// ParseProvisionTable reads a Markdown table of access records. The header row
// names the columns (access_code, company, position, question, doc; any order,
// question and doc optional). Rows without an access code get a generated one.
func ParseProvisionTable(content string) ([]AccessRecord, error) {
	var (
		columns map[string]int
		records []AccessRecord
	)

	for lineNo, line := range strings.Split(content, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if trimmedLine == "" {
			continue
		}
		if !strings.HasPrefix(trimmedLine, "|") || !strings.HasSuffix(trimmedLine, "|") {
			slog.Debug("skipping line not matching table row format", "line", lineNo+1)
			continue
		}

		cells := splitRow(trimmedLine)
		if isSeparatorRow(cells) {
			continue
		}

		if columns == nil {
			columns = make(map[string]int, len(cells))
			for i, c := range cells {
				columns[columnKey(c)] = i
			}
			for _, required := range []string{"company", "position"} {
				if _, ok := columns[columnKey(required)]; !ok {
					return nil, fmt.Errorf("provision table header is missing the %q column", required)
				}
			}
			continue
		}

		cell := func(name string) string {
			if i, ok := columns[columnKey(name)]; ok && i < len(cells) {
				return cells[i]
			}
			return ""
		}

		rec := AccessRecord{
			AccessCode: cell(provisionColumns[0]),
			Company:    cell(provisionColumns[1]),
			Position:   cell(provisionColumns[2]),
			Question:   cell(provisionColumns[3]),
			Doc:        cell(provisionColumns[4]),
		}
		if rec.Company == "" || rec.Position == "" {
			return nil, fmt.Errorf("line %d: company and position are required", lineNo+1)
		}
		if rec.AccessCode == "" {
			rec.AccessCode = uuid.NewString()
			slog.Info("generated access code", "access_code", rec.AccessCode, "company", rec.Company, "position", rec.Position)
		}
		records = append(records, rec)
	}

	if columns == nil {
		return nil, fmt.Errorf("no table header found")
	}
	return records, nil
}

// ProvisionFromFile loads a Markdown table file into the store.
func ProvisionFromFile(ctx context.Context, s AccessStore, filePath string) (int, error) {
	contentBytes, err := os.ReadFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read provision file %s: %w", filePath, err)
	}
	records, err := ParseProvisionTable(string(contentBytes))
	if err != nil {
		return 0, fmt.Errorf("failed to parse provision file %s: %w", filePath, err)
	}
	if len(records) == 0 {
		slog.Warn("provision file has no rows", "file", filePath)
		return 0, nil
	}
	return s.UpsertAccessRecords(ctx, records)
}

// columnKey folds "Access Code", "access_code" and "accessCode" together.
func columnKey(name string) string {
	return strings.NewReplacer("_", "", " ", "").Replace(strings.ToLower(name))
}

func splitRow(row string) []string {
	parts := strings.Split(strings.Trim(row, "|"), "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-: ") != "" || !strings.Contains(c, "-") {
			return false
		}
	}
	return true
}
