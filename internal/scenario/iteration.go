package scenario

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"strings"
)

// buildIterations resolves the iteration plan from a CSV/JSON dataset or an
// iteration count. Each iteration contributes its row as variables.
func buildIterations(opts RunOptions) ([]map[string]string, error) {
	if opts.CSVFilePath != "" && opts.JSONFilePath != "" {
		return nil, errors.New("csv-file-path and json-file-path cannot be used together")
	}
	if opts.CSVFilePath != "" {
		return readCSVIterations(opts.CSVFilePath)
	}
	if opts.JSONFilePath != "" {
		return readJSONIterations(opts.JSONFilePath)
	}
	count := max(opts.IterationCount, 1)
	its := make([]map[string]string, count)
	for i := range its {
		its[i] = map[string]string{}
	}
	return its, nil
}

func readCSVIterations(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv-file-path: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	headers, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv-file-path %s is empty", path)
	}
	if err != nil {
		return nil, fmt.Errorf("csv-file-path: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	var out []map[string]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv-file-path: %w", err)
		}
		vars := map[string]string{}
		for i, h := range headers {
			val := ""
			if i < len(row) {
				val = strings.TrimSpace(row[i])
			}
			vars[h] = val
		}
		out = append(out, vars)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("csv-file-path %s contains no data rows", path)
	}
	return out, nil
}

func readJSONIterations(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("json-file-path: %w", err)
	}
	defer f.Close()

	var rows []map[string]any
	if err := json.NewDecoder(f).Decode(&rows); err != nil {
		return nil, fmt.Errorf("json-file-path %s must be a JSON array of objects: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("json-file-path %s contains no data rows", path)
	}
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		vars := map[string]string{}
		for k, v := range row {
			switch t := v.(type) {
			case string:
				vars[k] = t
			case nil:
				vars[k] = ""
			case map[string]any, []any:
				b, _ := json.Marshal(t)
				vars[k] = string(b)
			default:
				vars[k] = fmt.Sprint(t)
			}
		}
		out = append(out, vars)
	}
	return out, nil
}

func cloneStringMap(in map[string]string) map[string]string {
	out := map[string]string{}
	maps.Copy(out, in)
	return out
}
