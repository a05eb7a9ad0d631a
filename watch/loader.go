// Package watch monitors a drop directory for candidate batch files and
// feeds each decoded batch to a handler, normally the builder. Files are
// JSON or YAML; a file is picked up on create or write, debounced so
// editors writing in several chunks trigger one ingest.
package watch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/silvamed/ontoforge/builder"
	"github.com/silvamed/ontoforge/errors"
)

// LoadBatch decodes a candidate batch file. The format follows the file
// extension: .json, .yaml or .yml.
func LoadBatch(path string) (builder.Batch, error) {
	var batch builder.Batch

	data, err := os.ReadFile(path)
	if err != nil {
		return batch, errors.Wrapf(err, "read batch file %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &batch); err != nil {
			return batch, errors.Wrapf(err, "decode JSON batch %s", path)
		}
	case ".yaml", ".yml":
		// Decode through JSON so the json struct tags apply to the nested
		// attribute structs.
		var raw interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return batch, errors.Wrapf(err, "decode YAML batch %s", path)
		}
		jsonData, err := json.Marshal(raw)
		if err != nil {
			return batch, errors.Wrapf(err, "convert YAML batch %s", path)
		}
		if err := json.Unmarshal(jsonData, &batch); err != nil {
			return batch, errors.Wrapf(err, "decode YAML batch %s", path)
		}
	default:
		return batch, errors.Newf("unsupported batch file extension %q", filepath.Ext(path))
	}

	return batch, nil
}

// isBatchFile reports whether path looks like a candidate batch drop.
// Hidden files and editor temp files are skipped.
func isBatchFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
