package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/model"
)

// PayloadExtensions lists the file extensions read as payloads.
var PayloadExtensions = []string{".json", ".yaml", ".yml", ".cue"}

// LoadError represents an error that occurred while reading an input file.
type LoadError struct {
	Code    string
	Message string
	Path    string
	Err     error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadPayload reads a payload file. "-" reads stdin.
//
// JSON and YAML files are returned as is, since the parser reads both
// strict JSON and the relaxed syntax. CUE files are evaluated and exported
// to JSON; field order follows the CUE declaration order.
func LoadPayload(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "reading stdin", Err: err}
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: "file not found", Path: path}
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "reading file", Path: path, Err: err}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		out, err := exportCUE(data, path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "evaluating CUE", Path: path, Err: err}
		}
		return out, nil
	default:
		return data, nil
	}
}

// exportCUE evaluates a CUE source to concrete JSON.
func exportCUE(src []byte, filename string) ([]byte, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, err
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v.MarshalJSON()
}

// LoadRecords reads a records file: an object keyed by model, each an
// array of records.
//
//	{"unit": [{"_id": "u1", "Title": "Fonds"}], "object": [...]}
//
// Callers insert the models in model.All order, so parents exist first.
func LoadRecords(path string) (map[model.Model][]*ir.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: "file not found", Path: path}
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "reading file", Path: path, Err: err}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		data, err = exportCUE(data, path)
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "converting records", Path: path, Err: err}
	}

	v, err := ir.DecodeJSON(data)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "decoding records", Path: path, Err: err}
	}
	top, ok := v.(*ir.Document)
	if !ok {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Path: path,
			Message: fmt.Sprintf("records must be an object keyed by model, got %s", ir.TypeName(v))}
	}

	out := map[model.Model][]*ir.Document{}
	for key, val := range top.All() {
		m, err := model.Parse(key)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "unknown model", Path: path, Err: err}
		}
		arr, ok := val.(ir.Array)
		if !ok {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Path: path,
				Message: fmt.Sprintf("%s: records must be an array, got %s", key, ir.TypeName(val))}
		}
		for i, item := range arr {
			doc, ok := item.(*ir.Document)
			if !ok {
				return nil, &LoadError{Code: ErrCodeLoadFailed, Path: path,
					Message: fmt.Sprintf("%s[%d]: record must be an object, got %s", key, i, ir.TypeName(item))}
			}
			out[m] = append(out[m], doc)
		}
	}
	return out, nil
}

// yamlToJSON converts a YAML document to JSON. Record field order is not
// significant, since records are stored canonically.
func yamlToJSON(data []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// FindPayloadFiles walks dir and returns every payload file, sorted.
func FindPayloadFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isPayloadFile(path) {
			files = append(files, path)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}

// collectPayloads resolves a file or directory argument to payload files.
func collectPayloads(arg string) ([]string, bool, error) {
	if arg == "-" {
		return []string{arg}, false, nil
	}
	info, err := os.Stat(arg)
	if os.IsNotExist(err) {
		return nil, false, &LoadError{Code: ErrCodeNotFound, Message: "path not found", Path: arg}
	}
	if err != nil {
		return nil, false, &LoadError{Code: ErrCodeNotFound, Message: "accessing path", Path: arg, Err: err}
	}
	if !info.IsDir() {
		return []string{arg}, false, nil
	}
	files, err := FindPayloadFiles(arg)
	if err != nil {
		return nil, true, &LoadError{Code: ErrCodeScanError, Message: "scanning directory", Path: arg, Err: err}
	}
	if len(files) == 0 {
		return nil, true, &LoadError{Code: ErrCodeNoFiles, Message: "no payload files found", Path: arg}
	}
	return files, true, nil
}

func isPayloadFile(path string) bool {
	return slices.Contains(PayloadExtensions, strings.ToLower(filepath.Ext(path)))
}
