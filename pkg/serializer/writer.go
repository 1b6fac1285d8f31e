// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package serializer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// tableNull is printed for JSON nulls in table output.
const tableNull = "-"

var (
	_ Serializer = (*Writer)(nil)
	_ Closer     = (*Writer)(nil)
)

var formats = []Format{FormatJSON, FormatYAML, FormatTable}

// IsUnknown reports whether f is not one of the supported formats.
func (f Format) IsUnknown() bool {
	return !slices.Contains(formats, f)
}

// SupportedFormats lists the accepted --format values.
func SupportedFormats() []string {
	out := make([]string, len(formats))
	for i, f := range formats {
		out[i] = string(f)
	}
	return out
}

// Writer encodes values onto an io.Writer. Writers created by NewFileWriter
// own the file and must be closed.
type Writer struct {
	format Format
	output io.Writer
	closer io.Closer
}

// NewWriter returns a Writer on output, stdout when nil. Unknown formats
// are logged and replaced by JSON.
func NewWriter(format Format, output io.Writer) *Writer {
	if output == nil {
		output = os.Stdout
	}
	if format.IsUnknown() {
		slog.Warn("unknown format, defaulting to JSON", "format", format)
		format = FormatJSON
	}
	return &Writer{format: format, output: output}
}

// NewFileWriter creates or truncates path, creating parent directories,
// and returns a Writer that owns the file.
func NewFileWriter(format Format, path string) (*Writer, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("output path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	w := NewWriter(format, f)
	w.closer = f
	return w, nil
}

// Close closes the owned file, if any. It is safe to call more than once.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	c := w.closer
	w.closer = nil
	return c.Close()
}

// Serialize writes v in the configured format. ctx is only checked before
// writing.
func (w *Writer) Serialize(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.output)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to serialize to JSON: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w.output)
		enc.SetIndent(2)
		defer enc.Close()
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to serialize to YAML: %w", err)
		}
		return nil
	case FormatTable:
		return w.writeTable(v)
	default:
		return fmt.Errorf("unsupported format: %s", w.format)
	}
}

// writeTable prints v as sorted FIELD/VALUE rows. Field names follow the
// JSON encoding of v, so json tags and custom marshalers apply; nested
// objects are dotted and list items indexed.
func (w *Writer) writeTable(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to serialize to table: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("failed to serialize to table: %w", err)
	}

	rows := make(map[string]string)
	flatten(rows, "", doc)
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w.output, "<empty>")
		return err
	}

	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	tw := tabwriter.NewWriter(w.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tVALUE")
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, rows[k])
	}
	return tw.Flush()
}

func flatten(rows map[string]string, prefix string, v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(rows, key, child)
		}
	case []any:
		if len(t) == 0 {
			rows[keyOrValue(prefix)] = "[]"
		}
		for i, child := range t {
			flatten(rows, keyOrValue(prefix)+"["+strconv.Itoa(i)+"]", child)
		}
	case nil:
		rows[keyOrValue(prefix)] = tableNull
	default:
		rows[keyOrValue(prefix)] = fmt.Sprint(t)
	}
}

// keyOrValue names top-level scalars and lists.
func keyOrValue(prefix string) string {
	if prefix == "" {
		return "value"
	}
	return prefix
}
