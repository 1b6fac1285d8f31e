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

// Package serializer renders values for humans and machines.
//
// The CLI prints load results through a Writer in one of three formats:
//
//   - json: indented JSON
//   - yaml: YAML with two-space indentation
//   - table: the JSON encoding flattened into sorted FIELD/VALUE rows
//
// Example:
//
//	w, err := serializer.NewFileWriter(serializer.FormatTable, "result.txt")
//	if err != nil {
//		return err
//	}
//	defer w.Close()
//	if err := w.Serialize(ctx, result); err != nil {
//		return err
//	}
//
// The config-loader service answers with RespondJSON, which buffers the
// encoding so a failure never leaves a partial body on the wire.
package serializer
