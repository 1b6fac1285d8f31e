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

package overrides

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Subdirs lists the override subdirectories, relative to the override root,
// that are carried in a bundle.
var Subdirs = []string{
	"processing",
	"station-reference/stationdata",
	"user-preferences",
}

var (
	// ErrUnsafePath is returned by Extract for entries that would land
	// outside the destination directory.
	ErrUnsafePath = errors.New("unsafe path in override bundle")

	// ErrNotDirectory is returned by Package when the override root is not a directory.
	ErrNotDirectory = errors.New("override path is not a directory")
)

// IsHidden reports whether a base name is excluded from bundles.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Entry is a single item found under the recognized subdirectories.
type Entry struct {
	// Name is the slash-separated path relative to the override root.
	Name string
	// Path is the location on the local filesystem.
	Path string
	Info fs.FileInfo
}

// Walk visits every non-hidden directory and regular file below the
// recognized subdirectories of root, parents before children. Missing
// subdirectories are skipped.
func Walk(root string, fn func(Entry) error) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to stat override dir %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	for _, sub := range Subdirs {
		base := filepath.Join(root, filepath.FromSlash(sub))
		if _, statErr := os.Stat(base); errors.Is(statErr, fs.ErrNotExist) {
			slog.Debug("override subdirectory not present", "dir", sub)
			continue
		}

		err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if IsHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if !d.IsDir() && !d.Type().IsRegular() {
				slog.Debug("skipping non-regular override entry", "path", p)
				return nil
			}

			rel, relErr := filepath.Rel(root, p)
			if relErr != nil {
				return fmt.Errorf("failed to get relative path: %w", relErr)
			}

			fi, infoErr := d.Info()
			if infoErr != nil {
				return fmt.Errorf("failed to get file info: %w", infoErr)
			}

			return fn(Entry{Name: filepath.ToSlash(rel), Path: p, Info: fi})
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Package builds the gzip-compressed tar bundle for the override directory root.
func Package(root string) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	files := 0
	err := Walk(root, func(e Entry) error {
		hdr, err := tar.FileInfoHeader(e.Info, "")
		if err != nil {
			return fmt.Errorf("failed to create header for %s: %w", e.Name, err)
		}
		hdr.Name = e.Name
		if e.Info.IsDir() {
			hdr.Name += "/"
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("failed to write header for %s: %w", e.Name, err)
		}
		if e.Info.IsDir() {
			return nil
		}

		f, err := os.Open(e.Path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", e.Path, err)
		}
		defer f.Close()

		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("failed to archive %s: %w", e.Name, err)
		}
		files++
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize gzip: %w", err)
	}

	slog.Debug("packaged overrides", "root", root, "files", files, "bytes", buf.Len())
	return buf.Bytes(), nil
}

// Extract unpacks a bundle produced by Package into dest and returns the
// number of regular files written. Only directories and regular files are
// materialized; entries escaping dest fail with ErrUnsafePath.
func Extract(r io.Reader, dest string) (int, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	files := 0
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return files, nil
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return files, fmt.Errorf("%w: %q", ErrUnsafePath, hdr.Name)
		}
		if err != nil {
			return files, fmt.Errorf("failed to read tar entry: %w", err)
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return files, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, fmt.Errorf("failed to create %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr); err != nil {
				return files, fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
			}
			files++
		default:
			slog.Debug("skipping unsupported bundle entry", "name", hdr.Name, "type", hdr.Typeflag)
		}
	}
}

func safeJoin(dest, name string) (string, error) {
	if name == "" || path.IsAbs(name) || filepath.IsAbs(name) || strings.Contains(name, "\\") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return filepath.Join(dest, filepath.FromSlash(clean)), nil
}

func writeFile(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
