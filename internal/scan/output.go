// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scan

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	PhaseOrphans     = "orphans"
	PhaseRunaways    = "runaways"
	PhaseReportCards = "reportcards"
)

// OutputPath returns the findings file for a backend and phase,
// e.g. <logsDir>/deluge-orphans.txt.
func OutputPath(logsDir, backend, phase string) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s-%s.txt", backend, phase))
}

// removeOutputs clears prior findings for the given backends so a run never
// mixes results from different scans. Orphan files are removed too; the
// orphan phase re-reads its own output within a run to append across walk
// passes, not across runs.
func removeOutputs(logsDir string, backendNames []string) error {
	for _, name := range backendNames {
		for _, phase := range []string{PhaseOrphans, PhaseRunaways, PhaseReportCards} {
			p := OutputPath(logsDir, name, phase)
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return errors.Wrapf(err, "remove %s", p)
			}
		}
	}
	return nil
}

// WriteLines replaces the file contents atomically: write to a sibling tmp
// file, then rename over the target.
func WriteLines(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create output dir")
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "create %s", tmp)
	}

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			f.Close()
			os.Remove(tmp)
			return errors.Wrapf(err, "write %s", tmp)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "flush %s", tmp)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "close %s", tmp)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "rename %s", tmp)
	}
	return nil
}

// ReadLines returns the non-empty lines of a findings file. A missing file
// is an empty result, not an error.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
