// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/procfs/sysfs"
	"golang.org/x/sys/unix"
)

var (
	// ErrNotDirectory is returned when a discovery root is missing or is not a directory
	ErrNotDirectory = errors.New("not a directory")

	// ErrEmptyDirectory is returned when a discovery root has no entries
	ErrEmptyDirectory = errors.New("empty directory")

	// ErrNotFound is returned when no device or control file matches
	ErrNotFound = errors.New("not found")

	// ErrInvalidValue is returned when a control file holds something other
	// than an unsigned decimal integer
	ErrInvalidValue = errors.New("invalid value")

	// ErrOutOfRange is returned when a caller asks for a value the device
	// declares it cannot take. Nothing is written in that case.
	ErrOutOfRange = errors.New("out of range")
)

// checkSysFS verifies that the sysfs mount point exists and is a directory
func checkSysFS(sysfsPath string) error {
	if _, err := sysfs.NewFS(sysfsPath); err != nil {
		return fmt.Errorf("failed to open sysfs at %s: %w", sysfsPath, err)
	}
	return nil
}

// listDir returns the entries of dir in name order
func listDir(dir string) ([]os.DirEntry, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s: %w", dir, err)
	}
	return entries, nil
}

// checkControlFile ensures a control file exists before it is read or written
func checkControlFile(path string) error {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("control file %s does not exist: %w", path, ErrNotFound)
	default:
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
}

// readUint reads a sysfs control file holding a single unsigned decimal
// integer. Surrounding whitespace (usually a trailing newline) is ignored.
func readUint(path string) (uint64, error) {
	data, err := sysReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if !utf8.Valid(data) {
		return 0, fmt.Errorf("failed to decode %s as text: %w", path, ErrInvalidValue)
	}

	valueStr := strings.TrimSpace(string(data))
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %q from %s: %w: %w", valueStr, path, ErrInvalidValue, err)
	}

	return value, nil
}

// writeUint overwrites a sysfs control file with the decimal text of value
func writeUint(path string, value uint64) error {
	if err := os.WriteFile(path, []byte(strconv.FormatUint(value, 10)), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// sysfsPageSize bounds a sysfs attribute; the kernel never returns more
const sysfsPageSize = 4096

// sysReadFile is a simplified os.ReadFile that invokes syscall.Read directly.
// Content filling the whole page is rejected rather than truncated.
func sysReadFile(file string) ([]byte, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	// On some machines, hwmon drivers are broken and return EAGAIN.  This causes
	// Go's os.ReadFile implementation to poll forever.
	//
	// Since we either want to read data or bail immediately, do the simplest
	// possible read using system call directly.
	b := make([]byte, sysfsPageSize)
	n, err := unix.Read(int(f.Fd()), b)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("failed to read file: %q, read returned negative bytes value: %d", file, n)
	}
	if n == len(b) {
		return nil, fmt.Errorf("%w: %q holds %d bytes or more", ErrInvalidValue, file, len(b))
	}

	return b[:n], nil
}
