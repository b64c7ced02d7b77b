/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package delta

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	log "github.com/sirupsen/logrus"
)

// FileName is the name of the delta file inside the cache directory
const FileName = "SynchroNtp_delta"

const (
	lockSuffix     = ".lock"
	lockRetryDelay = 10 * time.Millisecond
)

// ErrCorrupt is returned by Load when the delta file doesn't hold a number
var ErrCorrupt = errors.New("delta file is corrupt")

// Store is a single slot, file backed storage of the latest Measurement
type Store struct {
	// Directory overrides the temp directory if it exists
	Directory string
}

// NewStore returns a Store keeping its file in dir, or in the temp directory if dir is unusable
func NewStore(dir string) *Store {
	return &Store{Directory: dir}
}

// Dir returns the directory holding the delta file. It's resolved on every
// call, so a directory created later is picked up.
func (s *Store) Dir() string {
	if s.Directory != "" {
		info, err := os.Stat(s.Directory)
		if err == nil && info.IsDir() {
			return s.Directory
		}
		log.Debugf("cache directory %q is not usable, falling back to %s", s.Directory, os.TempDir())
	}
	return os.TempDir()
}

// Path returns full path to the delta file
func (s *Store) Path() string {
	return filepath.Join(s.Dir(), FileName)
}

// Load reads the stored Measurement. It returns nil without error when there
// is nothing usable on disk, and ErrCorrupt when the file content isn't a number.
func (s *Store) Load() (*Measurement, error) {
	path := s.Path()
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warningf("can't stat delta file %s: %v", path, err)
		}
		return nil, nil
	}
	if !info.Mode().IsRegular() {
		log.Warningf("delta file %s is not a regular file", path)
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warningf("can't read delta file %s: %v", path, err)
		return nil, nil
	}
	offset, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		return nil, fmt.Errorf("%w: %s: offset is %v", ErrCorrupt, path, offset)
	}
	m := NewMeasurement(offset, info.ModTime())
	return &m, nil
}

// Save atomically replaces the delta file with offset and marks it as measured at.
func (s *Store) Save(offset float64, at time.Time) (Measurement, error) {
	path := s.Path()
	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644))
	if err != nil {
		return Measurement{}, fmt.Errorf("create pending delta file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			log.Debugf("cleanup pending delta file: %v", err)
		}
	}()

	if _, err := pendingFile.WriteString(strconv.FormatFloat(offset, 'f', -1, 64)); err != nil {
		return Measurement{}, fmt.Errorf("write delta: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return Measurement{}, fmt.Errorf("atomically replace delta file: %w", err)
	}
	if err := os.Chtimes(path, at, at); err != nil {
		return Measurement{}, fmt.Errorf("set delta file time: %w", err)
	}
	log.Debugf("saved delta %v to %s", offset, path)
	return NewMeasurement(offset, at), nil
}

// Clear removes the delta file. Removing a missing file is not an error.
// The lock file is left in place: another process may hold or wait on it,
// and removing it would let two processes lock different inodes.
func (s *Store) Clear() error {
	path := s.Path()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing delta file: %w", err)
	}
	return nil
}

// Lock takes an exclusive advisory lock shared by all processes using this
// Store's directory. It waits until the lock is free or ctx is done.
func (s *Store) Lock(ctx context.Context) (unlock func(), err error) {
	fl := flock.New(s.Path() + lockSuffix)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("locking %s: lock not acquired", fl.Path())
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			log.Warningf("unlocking %s: %v", fl.Path(), err)
		}
	}, nil
}
