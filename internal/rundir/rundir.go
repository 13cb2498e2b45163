// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package rundir maps realisation indices to their working directories and artifacts.
//
// A model named "pipe" stored beside its model file in /data produces the tree
//
//	/data/pipe/
//	  extremes.sdi
//	  disp-uy-max.txt, disp-uy-min.txt
//	  r1/ s.sif s.slf s.sdo s.txt simla_print.out
//	  r2/ ...
//
// Path functions are pure; only the Ensure methods touch the filesystem.
package rundir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"
)

// ErrDirectoryCreation is returned when a model or run directory cannot be created.
var ErrDirectoryCreation = errors.New("directory creation failed")

// ErrInvalidIndex is returned for realisation indices below 1.
var ErrInvalidIndex = errors.New("realisation index must be at least 1")

const (
	// DefaultInputStem is the stem passed to the engine with -n.
	DefaultInputStem = "s"
	// DirectivePostprocessor is the model-level post-processor directive file.
	DirectivePostprocessor = "extremes.sdi"
	// MaxListFile and MinListFile are written by the post-processor.
	MaxListFile = "disp-uy-max.txt"
	MinListFile = "disp-uy-min.txt"
	// StdoutFile captures the engine's console output.
	StdoutFile = "simla_print.out"

	dirPerm = 0o755
)

// Layout is a read-only description of where a batch's files live.
type Layout struct {
	fs        afero.Fs
	root      string
	inputStem string
}

// Option configures a Layout.
type Option func(*Layout)

// WithInputStem overrides the artifact stem (default "s").
func WithInputStem(stem string) Option {
	return func(l *Layout) {
		if stem != "" {
			l.inputStem = stem
		}
	}
}

// New returns the layout for modelName below modelDir.
func New(fs afero.Fs, modelDir, modelName string, opts ...Option) *Layout {
	l := &Layout{
		fs:        fs,
		root:      filepath.Join(modelDir, modelName),
		inputStem: DefaultInputStem,
	}

	for _, o := range opts {
		o(l)
	}

	return l
}

// FromModelFile derives the layout from a model file path: the run root is the
// model file's directory joined with its base name minus extension.
func FromModelFile(fs afero.Fs, modelFile string, opts ...Option) *Layout {
	base := filepath.Base(modelFile)
	name := base[:len(base)-len(filepath.Ext(base))]

	return New(fs, filepath.Dir(modelFile), name, opts...)
}

// Root is the model directory holding every run directory.
func (l *Layout) Root() string { return l.root }

// InputStem is the name passed to the engine with -n.
func (l *Layout) InputStem() string { return l.inputStem }

// Fs is the filesystem the layout creates directories on.
func (l *Layout) Fs() afero.Fs { return l.fs }

// RunDir is <root>/r<i>.
func (l *Layout) RunDir(i int) string {
	return filepath.Join(l.root, "r"+strconv.Itoa(i))
}

// InputPath is the engine input file for realisation i.
func (l *Layout) InputPath(i int) string {
	return l.artifact(i, ".sif")
}

// LogPath is the engine list file scanned for the success sentinel.
func (l *Layout) LogPath(i int) string {
	return l.artifact(i, ".slf")
}

// PostprocessorLogPath is the per-run post-processor list file.
func (l *Layout) PostprocessorLogPath(i int) string {
	return l.artifact(i, ".sdo")
}

// ArchivePath is the time-history result archive for realisation i.
func (l *Layout) ArchivePath(i int) string {
	return l.artifact(i, ".txt")
}

// ArchiveRef is the archive reference relative to the root, as the
// post-processor directive expects it (r<i>/s).
func (l *Layout) ArchiveRef(i int) string {
	return "r" + strconv.Itoa(i) + "/" + l.inputStem
}

// StdoutPath is where the worker's console output is captured.
func (l *Layout) StdoutPath(i int) string {
	return filepath.Join(l.RunDir(i), StdoutFile)
}

// DirectivePath is the model-level extremes directive.
func (l *Layout) DirectivePath() string {
	return filepath.Join(l.root, DirectivePostprocessor)
}

// ExtremeListPaths returns the max and min list files written by the post-processor.
func (l *Layout) ExtremeListPaths() (string, string) {
	return filepath.Join(l.root, MaxListFile), filepath.Join(l.root, MinListFile)
}

func (l *Layout) artifact(i int, ext string) string {
	return filepath.Join(l.RunDir(i), l.inputStem+ext)
}

// EnsureModelDir creates the root if needed.
func (l *Layout) EnsureModelDir() error {
	return l.mkdir(l.root)
}

// EnsureRunDir creates the run directory for i if needed and returns its path.
// Existing contents are left untouched.
func (l *Layout) EnsureRunDir(i int) (string, error) {
	if i < 1 {
		return "", fmt.Errorf("%w: %d", ErrInvalidIndex, i)
	}

	dir := l.RunDir(i)

	return dir, l.mkdir(dir)
}

func (l *Layout) mkdir(dir string) error {
	fi, err := l.fs.Stat(dir)
	if err == nil {
		if fi.IsDir() {
			return nil
		}

		return &DirError{Path: dir, Err: fmt.Errorf("%w: path exists and is not a directory", os.ErrExist)}
	}

	if err := l.fs.MkdirAll(dir, dirPerm); err != nil {
		return &DirError{Path: dir, Err: err}
	}

	return nil
}

// DirError carries the path that could not be created.
type DirError struct {
	Path string
	Err  error
}

func (e *DirError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrDirectoryCreation, e.Path, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *DirError) Unwrap() []error {
	return []error{ErrDirectoryCreation, e.Err}
}
