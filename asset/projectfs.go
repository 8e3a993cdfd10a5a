// Copyright 2024 The Raven-Engine authors. All rights reserved.

package asset

import (
	"fmt"
	"os"
	"path/filepath"
)

// ProjectFolder names one of a project's well-known asset
// directories, reconstructed from call sites only — the original's
// filesystem module itself was not part of the kept original_source
// file set (confirmed absent from its _INDEX.md).
type ProjectFolder int

const (
	FolderAssets ProjectFolder = iota
	FolderBaked
	FolderShaderSource
	FolderShaderBinary
)

func (f ProjectFolder) String() string {
	switch f {
	case FolderAssets:
		return "assets"
	case FolderBaked:
		return "baked"
	case FolderShaderSource:
		return "shaders/src"
	case FolderShaderBinary:
		return "shaders/bin"
	default:
		return "unknown"
	}
}

// ProjectFS resolves project-relative asset uris against a root
// directory on disk, grounded on filesystem::{exist, exist_or_create,
// get_project_folder_path_absolute} as exercised by
// asset_manager.rs.
type ProjectFS struct {
	root string
}

// NewProjectFS creates a ProjectFS rooted at root.
func NewProjectFS(root string) *ProjectFS { return &ProjectFS{root: root} }

// FolderPath returns folder's absolute path under the project root.
func (fs *ProjectFS) FolderPath(folder ProjectFolder) string {
	return filepath.Join(fs.root, folder.String())
}

// ExistOrCreate ensures folder exists, creating it (and its parents)
// if necessary.
func (fs *ProjectFS) ExistOrCreate(folder ProjectFolder) error {
	path := fs.FolderPath(folder)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("asset: create folder %s: %w", path, err)
	}
	return nil
}

// Exist reports whether name exists under folder.
func (fs *ProjectFS) Exist(folder ProjectFolder, name string) bool {
	_, err := os.Stat(filepath.Join(fs.FolderPath(folder), name))
	return err == nil
}

// ReadFile reads uri, resolved relative to the assets folder if it is
// not already absolute.
func (fs *ProjectFS) ReadFile(uri string) ([]byte, error) {
	path := uri
	if !filepath.IsAbs(path) {
		path = filepath.Join(fs.FolderPath(FolderAssets), uri)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("asset: read %s: %w", path, err)
	}
	return data, nil
}
