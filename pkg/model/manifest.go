// Copyright © 2018 One Concern

package model

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode"
)

// Manifest describes one version of a package, as stored in metadata.json.
//
// Files maps slash-separated paths, relative to the version directory, to the hex-encoded
// SHA-256 of their content. Hashes may be empty while a package is being authored.
type Manifest struct {
	Name        string            `json:"name"`
	ID          string            `json:"id"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Icon        string            `json:"icon"`
	Author      string            `json:"author"`
	Type        string            `json:"type"`
	Category    string            `json:"category"`
	Permissions []string          `json:"permissions"`
	Entry       string            `json:"entry"`
	Files       map[string]string `json:"all_files"`
	_           struct{}
}

// NewManifest builds an empty manifest, ready to be serialized
func NewManifest() *Manifest {
	return &Manifest{
		Permissions: []string{},
		Files:       make(map[string]string),
	}
}

// AddFile declares a file and its hash
func (m *Manifest) AddFile(pth, hash string) {
	if m.Files == nil {
		m.Files = make(map[string]string)
	}
	m.Files[pth] = hash
}

// RemoveFile removes a file declaration, returning the hash it had
func (m *Manifest) RemoveFile(pth string) (string, bool) {
	hash, ok := m.Files[pth]
	if ok {
		delete(m.Files, pth)
	}
	return hash, ok
}

// HasFile tells if a file is declared
func (m *Manifest) HasFile(pth string) bool {
	_, ok := m.Files[pth]
	return ok
}

// FileHash yields the declared hash for a file
func (m *Manifest) FileHash(pth string) (string, bool) {
	hash, ok := m.Files[pth]
	return hash, ok
}

// SortedFiles yields all declared paths, in lexicographic order
func (m *Manifest) SortedFiles() []string {
	files := make([]string, 0, len(m.Files))
	for pth := range m.Files {
		files = append(files, pth)
	}
	sort.Strings(files)
	return files
}

// Info summarizes a manifest as an index entry
func (m *Manifest) Info(location string) PackageInfo {
	return PackageInfo{
		ID:            m.ID,
		Name:          m.Name,
		Icon:          m.Icon,
		Author:        m.Author,
		LatestVersion: m.Version,
		Description:   m.Description,
		Location:      location,
	}
}

// Validate the identity fields and the declared file paths of a manifest.
//
// Hashes are not checked here: this is done when verifying staged content.
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return IDIsRequired
	}
	if m.Version == "" {
		return VersionIsRequired
	}
	if err := ValidateName("package id", m.ID); err != nil {
		return err
	}
	if err := ValidateName("version", m.Version); err != nil {
		return err
	}
	for pth := range m.Files {
		if err := ValidateFilePath(pth); err != nil {
			return err
		}
	}
	return nil
}

// ValidateName checks that an id or version token may safely be used as a single path element
func ValidateName(kind, name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("invalid %s: %q", kind, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("invalid %s: %q must not start with a dot", kind, name)
	case strings.TrimSpace(name) != name:
		return fmt.Errorf("invalid %s: %q has leading or trailing spaces", kind, name)
	case strings.ContainsAny(name, `/\:`):
		return fmt.Errorf("invalid %s: %q contains a forbidden character", kind, name)
	case strings.IndexFunc(name, unicode.IsControl) >= 0:
		return fmt.Errorf("invalid %s: %q contains a control character", kind, name)
	}
	return nil
}

// ValidateFilePath checks that a declared file stays within its package
func ValidateFilePath(pth string) error {
	if pth == "" {
		return fmt.Errorf("invalid file path: empty")
	}
	if strings.Contains(pth, `\`) {
		return fmt.Errorf("invalid file path %q: must be slash-separated", pth)
	}
	if path.IsAbs(pth) {
		return fmt.Errorf("invalid file path %q: must be relative", pth)
	}
	clean := path.Clean(pth)
	if clean != pth || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("invalid file path %q: must be clean and within the package", pth)
	}
	if clean == MetadataFile {
		return fmt.Errorf("invalid file path %q: reserved name", pth)
	}
	return nil
}
