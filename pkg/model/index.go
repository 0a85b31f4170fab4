// Copyright © 2018 One Concern

package model

import (
	"sort"
	"strings"
)

// PackageInfo summarizes a package in the global index
type PackageInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Icon          string `json:"icon"`
	Author        string `json:"author"`
	LatestVersion string `json:"latest_version"`
	Description   string `json:"description"`
	Location      string `json:"location"`
}

// Index is the content of index.json.
//
// Packages lists installed packages, Source lists packages advertised by the configured sources.
// Both lists are kept sorted by id.
type Index struct {
	Packages []PackageInfo `json:"packages"`
	Source   []PackageInfo `json:"source"`
}

// NewIndex builds an empty index
func NewIndex() *Index {
	return &Index{
		Packages: []PackageInfo{},
		Source:   []PackageInfo{},
	}
}

// Normalize sorts both sections and replaces nil sections by empty ones
func (x *Index) Normalize() {
	if x.Packages == nil {
		x.Packages = []PackageInfo{}
	}
	if x.Source == nil {
		x.Source = []PackageInfo{}
	}
	SortInfos(x.Packages)
	SortInfos(x.Source)
}

// Installed looks up an installed package
func (x *Index) Installed(id string) (PackageInfo, bool) {
	return findInfo(x.Packages, id)
}

// Available looks up a package advertised by sources
func (x *Index) Available(id string) (PackageInfo, bool) {
	return findInfo(x.Source, id)
}

// SetInstalled inserts or replaces an installed package, keeping the section sorted
func (x *Index) SetInstalled(info PackageInfo) {
	x.Packages = upsertInfo(x.Packages, info)
}

// RemoveInstalled removes an installed package from the index
func (x *Index) RemoveInstalled(id string) {
	x.Packages = removeInfo(x.Packages, id)
}

// SortInfos sorts package summaries by id
func SortInfos(infos []PackageInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})
}

// Matches tells if a package summary matches a free text search (case insensitive)
func (p PackageInfo) Matches(text string) bool {
	if text == "" {
		return true
	}
	text = strings.ToLower(text)
	for _, field := range []string{p.ID, p.Name, p.Description, p.Author} {
		if strings.Contains(strings.ToLower(field), text) {
			return true
		}
	}
	return false
}

func findInfo(infos []PackageInfo, id string) (PackageInfo, bool) {
	i := sort.Search(len(infos), func(i int) bool { return infos[i].ID >= id })
	if i < len(infos) && infos[i].ID == id {
		return infos[i], true
	}
	return PackageInfo{}, false
}

func upsertInfo(infos []PackageInfo, info PackageInfo) []PackageInfo {
	i := sort.Search(len(infos), func(i int) bool { return infos[i].ID >= info.ID })
	if i < len(infos) && infos[i].ID == info.ID {
		infos[i] = info
		return infos
	}
	infos = append(infos, PackageInfo{})
	copy(infos[i+1:], infos[i:])
	infos[i] = info
	return infos
}

func removeInfo(infos []PackageInfo, id string) []PackageInfo {
	i := sort.Search(len(infos), func(i int) bool { return infos[i].ID >= id })
	if i < len(infos) && infos[i].ID == id {
		return append(infos[:i], infos[i+1:]...)
	}
	return infos
}
