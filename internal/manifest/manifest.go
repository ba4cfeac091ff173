// Package manifest identifies generated IOC artifacts by content hash so
// that regenerated output can be compared with an earlier run.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/roach88/autosave/internal/iocwriter"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with old hashes.
const (
	DomainArtifact = "autosave/artifact/v1"
	DomainManifest = "autosave/manifest/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Artifact is one generated file.
type Artifact struct {
	Name string `json:"name"`
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// ArtifactHash returns the content hash of a file.
func ArtifactHash(data []byte) string {
	return hashWithDomain(DomainArtifact, data)
}

// Manifest lists the artifacts of one generation run, sorted by name.
type Manifest struct {
	IOC       string     `json:"ioc"`
	Arch      string     `json:"arch"`
	Artifacts []Artifact `json:"artifacts"`
}

// FromOutput hashes every file of out.
func FromOutput(ioc, arch string, out *iocwriter.Output) *Manifest {
	m := &Manifest{IOC: ioc, Arch: arch}
	for _, f := range out.Files {
		m.Artifacts = append(m.Artifacts, Artifact{
			Name: f.Name,
			Hash: ArtifactHash(f.Data),
			Size: int64(len(f.Data)),
		})
	}
	sort.Slice(m.Artifacts, func(i, j int) bool { return m.Artifacts[i].Name < m.Artifacts[j].Name })
	return m
}

// Hash returns the content hash of the manifest's canonical JSON form.
func (m *Manifest) Hash() (string, error) {
	artifacts := make([]any, len(m.Artifacts))
	for i, a := range m.Artifacts {
		artifacts[i] = map[string]any{
			"name": a.Name,
			"hash": a.Hash,
			"size": a.Size,
		}
	}
	canonical, err := MarshalCanonical(map[string]any{
		"ioc":       m.IOC,
		"arch":      m.Arch,
		"artifacts": artifacts,
	})
	if err != nil {
		return "", fmt.Errorf("manifest hash: %w", err)
	}
	return hashWithDomain(DomainManifest, canonical), nil
}

// ChangeKind classifies an artifact difference.
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Removed  ChangeKind = "removed"
	Modified ChangeKind = "modified"
)

// Change is one artifact that differs between two manifests.
type Change struct {
	Name string     `json:"name"`
	Kind ChangeKind `json:"kind"`
}

// Diff lists artifacts that differ from old to cur, sorted by name.
func Diff(old, cur []Artifact) []Change {
	before := make(map[string]string, len(old))
	for _, a := range old {
		before[a.Name] = a.Hash
	}
	var changes []Change
	seen := make(map[string]bool, len(cur))
	for _, a := range cur {
		seen[a.Name] = true
		h, ok := before[a.Name]
		switch {
		case !ok:
			changes = append(changes, Change{Name: a.Name, Kind: Added})
		case h != a.Hash:
			changes = append(changes, Change{Name: a.Name, Kind: Modified})
		}
	}
	for _, a := range old {
		if !seen[a.Name] {
			changes = append(changes, Change{Name: a.Name, Kind: Removed})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Name < changes[j].Name })
	return changes
}
