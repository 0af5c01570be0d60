// Package packager assembles validated components into a deployable
// archive: serialized component definitions, a manifest, and any
// auxiliary resource files (scripts, mapping stubs) under a conventional
// src/main/resources layout.
package packager

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"flowstitch/internal/config"
	"flowstitch/internal/logging"
	"flowstitch/internal/types"
)

// Packager writes assembled packages to the configured output directory.
type Packager struct {
	cfg config.PackagingConfig
}

// New creates a Packager from the packaging section of the config.
func New(cfg config.PackagingConfig) *Packager {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "out"
	}
	return &Packager{cfg: cfg}
}

// Assemble builds the in-memory package for targetName and writes the zip
// archive to disk. Resource files synthesized during validation arrive in
// files and are carried into the archive verbatim.
func (p *Packager) Assemble(targetName string, components []types.Component, files map[string][]byte) (*types.Package, error) {
	timer := logging.StartTimer(logging.CategoryPackage, "Assemble")
	defer timer.Stop()

	if files == nil {
		files = map[string][]byte{}
	}

	// Script bodies live in component config until this point; materialize
	// them as resource files and strip the inline copy.
	for i := range components {
		extractResource(&components[i], files, "script_content", "script_file", "src/main/resources/script/")
		delete(components[i].Config, "mapping_content")
	}

	pkg := &types.Package{
		Components: components,
		Manifest:   buildManifest(targetName, components, p.cfg.ComponentVersion),
		Files:      files,
	}

	archivePath, err := p.writeArchive(targetName, pkg)
	if err != nil {
		return nil, fmt.Errorf("writing archive: %w", err)
	}
	pkg.ArchivePath = archivePath

	logging.Get(logging.CategoryPackage).Info("Assembled %q: %d components, %d resource files -> %s",
		targetName, len(components), len(files), archivePath)
	return pkg, nil
}

// extractResource moves an inline content field out of component config
// into the package file map.
func extractResource(comp *types.Component, files map[string][]byte, contentKey, fileKey, prefix string) {
	content, ok := comp.Config[contentKey].(string)
	if !ok || content == "" {
		return
	}
	name, _ := comp.Config[fileKey].(string)
	if name == "" {
		name = comp.ID
	}
	files[prefix+name] = []byte(content)
	delete(comp.Config, contentKey)
}

// buildManifest derives the manifest from the final component list.
func buildManifest(targetName string, components []types.Component, version string) types.Manifest {
	typeSet := map[string]bool{}
	needsReview := 0
	for _, c := range components {
		typeSet[string(c.Type)] = true
		if c.NeedsReview {
			needsReview++
		}
	}
	typeList := make([]string, 0, len(typeSet))
	for t := range typeSet {
		typeList = append(typeList, t)
	}
	sort.Strings(typeList)

	return types.Manifest{
		Name:           targetName,
		GeneratedAt:    time.Now().UTC().Format(time.RFC3339),
		ComponentCount: len(components),
		Types:          typeList,
		Version:        version,
		NeedsReview:    needsReview,
	}
}

// writeArchive serializes the package into <outputDir>/<slug>_<stamp>.zip.
// Entries are written in sorted order so two runs over identical content
// produce byte-comparable archives apart from the manifest timestamp.
func (p *Packager) writeArchive(targetName string, pkg *types.Package) (string, error) {
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return "", err
	}

	stamp := time.Now().UTC().Format("20060102T150405Z")
	archivePath := filepath.Join(p.cfg.OutputDir, fmt.Sprintf("%s_%s.zip", archiveSlug(targetName), stamp))

	f, err := os.Create(archivePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	componentsJSON, err := json.MarshalIndent(pkg.Components, "", "  ")
	if err != nil {
		return "", err
	}
	manifestJSON, err := json.MarshalIndent(pkg.Manifest, "", "  ")
	if err != nil {
		return "", err
	}

	entries := map[string][]byte{
		"components.json": componentsJSON,
		"manifest.json":   manifestJSON,
	}
	for path, content := range pkg.Files {
		entries[path] = content
	}

	paths := make([]string, 0, len(entries))
	for path := range entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		w, err := zw.Create(path)
		if err != nil {
			return "", err
		}
		if _, err := w.Write(entries[path]); err != nil {
			return "", err
		}
	}

	if err := zw.Close(); err != nil {
		return "", err
	}
	return archivePath, nil
}

// archiveSlug normalizes a target name into a file-safe archive prefix.
func archiveSlug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(s)
	if s == "" {
		return "flow"
	}
	return s
}
