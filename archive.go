package main

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	ErrEntryNotFound      = errors.New("archive entry not found")
	ErrUnsupportedArchive = errors.New("unsupported archive format")
)

var archiveExts = []string{".zip", ".rar", ".7z"}

func isArchiveExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".zip", ".rar", ".7z":
		return true
	default:
		return false
	}
}

func isSupportedExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".bmp", ".gif":
		return true
	default:
		return false
	}
}

// Locator is a parsed SourceLocator
type Locator struct {
	Path        string // Full locator
	ArchivePath string // Empty for regular files
	EntryPath   string // Empty for regular files
}

// archiveLocator builds the "archive:entry" locator for an archive entry
func archiveLocator(archivePath, entryPath string) string {
	return archivePath + ":" + entryPath
}

// ParseLocator splits "dir/book.zip:page01.png" into archive and entry.
// The split happens right after a known archive extension, so drive letters
// and colons inside plain paths are left alone.
func ParseLocator(locator string) Locator {
	lower := strings.ToLower(locator)
	for _, ext := range archiveExts {
		marker := ext + ":"
		if i := strings.Index(lower, marker); i >= 0 {
			cut := i + len(ext)
			return Locator{
				Path:        locator,
				ArchivePath: locator[:cut],
				EntryPath:   locator[cut+1:],
			}
		}
	}
	return Locator{Path: locator}
}

// readSource returns the raw bytes behind a locator
func readSource(locator string) ([]byte, error) {
	loc := ParseLocator(locator)
	if loc.ArchivePath == "" {
		return os.ReadFile(loc.Path)
	}

	ext := strings.ToLower(filepath.Ext(loc.ArchivePath))
	switch ext {
	case ".zip":
		return readZipEntry(loc.ArchivePath, loc.EntryPath)
	case ".rar":
		return readRarEntry(loc.ArchivePath, loc.EntryPath)
	case ".7z":
		return read7zEntry(loc.ArchivePath, loc.EntryPath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedArchive, ext)
	}
}

// decodeSource reads and decodes the image behind a locator
func decodeSource(locator string) (image.Image, error) {
	data, err := readSource(locator)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", locator, err)
	}
	return img, nil
}

func readZipEntry(archivePath, entryPath string) ([]byte, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != entryPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrEntryNotFound, entryPath, archivePath)
}

func readRarEntry(archivePath, entryPath string) ([]byte, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := rardecode.NewReader(f, "")
	if err != nil {
		return nil, err
	}

	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header.Name == entryPath {
			return io.ReadAll(r)
		}
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrEntryNotFound, entryPath, archivePath)
}

func read7zEntry(archivePath, entryPath string) ([]byte, error) {
	r, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != entryPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrEntryNotFound, entryPath, archivePath)
}

// listArchive returns the supported image entries of an archive in entry order
func listArchive(archivePath string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(archivePath))
	switch ext {
	case ".zip":
		r, err := zip.OpenReader(archivePath)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return imageEntries(r.File, func(f *zip.File) (string, bool) {
			return f.Name, f.FileInfo().IsDir()
		}), nil
	case ".7z":
		r, err := sevenzip.OpenReader(archivePath)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return imageEntries(r.File, func(f *sevenzip.File) (string, bool) {
			return f.Name, f.FileInfo().IsDir()
		}), nil
	case ".rar":
		return listRar(archivePath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedArchive, ext)
	}
}

func imageEntries[T any](files []T, describe func(T) (name string, isDir bool)) []string {
	var names []string
	for _, f := range files {
		name, isDir := describe(f)
		if !isDir && isSupportedExt(name) {
			names = append(names, name)
		}
	}
	return names
}

func listRar(archivePath string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := rardecode.NewReader(f, "")
	if err != nil {
		return nil, err
	}

	var names []string
	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !header.IsDir && isSupportedExt(header.Name) {
			names = append(names, header.Name)
		}
	}
	return names, nil
}

// scanSource collects the images of a directory or archive source. Nested
// archives inside a directory are expanded in place.
func scanSource(source string, sortMethod int) ([]string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, err
	}
	strategy := GetSortStrategy(sortMethod)

	if !info.IsDir() {
		if isArchiveExt(source) {
			return scanArchive(source, strategy)
		}
		if isSupportedExt(source) {
			return []string{source}, nil
		}
		return nil, nil
	}

	var found []ImageDescriptor
	archivePages := make(map[string][]string)
	err = filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch {
		case isSupportedExt(path):
			found = append(found, ImageDescriptor{SourceLocator: path})
		case isArchiveExt(path):
			pages, err := scanArchive(path, strategy)
			if err != nil {
				logWarning("Skipping problematic archive %s: %v", path, err)
				return nil
			}
			// Archive pages stay together, positioned by the archive path
			archivePages[path] = pages
			found = append(found, ImageDescriptor{SourceLocator: path})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var locators []string
	for _, d := range strategy.Sort(found) {
		if pages, ok := archivePages[d.SourceLocator]; ok {
			locators = append(locators, pages...)
			continue
		}
		locators = append(locators, d.SourceLocator)
	}
	return locators, nil
}

func scanArchive(archivePath string, strategy SortStrategy) ([]string, error) {
	entries, err := listArchive(archivePath)
	if err != nil {
		return nil, err
	}
	descs := make([]ImageDescriptor, len(entries))
	for i, e := range entries {
		descs[i] = ImageDescriptor{SourceLocator: archiveLocator(archivePath, e)}
	}
	sorted := strategy.Sort(descs)
	out := make([]string, len(sorted))
	for i, d := range sorted {
		out[i] = d.SourceLocator
	}
	return out, nil
}
