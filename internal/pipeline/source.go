package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// imageExtensions are the file extensions picked up from the source
// directory.
var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".tif": true, ".tiff": true, ".bmp": true,
}

// sourceImage is one candidate input image.
type sourceImage struct {
	path  string
	class string // subdirectory name, or the source directory's own name
	base  string // file name without extension
	ext   string // extension without the dot, lower case
}

// scanSource lists the images directly under dir and one level below it,
// where each subdirectory is a class label. Hidden entries and the skip
// directory (normally the output directory) are ignored. The result is
// sorted by path.
func scanSource(dir, skip string) ([]sourceImage, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &SourceNotFoundError{Path: dir, Reason: "is not accessible", Err: err}
	}
	if !info.IsDir() {
		return nil, &SourceNotFoundError{Path: dir, Reason: "is not a directory"}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &SourceNotFoundError{Path: dir, Reason: "is not readable", Err: err}
	}

	skipAbs, _ := filepath.Abs(skip)
	rootClass := filepath.Base(filepath.Clean(dir))
	if abs, err := filepath.Abs(dir); err == nil {
		rootClass = filepath.Base(abs)
	}

	var images []sourceImage
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if !e.IsDir() {
			if img, ok := asImage(path, rootClass); ok {
				images = append(images, img)
			}
			continue
		}
		if abs, _ := filepath.Abs(path); skip != "" && abs == skipAbs {
			continue
		}
		sub, err := os.ReadDir(path)
		if err != nil {
			continue // unreadable class directories are skipped
		}
		for _, s := range sub {
			if s.IsDir() || strings.HasPrefix(s.Name(), ".") {
				continue
			}
			if img, ok := asImage(filepath.Join(path, s.Name()), e.Name()); ok {
				images = append(images, img)
			}
		}
	}

	if len(images) == 0 {
		return nil, &SourceNotFoundError{Path: dir, Reason: "contains no images"}
	}
	sort.Slice(images, func(i, j int) bool { return images[i].path < images[j].path })
	return images, nil
}

func asImage(path, class string) (sourceImage, bool) {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	if !imageExtensions[strings.ToLower(ext)] {
		return sourceImage{}, false
	}
	return sourceImage{
		path:  path,
		class: class,
		base:  strings.TrimSuffix(name, ext),
		ext:   strings.ToLower(strings.TrimPrefix(ext, ".")),
	}, true
}
