package dataset

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/nvr-ai/go-tumorscope/images"
)

// ImageFile represents an image file of a category directory.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Name is the base name of the image file.
	Name string
}

// ListImageFiles lists the image files of a directory.
//
// Only regular files with a .png, .jpg or .jpeg extension (any case) are
// returned, sorted by name so that loading order does not depend on the file
// system.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: The image files in name order.
// - error: Error if the directory cannot be read.
func ListImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() || !images.IsSupportedFile(entry.Name()) {
			continue
		}
		files = append(files, ImageFile{
			Path: filepath.Join(dir, entry.Name()),
			Name: entry.Name(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}
