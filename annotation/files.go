package annotation

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git": true,
	".hg":  true,
	".svn": true,
}

// FindFiles collects the files under root whose extension is in table.
//
// When root is a file, the result holds only that file, named by its base
// name. When root is a directory it is walked recursively and files are
// named by their path relative to root, using forward slashes. Files are
// returned sorted by name with their content already read; a file that
// cannot be read carries the error in [File.Err].
func FindFiles(ctx context.Context, root string, table ExtensionTable) ([]File, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
	}

	if !info.IsDir() {
		g, ok := table.Lookup(root)
		if !ok {
			slog.Debug(filepath.Base(root)+" is not a known extension, skipping",
				slog.String("file", root))

			return nil, nil
		}

		return []File{readFile(root, filepath.Base(root), g)}, nil
	}

	var files []File

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			rel, _ := filepath.Rel(root, path)
			files = append(files, File{Path: filepath.ToSlash(rel), Err: err})

			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}

			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relative path of %s: %w", path, err)
		}

		g, ok := table.Lookup(path)
		if !ok {
			slog.Debug(d.Name()+" is not a known extension, skipping",
				slog.String("file", rel))

			return nil
		}

		files = append(files, readFile(path, filepath.ToSlash(rel), g))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %w", ErrReadInput, root, err)
	}

	slices.SortFunc(files, func(a, b File) int {
		return strings.Compare(a.Path, b.Path)
	})

	return files, nil
}

func readFile(path, name string, g Grammar) File {
	f := File{Path: name, Grammar: g}

	data, err := os.ReadFile(path)
	if err != nil {
		f.Err = err

		return f
	}

	f.Text = string(data)

	return f
}
