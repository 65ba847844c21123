package main

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/PitokDf/express-app-useable/internal/api/shared"
)

// fileOnlyFS hides directories so http.FileServer never renders a listing.
type fileOnlyFS struct {
	root http.FileSystem
}

func (f fileOnlyFS) Open(name string) (http.File, error) {
	file, err := f.root.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}

// uploadsHandler serves stored uploads by name from dir.
func uploadsHandler(dir string) http.Handler {
	files := http.FileServer(fileOnlyFS{root: http.Dir(dir)})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			shared.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
