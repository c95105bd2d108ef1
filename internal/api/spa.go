// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/taibuivan/ucenter/internal/platform/apperr"
	"github.com/taibuivan/ucenter/internal/platform/respond"
)

// spaHandler serves the built SPA from dir. Existing files are served as they
// are; any other path gets index.html so the client router can take over.
// Without a dir every page is a 404.
func spaHandler(dir string) http.Handler {
	if dir == "" {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			respond.Error(writer, request, apperr.NotFound("Page"))
		})
	}

	root := http.Dir(dir)
	files := http.FileServer(root)
	index := filepath.Join(dir, "index.html")

	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		name := path.Clean("/" + request.URL.Path)
		if name != "/" {
			if file, err := root.Open(name); err == nil {
				info, statErr := file.Stat()
				_ = file.Close()
				if statErr == nil && !info.IsDir() {
					files.ServeHTTP(writer, request)
					return
				}
			}
		}

		if _, err := os.Stat(index); err != nil {
			respond.Error(writer, request, apperr.NotFound("Page"))
			return
		}
		http.ServeFile(writer, request, index)
	})
}
