package gateway

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

var hlsContentTypes = map[string]string{
	".m3u8": "application/vnd.apple.mpegurl",
	".ts":   "video/mp2t",
	".m4s":  "video/iso.segment",
	".mp4":  "video/mp4",
}

// artifactFS serves regular files from the artifact tree. Directories and
// any path with a dot-prefixed segment (the render staging area) are
// reported as missing.
type artifactFS struct {
	root http.FileSystem
}

func (a artifactFS) Open(name string) (http.File, error) {
	for _, segment := range strings.Split(strings.Trim(name, "/"), "/") {
		if segment == "" || strings.HasPrefix(segment, ".") {
			return nil, fs.ErrNotExist
		}
	}
	file, err := a.root.Open(name)
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

func (s *Server) artifactHandler() http.Handler {
	files := http.FileServer(artifactFS{root: http.Dir(s.cfg.Paths.ArtifactDir)})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ext := path.Ext(r.URL.Path)
		if contentType, ok := hlsContentTypes[ext]; ok {
			w.Header().Set("Content-Type", contentType)
		}
		if ext == ".m3u8" {
			// Playlists are rewritten in place per host.
			w.Header().Set("Cache-Control", "no-cache")
		}
		files.ServeHTTP(w, r)
	})
}
