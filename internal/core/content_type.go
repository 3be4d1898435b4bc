package core

import (
	"mime"
	"path"
	"strings"
)

var imageTypes = map[string]string{
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

func contentType(uri string) string {
	ext := strings.ToLower(path.Ext(uri))
	if t, ok := imageTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
