// Package static embeds the browser assets served under /assets/.
package static

import (
	"embed"
	"io/fs"
)

//go:embed js/*
var embedded embed.FS

func EmbeddedFS() fs.FS {
	return embedded
}
