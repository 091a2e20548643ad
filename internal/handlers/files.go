package handlers

import (
	"os"
	"path"

	"github.com/gin-gonic/gin"

	"mammoscreen-server/internal/storage"
	"mammoscreen-server/internal/utils"
)

// FileHandler serves stored view images and thumbnails.
type FileHandler struct {
	Store *storage.FileStore
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(store *storage.FileStore) *FileHandler {
	return &FileHandler{Store: store}
}

// ServeImage serves a stored image addressed by its date path and filename.
func (h *FileHandler) ServeImage(c *gin.Context) {
	h.serve(c, "images")
}

// ServeThumbnail serves a stored thumbnail addressed by its date path and filename.
func (h *FileHandler) ServeThumbnail(c *gin.Context) {
	h.serve(c, "thumbnails")
}

func (h *FileHandler) serve(c *gin.Context, kind string) {
	rel := path.Join(kind,
		c.Param("year"), c.Param("month"), c.Param("day"), c.Param("filename"))

	full, err := h.Store.Resolve(rel)
	if err != nil {
		utils.NotFound(c, "File not found")
		return
	}
	if _, err := os.Stat(full); err != nil {
		utils.NotFound(c, "File not found")
		return
	}
	c.File(full)
}
