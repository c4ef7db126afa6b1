package handlers

import (
	"net/http"
	"strings"

	"github.com/andresuchdata/restock-advisor/internal/drive"
	"github.com/andresuchdata/restock-advisor/internal/ingest"
	"github.com/gin-gonic/gin"
)

type ImportHandler struct {
	importer      *ingest.Importer
	files         drive.FileSource
	syncer        *drive.Syncer
	defaultFolder string
}

// NewImportHandler serves uploads. files and syncer may be nil when Drive is
// not configured.
func NewImportHandler(importer *ingest.Importer, files drive.FileSource, syncer *drive.Syncer, defaultFolder string) *ImportHandler {
	return &ImportHandler{
		importer:      importer,
		files:         files,
		syncer:        syncer,
		defaultFolder: defaultFolder,
	}
}

// UploadSales handles POST /imports/sales with a multipart "file" field.
func (h *ImportHandler) UploadSales(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}

	f, err := header.Open()
	if err != nil {
		badRequest(c, "unable to read uploaded file")
		return
	}
	defer f.Close()

	report, err := h.importer.Import(c.Request.Context(), header.Filename, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ImportHandler) ListDriveFiles(c *gin.Context) {
	if h.files == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "drive import is not configured"})
		return
	}

	files, err := h.files.ListFiles(c.Request.Context(), h.folder(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if files == nil {
		files = []*drive.File{}
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (h *ImportHandler) SyncDrive(c *gin.Context) {
	if h.syncer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "drive import is not configured"})
		return
	}

	results, err := h.syncer.SyncFolder(c.Request.Context(), h.folder(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": results})
}

func (h *ImportHandler) folder(c *gin.Context) string {
	if id := strings.TrimSpace(c.Query("folder_id")); id != "" {
		return id
	}
	return h.defaultFolder
}
