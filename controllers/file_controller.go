package controllers

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/threadbbs/services"
	"github.com/cppla/threadbbs/utils"
)

// FileController streams attachment bytes.
type FileController struct {
	attachments *services.AttachmentManager
}

// NewFileController creates a new FileController instance.
func NewFileController(attachments *services.AttachmentManager) *FileController {
	return &FileController{attachments: attachments}
}

// Download serves /files/:storedName/:originalName. Any failure, including a
// record whose bytes vanished, is a bare 404.
func (f *FileController) Download(ctx *gin.Context) {
	dl, err := f.attachments.ResolveDownload(ctx.Request.Context(), ctx.Param("storedName"), ctx.Param("originalName"))
	if err != nil {
		utils.Sugar.Errorw("resolve download failed", "stored_name", ctx.Param("storedName"), "err", err)
		_ = ctx.Error(err)
		ctx.Status(http.StatusNotFound)
		return
	}
	if dl.Status != services.DownloadOK {
		ctx.Status(http.StatusNotFound)
		return
	}
	defer dl.Stream.Close()

	size := dl.Size
	if size <= 0 {
		size = -1
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": dl.DownloadName})
	ctx.DataFromReader(http.StatusOK, size, "application/octet-stream", dl.Stream, map[string]string{
		"Content-Disposition": disposition,
	})
}
