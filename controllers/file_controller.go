package controllers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"webdesk/services"
	"webdesk/utils"
)

type FileController struct {
	fileService  *services.FileService
	quotaService *services.QuotaService
	maxFileSize  int64
}

func NewFileController(fileService *services.FileService, quotaService *services.QuotaService, maxFileSize int64) *FileController {
	return &FileController{
		fileService:  fileService,
		quotaService: quotaService,
		maxFileSize:  maxFileSize,
	}
}

func (fc *FileController) UploadFile(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "No file provided", "multipart field \"file\" is required")
		return
	}

	if fc.maxFileSize > 0 && header.Size > fc.maxFileSize {
		utils.PayloadTooLargeResponse(c, fmt.Sprintf("File exceeds the %d byte limit: %s", fc.maxFileSize, header.Filename))
		return
	}

	src, err := header.Open()
	if err != nil {
		utils.BadRequestResponse(c, "Unable to read uploaded file", nil)
		return
	}
	defer src.Close()

	file, err := fc.fileService.Upload(c.Request.Context(), identity, services.UploadInput{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     src,
	})
	if err != nil {
		respondError(c, err, "Failed to upload file")
		return
	}

	utils.CreatedResponse(c, "File uploaded successfully", file)
}

func (fc *FileController) GetFiles(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	files, err := fc.fileService.ListActive(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err, "Failed to get files")
		return
	}

	utils.SuccessResponse(c, "Files retrieved successfully", files)
}

func (fc *FileController) GetUsage(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	usage, err := fc.quotaService.Usage(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err, "Failed to compute storage usage")
		return
	}

	utils.SuccessResponse(c, "Storage usage retrieved", usage)
}
