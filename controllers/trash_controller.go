package controllers

import (
	"github.com/gin-gonic/gin"

	"webdesk/services"
	"webdesk/utils"
)

type TrashController struct {
	fileService  *services.FileService
	trashService *services.TrashService
}

func NewTrashController(fileService *services.FileService, trashService *services.TrashService) *TrashController {
	return &TrashController{
		fileService:  fileService,
		trashService: trashService,
	}
}

// GetBin lists the caller's recycle bin.
func (tc *TrashController) GetBin(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	items, err := tc.trashService.ListBin(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err, "Failed to get recycle bin")
		return
	}

	utils.SuccessResponse(c, "Recycle bin retrieved", items)
}

// MoveToBin is the regular delete: the file goes to the recycle bin.
func (tc *TrashController) MoveToBin(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	file, err := tc.fileService.Trash(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to move file to recycle bin")
		return
	}

	utils.SuccessResponse(c, "File moved to recycle bin", file)
}

func (tc *TrashController) RestoreFile(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	file, err := tc.trashService.Restore(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to restore file")
		return
	}

	utils.SuccessResponse(c, "File restored successfully", file)
}

func (tc *TrashController) PurgeFile(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := tc.trashService.Purge(c.Request.Context(), identity, c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete file")
		return
	}

	utils.SuccessResponse(c, "File permanently deleted", nil)
}

func (tc *TrashController) EmptyBin(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	result, err := tc.trashService.EmptyBin(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err, "Failed to empty recycle bin")
		return
	}

	utils.SuccessResponse(c, "Recycle bin emptied", result)
}
