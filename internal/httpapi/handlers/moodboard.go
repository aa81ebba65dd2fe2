package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/restlab/study-backend/internal/common"
	"github.com/restlab/study-backend/internal/moodboard"
	"gorm.io/gorm"
)

// UploadMoodboardImage accepts one multipart file under the "image" field.
func (h *Handler) UploadMoodboardImage(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10013, "image file required")
		return
	}

	f, err := fh.Open()
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10014, "cannot read upload")
		return
	}
	defer f.Close()

	img, err := h.MoodboardSvc.Upload(c.Request.Context(), uid, fh.Filename, fh.Size, f)
	if err != nil {
		switch {
		case errors.Is(err, moodboard.ErrBadExtension):
			common.Fail(c, http.StatusBadRequest, 10015, "file type not allowed")
		case errors.Is(err, moodboard.ErrTooLarge):
			common.Fail(c, http.StatusBadRequest, 10016, "file exceeds 10MB limit")
		default:
			common.Fail(c, http.StatusInternalServerError, 50007, "failed to store image")
		}
		return
	}
	common.OK(c, gin.H{"image": img})
}

func (h *Handler) ListMoodboardImages(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	imgs, err := h.MoodboardSvc.List(c.Request.Context(), uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.OK(c, gin.H{"images": imgs})
}

func (h *Handler) ServeMoodboardImage(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	id, ok := idParam(c, "image_id")
	if !ok {
		return
	}

	path, err := h.MoodboardSvc.PathForUser(c.Request.Context(), uid, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40403, "image not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	c.File(path)
}

func (h *Handler) DeleteMoodboardImage(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	id, ok := idParam(c, "image_id")
	if !ok {
		return
	}

	if err := h.MoodboardSvc.Delete(c.Request.Context(), uid, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40403, "image not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.OK(c, gin.H{"deleted": id})
}

func (h *Handler) ClearMoodboard(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	n, err := h.MoodboardSvc.Clear(c.Request.Context(), uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.OK(c, gin.H{"removed": n})
}
