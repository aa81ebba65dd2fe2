package handlers

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/restlab/study-backend/internal/auth"
	"github.com/restlab/study-backend/internal/common"
	"github.com/restlab/study-backend/internal/httpapi/middleware"
	"github.com/restlab/study-backend/internal/logging"
	"github.com/restlab/study-backend/internal/models"
	"gorm.io/gorm"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func userIDFromContext(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

type loginReq struct {
	Email string `json:"email" binding:"required"`
}

// Login finds or creates the participant for the given email and returns a
// token. First login assigns the randomized activity order.
func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailRe.MatchString(email) {
		common.Fail(c, http.StatusBadRequest, 10002, "invalid email address")
		return
	}

	isNew := false
	var user models.User
	err := h.DB.WithContext(c.Request.Context()).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusInternalServerError, 20001, "db error")
			return
		}
		user = models.User{
			Email:      email,
			ModelOrder: strings.Join(h.Catalog.ShuffledIDs(), ","),
		}
		if err := h.DB.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
			common.Fail(c, http.StatusInternalServerError, 20002, "failed to create user")
			return
		}
		isNew = true
		logging.Infof("participant created id=%d email=%s order=%s", user.ID, user.Email, user.ModelOrder)
	}

	token, err := auth.SignJWT(user.ID, auth.RoleParticipant, h.Cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	common.OK(c, gin.H{
		"id":          user.ID,
		"email":       user.Email,
		"model_order": strings.Split(user.ModelOrder, ","),
		"is_new_user": isNew,
		"token":       token,
	})
}

type adminLoginReq struct {
	Password string `json:"password" binding:"required"`
}

// AdminLogin issues an admin token against the configured password hash.
func (h *Handler) AdminLogin(c *gin.Context) {
	var req adminLoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if h.Cfg.AdminPasswordHash == "" {
		common.Fail(c, http.StatusForbidden, 40302, "admin login disabled")
		return
	}
	if !auth.CheckPassword(h.Cfg.AdminPasswordHash, req.Password) {
		common.Fail(c, http.StatusUnauthorized, 40103, "invalid credentials")
		return
	}

	token, err := auth.SignJWT(0, auth.RoleAdmin, h.Cfg.JWTSecret, 12*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}
	common.OK(c, gin.H{"token": token})
}

// Me returns the caller's profile and activity order.
func (h *Handler) Me(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, uid).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40401, "user not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	common.OK(c, gin.H{
		"id":          user.ID,
		"email":       user.Email,
		"model_order": strings.Split(user.ModelOrder, ","),
		"created_at":  user.CreatedAt,
	})
}

// ListModels returns the catalog offered to participants.
func (h *Handler) ListModels(c *gin.Context) {
	common.OK(c, gin.H{"models": h.Catalog.Entries()})
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"status": "ok"})
}
