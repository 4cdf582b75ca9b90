package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/utils"
)

// StatsController provides forum statistics.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate counts. A failing count is reported as 0 instead
// of failing the whole endpoint.
func (s *StatsController) GetStats(ctx *gin.Context) {
	db := s.db.WithContext(ctx.Request.Context())
	count := func(q *gorm.DB, name string) int64 {
		var n int64
		if err := q.Count(&n).Error; err != nil {
			utils.Sugar.Warnf("stats count %s failed: %v", name, err)
			return 0
		}
		return n
	}

	utils.Success(ctx, gin.H{
		"user_count":       count(db.Model(&models.User{}), "users"),
		"post_count":       count(db.Model(&models.Post{}), "posts"),
		"comment_count":    count(db.Model(&models.Comment{}), "comments"),
		"attachment_count": count(db.Model(&models.File{}).Where("is_deleted = ?", false), "files"),
	})
}

// GetPostStats returns views and comment count for a given post id.
func (s *StatsController) GetPostStats(ctx *gin.Context) {
	postID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	db := s.db.WithContext(ctx.Request.Context())

	var views []int64
	if err := db.Model(&models.Post{}).Where("id = ?", postID).Pluck("views", &views).Error; err != nil {
		respondError(ctx, err, "post")
		return
	}
	if len(views) == 0 {
		utils.Error(ctx, 404, 40400, "post not found")
		return
	}

	var comments int64
	if err := db.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&comments).Error; err != nil {
		respondError(ctx, err, "post")
		return
	}

	utils.Success(ctx, gin.H{"views": views[0], "comments_count": comments})
}
