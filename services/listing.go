package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/threadbbs/models"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// PostRow is the listing view of one post.
type PostRow struct {
	ID            uint      `json:"id"`
	NumID         int64     `json:"num_id"`
	Title         string    `json:"title"`
	AuthorName    string    `json:"author_name"`
	Views         int64     `json:"views"`
	HasAttachment bool      `json:"has_attachment"`
	CommentCount  int64     `json:"comment_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// PostPage is one page of a listing.
type PostPage struct {
	Items      []PostRow `json:"items"`
	TotalCount int64     `json:"total_count"`
	Page       int       `json:"current_page"`
	Limit      int       `json:"limit"`
	MaxPage    int       `json:"max_page"`
}

// ParsePagination turns raw page/limit parameters into positive integers.
// Non-numeric input falls back to page 1 and limit 10; anything below 1 is clamped to 1.
func ParsePagination(pageStr, limitStr string) (int, int) {
	return parsePositive(pageStr, defaultPage), parsePositive(limitStr, defaultLimit)
}

func parsePositive(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < 1 {
		return 1
	}
	return n
}

// PostLister runs the listing pipeline against the database.
type PostLister struct {
	db *gorm.DB
}

// NewPostLister creates a PostLister.
func NewPostLister(db *gorm.DB) *PostLister {
	return &PostLister{db: db}
}

// ListPosts returns the requested page of posts matching filter, newest first.
//
// A filter that matches nothing returns an empty page with MaxPage 0 without
// touching the database. A page past the end is empty but still reports the
// true MaxPage. Count and page failures are returned, never a partial page.
func (l *PostLister) ListPosts(ctx context.Context, filter Filter, page, limit int) (*PostPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	result := &PostPage{Items: []PostRow{}, Page: page, Limit: limit}
	if filter.MatchesNothing() {
		return result, nil
	}

	db := l.db.WithContext(ctx)

	var total int64
	if err := filter.Apply(db.Model(&models.Post{})).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	result.TotalCount = total
	maxPage := total / int64(limit)
	if total%int64(limit) != 0 {
		maxPage++
	}
	result.MaxPage = int(maxPage)

	// compare pages before multiplying so a huge page cannot wrap the offset
	if int64(page-1) >= maxPage {
		return result, nil
	}
	offset := (page - 1) * limit

	commentCount := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Comment{}).
		Select("COUNT(*)").
		Where("comments.post_id = posts.id")

	query := db.Model(&models.Post{}).
		Select("posts.id, posts.num_id, posts.title, posts.views, posts.created_at, "+
			"COALESCE(users.username, '') AS author_name, "+
			"(?) AS comment_count, "+
			"CASE WHEN files.id IS NOT NULL AND files.is_deleted = ? THEN 1 ELSE 0 END AS has_attachment",
			commentCount, false).
		Joins("LEFT JOIN users ON users.id = posts.user_id").
		Joins("LEFT JOIN files ON files.id = posts.attachment_id")
	query = filter.Apply(query).
		Order("posts.created_at DESC").
		Order("posts.id ASC").
		Offset(offset).
		Limit(limit)

	if err := query.Scan(&result.Items).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return result, nil
}

// RefreshViews overwrites the view counts of rows with the stored values.
func (l *PostLister) RefreshViews(ctx context.Context, rows []PostRow) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]uint, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	var current []struct {
		ID    uint
		Views int64
	}
	if err := l.db.WithContext(ctx).Model(&models.Post{}).
		Select("id, views").
		Where("id IN ?", ids).
		Scan(&current).Error; err != nil {
		return fmt.Errorf("refresh views: %w", err)
	}
	views := make(map[uint]int64, len(current))
	for _, c := range current {
		views[c.ID] = c.Views
	}
	for i := range rows {
		if v, ok := views[rows[i].ID]; ok {
			rows[i].Views = v
		}
	}
	return nil
}
