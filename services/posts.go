package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/utils"
)

// PostInput is the user-editable part of a post.
type PostInput struct {
	Title   string `json:"title" form:"title" validate:"required,max=255"`
	Content string `json:"content" form:"content" validate:"required"`
}

// CommentInput is a new comment; ParentID set makes it a reply.
type CommentInput struct {
	Content  string `json:"content" form:"content" validate:"required,max=10000"`
	ParentID *uint  `json:"parent_id" form:"parent_id"`
}

// PostDetail is a post with its comment forest.
type PostDetail struct {
	Post     *models.Post                      `json:"post"`
	Comments []*utils.TreeNode[models.Comment] `json:"comment_trees"`
}

// PostService handles post and comment writes and the post detail read.
type PostService struct {
	db          *gorm.DB
	counter     SequenceCounter
	attachments *AttachmentManager
}

// NewPostService creates a PostService.
func NewPostService(db *gorm.DB, counter SequenceCounter, attachments *AttachmentManager) *PostService {
	return &PostService{db: db, counter: counter, attachments: attachments}
}

func cleanPostInput(in PostInput) (PostInput, error) {
	in.Title = strings.TrimSpace(utils.SanitizeText(in.Title))
	in.Content = utils.Sanitize(in.Content)
	if err := validateStruct(in); err != nil {
		return in, err
	}
	return in, nil
}

// Create stores a new post numbered from the post counter. When upload is
// set, its file record is created first and linked to the post afterwards.
func (s *PostService) Create(ctx context.Context, userID uint, in PostInput, upload *ReceivedFile) (*models.Post, error) {
	in, err := cleanPostInput(in)
	if err != nil {
		return nil, err
	}

	numID, err := s.counter.Next(ctx, PostCounterName)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		NumID:   numID,
		UserID:  userID,
		Title:   in.Title,
		Content: in.Content,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var file *models.File
		if upload != nil {
			file = &models.File{
				OriginalName: upload.OriginalName,
				StoredName:   upload.StoredName,
				Size:         upload.Size,
				UploadedBy:   userID,
			}
			if err := tx.Create(file).Error; err != nil {
				return fmt.Errorf("create file record: %w", err)
			}
			post.AttachmentID = &file.ID
		}
		if err := tx.Create(post).Error; err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		if file != nil {
			if err := tx.Model(file).Update("post_id", post.ID).Error; err != nil {
				return fmt.Errorf("link file to post: %w", err)
			}
			post.Attachment = file
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// Detail loads a post for display, bumps its view counter and assembles its
// comments into reply trees in chronological order. A logically deleted
// attachment is not loaded.
func (s *PostService) Detail(ctx context.Context, postID uint) (*PostDetail, error) {
	db := s.db.WithContext(ctx)

	var post models.Post
	err := db.Preload("User").
		Preload("Attachment", "is_deleted = ?", false).
		First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var comments []models.Comment
	if err := db.Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
		return nil, err
	}
	post.Views++

	forest := utils.BuildForest(comments,
		func(c models.Comment) uint { return c.ID },
		func(c models.Comment) (uint, bool) {
			if c.ParentID == nil {
				return 0, false
			}
			return *c.ParentID, true
		})
	return &PostDetail{Post: &post, Comments: forest}, nil
}

// ownedPost loads a post and checks that userID wrote it.
func (s *PostService) ownedPost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, ErrPermission
	}
	return &post, nil
}

// Update changes title and body of a post owned by userID.
func (s *PostService) Update(ctx context.Context, userID, postID uint, in PostInput) (*models.Post, error) {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	in, err = cleanPostInput(in)
	if err != nil {
		return nil, err
	}
	post.Title = in.Title
	post.Content = in.Content
	post.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Model(post).
		Select("title", "content", "updated_at").
		Updates(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes a post owned by userID. Its comments and file record stay.
func (s *PostService) Delete(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Post{}, post.ID).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// DeleteAttachment logically deletes the attachment of a post owned by userID.
func (s *PostService) DeleteAttachment(ctx context.Context, userID, postID uint) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}
	if post.AttachmentID == nil {
		return ErrNotFound
	}
	file, err := s.attachments.ByID(ctx, *post.AttachmentID)
	if err != nil {
		return err
	}
	return s.attachments.RequestDelete(ctx, file)
}

// CreateComment adds a comment to a post; a parent, if given, must be a comment on the same post.
func (s *PostService) CreateComment(ctx context.Context, userID, postID uint, in CommentInput) (*models.Comment, error) {
	in.Content = utils.Sanitize(strings.TrimSpace(in.Content))
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	if in.ParentID != nil {
		var parent models.Comment
		err := db.Select("id", "post_id").First(&parent, *in.ParentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && parent.PostID != postID) {
			return nil, &ValidationError{Fields: map[string]string{"parent_id": "parent comment not found on this post"}}
		}
		if err != nil {
			return nil, err
		}
	}

	comment := &models.Comment{
		PostID:   postID,
		ParentID: in.ParentID,
		UserID:   userID,
		Content:  in.Content,
	}
	if err := db.Create(comment).Error; err != nil {
		return nil, err
	}
	if err := db.Preload("User").First(comment, comment.ID).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes a comment owned by userID. Replies to it are kept and
// later render as roots.
func (s *PostService) DeleteComment(ctx context.Context, userID, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).First(&comment, commentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, ErrPermission
	}
	if err := s.db.WithContext(ctx).Delete(&models.Comment{}, comment.ID).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}
