package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/threadbbs/services"
	"github.com/cppla/threadbbs/utils"
)

// PostController serves the post listing, post detail and post/comment writes.
type PostController struct {
	lister  *services.PostLister
	users   services.UserLookup
	posts   *services.PostService
	uploads *services.UploadReceiver
	cache   *utils.PageCache
}

// NewPostController creates a new PostController instance.
func NewPostController(lister *services.PostLister, users services.UserLookup, posts *services.PostService, uploads *services.UploadReceiver, cache *utils.PageCache) *PostController {
	return &PostController{lister: lister, users: users, posts: posts, uploads: uploads, cache: cache}
}

// listResponse is a listing page with the search parameters echoed back.
type listResponse struct {
	*services.PostPage
	SearchType string `json:"searchType"`
	SearchText string `json:"searchText"`
}

// ListPosts returns one page of posts, newest first, optionally filtered.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, limit := services.ParsePagination(ctx.Query("page"), ctx.Query("limit"))

	var params services.SearchParams
	_ = ctx.ShouldBindQuery(&params)

	filter, err := services.ComposeSearchFilter(ctx.Request.Context(), params, p.users)
	if err != nil {
		respondError(ctx, err, "posts")
		return
	}

	// only unfiltered pages are cached
	cacheKey := ""
	if filter.MatchesAll() && params.SearchType == "" && params.SearchText == "" {
		cacheKey = p.cache.PageKey(page, limit)
		if b, ok := p.cache.Get(ctx.Request.Context(), cacheKey); ok {
			var cached listResponse
			if err := json.Unmarshal(b, &cached); err == nil && cached.PostPage != nil {
				// views move on every detail read; the rest of the page waits for a write
				if err := p.lister.RefreshViews(ctx.Request.Context(), cached.Items); err != nil {
					respondError(ctx, err, "posts")
					return
				}
				utils.Success(ctx, cached)
				return
			}
		}
	}

	result, err := p.lister.ListPosts(ctx.Request.Context(), filter, page, limit)
	if err != nil {
		respondError(ctx, err, "posts")
		return
	}

	payload := listResponse{PostPage: result, SearchType: params.SearchType, SearchText: params.SearchText}
	if cacheKey != "" {
		p.cache.SetJSON(ctx.Request.Context(), cacheKey, payload)
	}
	utils.Success(ctx, payload)
}

// GetPost returns a single post with its comment trees and counts the view.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	detail, err := p.posts.Detail(ctx.Request.Context(), postID)
	if err != nil {
		respondError(ctx, err, "post")
		return
	}
	utils.Success(ctx, detail)
}

// CreatePost accepts JSON or a multipart form with an optional "attachment" file.
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}

	var in services.PostInput
	if err := ctx.ShouldBind(&in); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	var upload *services.ReceivedFile
	if strings.HasPrefix(ctx.ContentType(), "multipart/form-data") {
		header, err := ctx.FormFile("attachment")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			utils.Error(ctx, http.StatusBadRequest, 40021, "invalid attachment")
			return
		default:
			upload, err = p.uploads.Receive(ctx.Request.Context(), header)
			if err != nil {
				respondError(ctx, err, "attachment")
				return
			}
		}
	}

	post, err := p.posts.Create(ctx.Request.Context(), userID, in, upload)
	if err != nil {
		if derr := p.uploads.Discard(ctx.Request.Context(), upload); derr != nil {
			utils.Sugar.Warnf("discard upload failed stored_name=%s err=%v", upload.StoredName, derr)
		}
		respondError(ctx, err, "post")
		return
	}

	p.cache.Invalidate(ctx.Request.Context())
	utils.Created(ctx, gin.H{"post": post})
}

// UpdatePost allows the author to update their post.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	postID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var in services.PostInput
	if err := ctx.ShouldBind(&in); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
		return
	}
	post, err := p.posts.Update(ctx.Request.Context(), userID, postID, in)
	if err != nil {
		respondError(ctx, err, "post")
		return
	}
	p.cache.Invalidate(ctx.Request.Context())
	utils.Success(ctx, gin.H{"post": post})
}

// DeletePost removes a post; its comments and attachment record are kept.
func (p *PostController) DeletePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	postID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if _, err := p.posts.Delete(ctx.Request.Context(), userID, postID); err != nil {
		respondError(ctx, err, "post")
		return
	}
	p.cache.Invalidate(ctx.Request.Context())
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// DeleteAttachment logically deletes the attachment of the caller's post.
func (p *PostController) DeleteAttachment(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	postID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := p.posts.DeleteAttachment(ctx.Request.Context(), userID, postID); err != nil {
		respondError(ctx, err, "attachment")
		return
	}
	p.cache.Invalidate(ctx.Request.Context())
	utils.Success(ctx, gin.H{"message": "attachment deleted"})
}

// CreateComment adds a comment or a reply to a post.
func (p *PostController) CreateComment(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	postID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var in services.CommentInput
	if err := ctx.ShouldBind(&in); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}
	comment, err := p.posts.CreateComment(ctx.Request.Context(), userID, postID, in)
	if err != nil {
		respondError(ctx, err, "post")
		return
	}
	p.cache.Invalidate(ctx.Request.Context())
	utils.Created(ctx, gin.H{"comment": comment})
}

// DeleteComment allows the comment owner to delete a comment. Replies stay.
func (p *PostController) DeleteComment(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	commentID, ok := pathID(ctx, "commentId")
	if !ok {
		return
	}
	if _, err := p.posts.DeleteComment(ctx.Request.Context(), userID, commentID); err != nil {
		respondError(ctx, err, "comment")
		return
	}
	p.cache.Invalidate(ctx.Request.Context())
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}
