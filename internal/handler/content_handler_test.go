package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/unishare/unishare-api/internal/access"
	"github.com/unishare/unishare-api/internal/middleware"
	"github.com/unishare/unishare-api/internal/models"
	"github.com/unishare/unishare-api/internal/service"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

type fakeContentSrv struct {
	posts         []models.PostDetail
	listErr       error
	lastPrincipal access.Principal
	lastSubjectID string

	created   *models.Post
	createErr error
	lastReq   service.CreatePostRequest

	deleteErr   error
	lastDeleted string
}

func (f *fakeContentSrv) ListPosts(_ context.Context, principal access.Principal, subjectID string, _, _ int) ([]models.PostDetail, error) {
	f.lastPrincipal = principal
	f.lastSubjectID = subjectID
	return f.posts, f.listErr
}

func (f *fakeContentSrv) CreatePost(_ context.Context, principal access.Principal, req service.CreatePostRequest) (*models.Post, error) {
	f.lastPrincipal = principal
	f.lastReq = req
	return f.created, f.createErr
}

func (f *fakeContentSrv) CreateComment(context.Context, access.Principal, service.CreateCommentRequest) (*models.Comment, error) {
	return nil, nil
}

func (f *fakeContentSrv) DeletePost(_ context.Context, _ access.Principal, postID string) error {
	f.lastDeleted = postID
	return f.deleteErr
}

type contentEnvelope struct {
	Data  []models.PostDetail `json:"data"`
	Error *appErrors.Error    `json:"error"`
}

func TestContentHandlerListPostsRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewContentHandler(&fakeContentSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/subjects/sub-1/posts", nil)
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}

	handler.ListPosts(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContentHandlerListPostsNotEnrolledReturnsEmpty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeContentSrv{listErr: appErrors.Clone(appErrors.ErrNotEnrolled, "not enrolled in subject")}
	handler := NewContentHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/subjects/sub-1/posts", nil)
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent})

	handler.ListPosts(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope contentEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Nil(t, envelope.Error)
	assert.Empty(t, envelope.Data)
}

func TestContentHandlerListPostsSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeContentSrv{
		posts: []models.PostDetail{{Post: models.Post{ID: "p1", SubjectID: "sub-1"}, AuthorName: "Ana Silva"}},
	}
	handler := NewContentHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/subjects/sub-1/posts?page=2&page_size=10", nil)
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent})

	handler.ListPosts(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sub-1", service.lastSubjectID)
	assert.Equal(t, "u1", service.lastPrincipal.UserID)

	var envelope contentEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Len(t, envelope.Data, 1)
	assert.Equal(t, "p1", envelope.Data[0].ID)
}

func TestContentHandlerCreatePostInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewContentHandler(&fakeContentSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/subjects/sub-1/posts", strings.NewReader("{not json"))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent})

	handler.CreatePost(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContentHandlerCreatePostUsesPathSubject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeContentSrv{created: &models.Post{ID: "p1", SubjectID: "sub-1"}}
	handler := NewContentHandler(service)

	body := `{"subject_id":"sub-9","content":"lecture notes attached"}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/subjects/sub-1/posts", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent})

	handler.CreatePost(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "sub-1", service.lastReq.SubjectID)
	assert.Equal(t, "lecture notes attached", service.lastReq.Content)
}

func TestContentHandlerCreatePostForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewContentHandler(&fakeContentSrv{
		createErr: appErrors.Clone(appErrors.ErrNotEnrolled, "not enrolled in subject"),
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/subjects/sub-1/posts", strings.NewReader(`{"content":"hi"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent})

	handler.CreatePost(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestContentHandlerDeletePost(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeContentSrv{}
	handler := NewContentHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/posts/p1", nil)
	c.Params = gin.Params{{Key: "id", Value: "p1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent})

	handler.DeletePost(c)
	// gin buffers the status set by c.Status; the engine normally flushes it
	// after the handler chain, so flush manually when invoking the handler directly.
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "p1", service.lastDeleted)
}
