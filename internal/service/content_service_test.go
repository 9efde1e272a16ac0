package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unishare/unishare-api/internal/access"
	"github.com/unishare/unishare-api/internal/models"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

type mockContentRepo struct {
	posts       map[string]models.Post
	createdPost *models.Post
	comment     *models.Comment
	deactivated []string
}

func (m *mockContentRepo) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = "new-post"
	}
	m.createdPost = post
	return nil
}

func (m *mockContentRepo) FindPostByID(ctx context.Context, id string) (*models.Post, error) {
	if p, ok := m.posts[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockContentRepo) ListPostsBySubject(ctx context.Context, subjectID string, page, pageSize int) ([]models.PostDetail, error) {
	var list []models.PostDetail
	for _, p := range m.posts {
		if p.SubjectID == subjectID && p.Active {
			list = append(list, models.PostDetail{Post: p})
		}
	}
	return list, nil
}

func (m *mockContentRepo) CreateComment(ctx context.Context, comment *models.Comment) error {
	comment.ID = "new-comment"
	m.comment = comment
	return nil
}

func (m *mockContentRepo) DeactivatePost(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

func testContentFixtures() *mockContentRepo {
	return &mockContentRepo{posts: map[string]models.Post{
		"p1":   {ID: "p1", SubjectID: "sub1", AuthorID: "u1", Content: "lecture notes", Type: models.PostTypeText, Active: true},
		"dead": {ID: "dead", SubjectID: "sub1", AuthorID: "u1", Active: false},
	}}
}

func TestContentServiceCreatePost(t *testing.T) {
	repo := testContentFixtures()
	svc := NewContentService(repo, &mockGuard{}, validator.New(), zap.NewNop())

	post, err := svc.CreatePost(context.Background(), access.Principal{UserID: "u1", Role: models.RoleStudent},
		CreatePostRequest{SubjectID: "sub1", Content: "summary of week 4"})
	require.NoError(t, err)
	assert.Equal(t, models.PostTypeText, post.Type)
	assert.Equal(t, "u1", post.AuthorID)
}

func TestContentServiceCreatePostNotEnrolled(t *testing.T) {
	repo := testContentFixtures()
	guard := &mockGuard{err: appErrors.ErrNotEnrolled}
	svc := NewContentService(repo, guard, validator.New(), zap.NewNop())

	_, err := svc.CreatePost(context.Background(), access.Principal{UserID: "u9", Role: models.RoleStudent},
		CreatePostRequest{SubjectID: "sub1", Content: "drive-by post"})
	require.ErrorIs(t, err, appErrors.ErrNotEnrolled)
	assert.Nil(t, repo.createdPost)
}

func TestContentServiceListPostsDenied(t *testing.T) {
	repo := testContentFixtures()
	guard := &mockGuard{err: appErrors.ErrNotEnrolled}
	svc := NewContentService(repo, guard, validator.New(), zap.NewNop())

	_, err := svc.ListPosts(context.Background(), access.Principal{UserID: "u9", Role: models.RoleStudent}, "sub1", 1, 20)
	require.ErrorIs(t, err, appErrors.ErrNotEnrolled)
}

func TestContentServiceCreateComment(t *testing.T) {
	repo := testContentFixtures()
	guard := &mockGuard{}
	svc := NewContentService(repo, guard, validator.New(), zap.NewNop())

	comment, err := svc.CreateComment(context.Background(), access.Principal{UserID: "u2", Role: models.RoleStudent},
		CreateCommentRequest{PostID: "p1", Content: "thanks for sharing"})
	require.NoError(t, err)
	assert.Equal(t, "p1", comment.PostID)

	// The gate runs against the post's subject.
	assert.Contains(t, guard.actions, access.ActionWriteSubjectContent)
}

func TestContentServiceCreateCommentOnDeletedPost(t *testing.T) {
	repo := testContentFixtures()
	svc := NewContentService(repo, &mockGuard{}, validator.New(), zap.NewNop())

	_, err := svc.CreateComment(context.Background(), access.Principal{UserID: "u2", Role: models.RoleStudent},
		CreateCommentRequest{PostID: "dead", Content: "hello?"})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestContentServiceDeletePost(t *testing.T) {
	repo := testContentFixtures()
	svc := NewContentService(repo, &mockGuard{}, validator.New(), zap.NewNop())

	err := svc.DeletePost(context.Background(), access.Principal{UserID: "u1", Role: models.RoleStudent}, "p1")
	require.NoError(t, err)
	assert.Contains(t, repo.deactivated, "p1")
}

func TestContentServiceDeletePostNotAuthor(t *testing.T) {
	repo := testContentFixtures()
	svc := NewContentService(repo, &mockGuard{}, validator.New(), zap.NewNop())

	err := svc.DeletePost(context.Background(), access.Principal{UserID: "u2", Role: models.RoleStudent}, "p1")
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	// Admins may remove any post.
	err = svc.DeletePost(context.Background(), access.Principal{UserID: "admin", Role: models.RoleAdmin}, "p1")
	require.NoError(t, err)
}
