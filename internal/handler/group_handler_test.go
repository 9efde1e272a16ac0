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

type fakeGroupSrv struct {
	groups  []models.StudyGroupDetail
	listErr error

	membership *models.Membership
	joinErr    error
	lastJoined string

	created   *models.StudyGroup
	createErr error
	lastReq   service.CreateGroupRequest

	leaveErr error
}

func (f *fakeGroupSrv) Create(_ context.Context, _ access.Principal, req service.CreateGroupRequest) (*models.StudyGroup, error) {
	f.lastReq = req
	return f.created, f.createErr
}

func (f *fakeGroupSrv) ListBySubject(context.Context, access.Principal, string) ([]models.StudyGroupDetail, error) {
	return f.groups, f.listErr
}

func (f *fakeGroupSrv) Join(_ context.Context, _ access.Principal, groupID string) (*models.Membership, error) {
	f.lastJoined = groupID
	return f.membership, f.joinErr
}

func (f *fakeGroupSrv) Leave(context.Context, access.Principal, string) error {
	return f.leaveErr
}

func (f *fakeGroupSrv) AddExternalMember(context.Context, access.Principal, string, string) (*models.Membership, error) {
	return f.membership, f.joinErr
}

func (f *fakeGroupSrv) ListMembers(context.Context, access.Principal, string) ([]models.MembershipDetail, error) {
	return nil, nil
}

func (f *fakeGroupSrv) ListMessages(context.Context, access.Principal, string, int) ([]models.MessageDetail, error) {
	return nil, nil
}

func (f *fakeGroupSrv) SendMessage(context.Context, access.Principal, string, service.SendMessageRequest) (*models.Message, error) {
	return nil, nil
}

func (f *fakeGroupSrv) StartVideoCall(context.Context, access.Principal, string) (*models.VideoCall, error) {
	return nil, nil
}

func (f *fakeGroupSrv) MyGroups(context.Context, string) ([]models.StudyGroupDetail, error) {
	return f.groups, f.listErr
}

func groupTestContext(t *testing.T, method, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	if body != "" {
		c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
	} else {
		c.Request = httptest.NewRequest(method, target, nil)
	}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent})
	return c, rec
}

func TestGroupHandlerListBySubjectNotEnrolledReturnsEmpty(t *testing.T) {
	handler := NewGroupHandler(&fakeGroupSrv{
		listErr: appErrors.Clone(appErrors.ErrNotEnrolled, "not enrolled in subject"),
	})

	c, rec := groupTestContext(t, http.MethodGet, "/subjects/sub-1/groups", "")
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}

	handler.ListBySubject(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data  []models.StudyGroupDetail `json:"data"`
		Error *appErrors.Error          `json:"error"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Nil(t, envelope.Error)
	assert.Empty(t, envelope.Data)
}

func TestGroupHandlerJoinFull(t *testing.T) {
	handler := NewGroupHandler(&fakeGroupSrv{
		joinErr: appErrors.Clone(appErrors.ErrGroupFull, "study group is full"),
	})

	c, rec := groupTestContext(t, http.MethodPost, "/groups/g1/join", "")
	c.Params = gin.Params{{Key: "id", Value: "g1"}}

	handler.Join(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	if assert.NotNil(t, envelope.Error) {
		assert.Equal(t, appErrors.ErrGroupFull.Code, envelope.Error.Code)
	}
}

func TestGroupHandlerJoin(t *testing.T) {
	service := &fakeGroupSrv{
		membership: &models.Membership{ID: "m1", GroupID: "g1", UserID: "u1", Role: models.GroupRoleMember, Active: true},
	}
	handler := NewGroupHandler(service)

	c, rec := groupTestContext(t, http.MethodPost, "/groups/g1/join", "")
	c.Params = gin.Params{{Key: "id", Value: "g1"}}

	handler.Join(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "g1", service.lastJoined)
}

func TestGroupHandlerCreateInvalidPayload(t *testing.T) {
	handler := NewGroupHandler(&fakeGroupSrv{})

	c, rec := groupTestContext(t, http.MethodPost, "/subjects/sub-1/groups", "{bad")
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGroupHandlerCreateUsesPathSubject(t *testing.T) {
	service := &fakeGroupSrv{created: &models.StudyGroup{ID: "g1", SubjectID: "sub-1"}}
	handler := NewGroupHandler(service)

	c, rec := groupTestContext(t, http.MethodPost, "/subjects/sub-1/groups", `{"subject_id":"sub-9","name":"Study crew"}`)
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "sub-1", service.lastReq.SubjectID)
}
