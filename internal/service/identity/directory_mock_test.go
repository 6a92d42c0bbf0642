package identity

import (
	"context"
	"sync"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

var (
	_ userDirectory = &userDirectoryMock{}
	_ chatDirectory = &chatDirectoryMock{}
	_ userRecords   = &userRecordsMock{}
)

type userDirectoryMock struct {
	ActiveUsersFunc func(ctx context.Context) ([]domain.DirectoryUser, error)

	calls struct {
		ActiveUsers []struct{}
	}
	lockActiveUsers sync.RWMutex
}

func (mock *userDirectoryMock) ActiveUsers(ctx context.Context) ([]domain.DirectoryUser, error) {
	if mock.ActiveUsersFunc == nil {
		panic("userDirectoryMock.ActiveUsersFunc: method is nil but userDirectory.ActiveUsers was just called")
	}
	mock.lockActiveUsers.Lock()
	mock.calls.ActiveUsers = append(mock.calls.ActiveUsers, struct{}{})
	mock.lockActiveUsers.Unlock()
	return mock.ActiveUsersFunc(ctx)
}

func (mock *userDirectoryMock) ActiveUsersCalls() []struct{} {
	mock.lockActiveUsers.RLock()
	calls := mock.calls.ActiveUsers
	mock.lockActiveUsers.RUnlock()
	return calls
}

type chatDirectoryMock struct {
	ListMembersFunc   func(ctx context.Context) ([]domain.ChatMember, error)
	LookupByEmailFunc func(ctx context.Context, email string) (string, error)

	calls struct {
		ListMembers   []struct{}
		LookupByEmail []struct {
			Email string
		}
	}
	lockListMembers   sync.RWMutex
	lockLookupByEmail sync.RWMutex
}

func (mock *chatDirectoryMock) ListMembers(ctx context.Context) ([]domain.ChatMember, error) {
	if mock.ListMembersFunc == nil {
		panic("chatDirectoryMock.ListMembersFunc: method is nil but chatDirectory.ListMembers was just called")
	}
	mock.lockListMembers.Lock()
	mock.calls.ListMembers = append(mock.calls.ListMembers, struct{}{})
	mock.lockListMembers.Unlock()
	return mock.ListMembersFunc(ctx)
}

func (mock *chatDirectoryMock) ListMembersCalls() []struct{} {
	mock.lockListMembers.RLock()
	calls := mock.calls.ListMembers
	mock.lockListMembers.RUnlock()
	return calls
}

func (mock *chatDirectoryMock) LookupByEmail(ctx context.Context, email string) (string, error) {
	if mock.LookupByEmailFunc == nil {
		panic("chatDirectoryMock.LookupByEmailFunc: method is nil but chatDirectory.LookupByEmail was just called")
	}
	callInfo := struct{ Email string }{Email: email}
	mock.lockLookupByEmail.Lock()
	mock.calls.LookupByEmail = append(mock.calls.LookupByEmail, callInfo)
	mock.lockLookupByEmail.Unlock()
	return mock.LookupByEmailFunc(ctx, email)
}

func (mock *chatDirectoryMock) LookupByEmailCalls() []struct{ Email string } {
	mock.lockLookupByEmail.RLock()
	calls := mock.calls.LookupByEmail
	mock.lockLookupByEmail.RUnlock()
	return calls
}

type userRecordsMock struct {
	FindOneFunc func(ctx context.Context, entityType string, filters []domain.Filter, fields []string) (domain.Record, error)
	UpdateFunc  func(ctx context.Context, entityType string, id int, fields map[string]any) error

	calls struct {
		FindOne []struct {
			EntityType string
			Filters    []domain.Filter
			Fields     []string
		}
		Update []struct {
			EntityType string
			ID         int
			Fields     map[string]any
		}
	}
	lockFindOne sync.RWMutex
	lockUpdate  sync.RWMutex
}

func (mock *userRecordsMock) FindOne(ctx context.Context, entityType string, filters []domain.Filter, fields []string) (domain.Record, error) {
	if mock.FindOneFunc == nil {
		panic("userRecordsMock.FindOneFunc: method is nil but userRecords.FindOne was just called")
	}
	callInfo := struct {
		EntityType string
		Filters    []domain.Filter
		Fields     []string
	}{EntityType: entityType, Filters: filters, Fields: fields}
	mock.lockFindOne.Lock()
	mock.calls.FindOne = append(mock.calls.FindOne, callInfo)
	mock.lockFindOne.Unlock()
	return mock.FindOneFunc(ctx, entityType, filters, fields)
}

func (mock *userRecordsMock) FindOneCalls() []struct {
	EntityType string
	Filters    []domain.Filter
	Fields     []string
} {
	mock.lockFindOne.RLock()
	calls := mock.calls.FindOne
	mock.lockFindOne.RUnlock()
	return calls
}

func (mock *userRecordsMock) Update(ctx context.Context, entityType string, id int, fields map[string]any) error {
	if mock.UpdateFunc == nil {
		panic("userRecordsMock.UpdateFunc: method is nil but userRecords.Update was just called")
	}
	callInfo := struct {
		EntityType string
		ID         int
		Fields     map[string]any
	}{EntityType: entityType, ID: id, Fields: fields}
	mock.lockUpdate.Lock()
	mock.calls.Update = append(mock.calls.Update, callInfo)
	mock.lockUpdate.Unlock()
	return mock.UpdateFunc(ctx, entityType, id, fields)
}

func (mock *userRecordsMock) UpdateCalls() []struct {
	EntityType string
	ID         int
	Fields     map[string]any
} {
	mock.lockUpdate.RLock()
	calls := mock.calls.Update
	mock.lockUpdate.RUnlock()
	return calls
}
