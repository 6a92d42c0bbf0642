package guard

import (
	"context"
	"sync"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

var _ entityFetcher = &entityFetcherMock{}

type entityFetcherMock struct {
	FindOneFunc func(ctx context.Context, entityType string, filters []domain.Filter, fields []string) (domain.Record, error)

	calls struct {
		FindOne []struct {
			EntityType string
			Filters    []domain.Filter
			Fields     []string
		}
	}
	lockFindOne sync.RWMutex
}

func (mock *entityFetcherMock) FindOne(ctx context.Context, entityType string, filters []domain.Filter, fields []string) (domain.Record, error) {
	if mock.FindOneFunc == nil {
		panic("entityFetcherMock.FindOneFunc: method is nil but entityFetcher.FindOne was just called")
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

func (mock *entityFetcherMock) FindOneCalls() []struct {
	EntityType string
	Filters    []domain.Filter
	Fields     []string
} {
	mock.lockFindOne.RLock()
	calls := mock.calls.FindOne
	mock.lockFindOne.RUnlock()
	return calls
}
