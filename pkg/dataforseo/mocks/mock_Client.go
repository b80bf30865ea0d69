// Package mocks provides test doubles for the dataforseo client.
package mocks

import (
	"context"

	dataforseo "github.com/sells-group/competitor-cli/pkg/dataforseo"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// OrganicSearch provides a mock function with given fields: ctx, req
func (_m *MockClient) OrganicSearch(ctx context.Context, req dataforseo.OrganicRequest) (*dataforseo.OrganicResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for OrganicSearch")
	}

	var r0 *dataforseo.OrganicResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, dataforseo.OrganicRequest) (*dataforseo.OrganicResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, dataforseo.OrganicRequest) *dataforseo.OrganicResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*dataforseo.OrganicResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, dataforseo.OrganicRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
