// Package mocks provides test doubles for the zillow client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Search provides a mock function with given fields: ctx, location
func (_m *MockClient) Search(ctx context.Context, location string) (any, error) {
	ret := _m.Called(ctx, location)

	if len(ret) == 0 {
		panic("no return value specified for Search")
	}

	var r0 any
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (any, error)); ok {
		return rf(ctx, location)
	}
	r0 = ret.Get(0)

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, location)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Property provides a mock function with given fields: ctx, zpid
func (_m *MockClient) Property(ctx context.Context, zpid string) (map[string]any, error) {
	ret := _m.Called(ctx, zpid)

	if len(ret) == 0 {
		panic("no return value specified for Property")
	}

	var r0 map[string]any
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (map[string]any, error)); ok {
		return rf(ctx, zpid)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(map[string]any)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, zpid)
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
