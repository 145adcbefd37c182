// Package mocks provides test doubles for llm.Client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	"github.com/sells-group/appeal-cli/internal/llm"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// CompleteJSON provides a mock function with given fields: ctx, req
func (_m *MockClient) CompleteJSON(ctx context.Context, req llm.Request) (*llm.Response, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for CompleteJSON")
	}

	if rf, ok := ret.Get(0).(func(context.Context, llm.Request) (*llm.Response, error)); ok {
		return rf(ctx, req)
	}

	var r0 *llm.Response
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*llm.Response)
	}
	return r0, ret.Error(1)
}

// Provider provides a mock function with no fields. It returns "mock"
// unless an expectation is set.
func (_m *MockClient) Provider() string {
	for _, c := range _m.ExpectedCalls {
		if c.Method == "Provider" {
			return _m.Called().String(0)
		}
	}
	return "mock"
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
