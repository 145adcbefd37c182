// Package mocks provides test doubles for the pdfco client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	"github.com/sells-group/appeal-cli/pkg/pdfco"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// StartTextConversion provides a mock function with given fields: ctx, signedURL
func (_m *MockClient) StartTextConversion(ctx context.Context, signedURL string) (*pdfco.JobResponse, error) {
	ret := _m.Called(ctx, signedURL)

	if len(ret) == 0 {
		panic("no return value specified for StartTextConversion")
	}

	var r0 *pdfco.JobResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*pdfco.JobResponse)
	}
	return r0, ret.Error(1)
}

// CheckJob provides a mock function with given fields: ctx, jobID
func (_m *MockClient) CheckJob(ctx context.Context, jobID string) (*pdfco.JobResponse, error) {
	ret := _m.Called(ctx, jobID)

	if len(ret) == 0 {
		panic("no return value specified for CheckJob")
	}

	var r0 *pdfco.JobResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*pdfco.JobResponse)
	}
	return r0, ret.Error(1)
}

// Download provides a mock function with given fields: ctx, url
func (_m *MockClient) Download(ctx context.Context, url string) (string, error) {
	ret := _m.Called(ctx, url)

	if len(ret) == 0 {
		panic("no return value specified for Download")
	}

	return ret.String(0), ret.Error(1)
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
