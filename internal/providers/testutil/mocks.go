// internal/providers/testutil/mocks.go
package testutil

import (
	"context"
	"net/http"

	"github.com/brandvoice/sov-workflows/internal/providers/common"
)

// MockCostEstimator is a mock implementation of common.CostEstimator
type MockCostEstimator struct {
	CalculateCostFunc func(provider, model string, inputTokens, outputTokens int) float64
}

func (m *MockCostEstimator) CalculateCost(provider, model string, inputTokens, outputTokens int) float64 {
	if m.CalculateCostFunc != nil {
		return m.CalculateCostFunc(provider, model, inputTokens, outputTokens)
	}
	return 0.0015 // Default mock cost
}

// NewMockCostEstimator creates a new mock cost estimator
func NewMockCostEstimator() *MockCostEstimator {
	return &MockCostEstimator{}
}

// MockTextGenerator is a mock provider for testing callers and services
type MockTextGenerator struct {
	GenerateFunc func(ctx context.Context, req *common.GenerateRequest) (*common.GenerateResult, error)
	Name         string

	// Requests records every request passed to Generate, in order.
	Requests []*common.GenerateRequest
}

func (m *MockTextGenerator) Generate(ctx context.Context, req *common.GenerateRequest) (*common.GenerateResult, error) {
	m.Requests = append(m.Requests, req)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return &common.GenerateResult{Text: "mock response", Model: m.GetProviderName()}, nil
}

func (m *MockTextGenerator) GetProviderName() string {
	if m.Name != "" {
		return m.Name
	}
	return "mock"
}

// MockHTTPDoer is a mock HTTP client for testing
type MockHTTPDoer struct {
	DoFunc func(req *http.Request) (*http.Response, error)
}

func (m *MockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	if m.DoFunc != nil {
		return m.DoFunc(req)
	}
	return nil, nil
}
