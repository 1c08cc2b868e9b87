package testutils

import (
	"context"
	"fmt"

	"github.com/cartableai/cartable/pkg/vector"
)

// MockVectorDriver is a test vector driver
type MockVectorDriver struct {
	// Documents accumulates everything passed to Upsert.
	Documents []vector.Document

	// Results is returned by Query, truncated to topK.
	Results []vector.ScoredMatch

	// FailQuery causes Query to return an error.
	FailQuery bool

	// FailUpsertOn causes Upsert to fail for a document with this text.
	FailUpsertOn string

	// QueryCalls counts Query invocations.
	QueryCalls int
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		Documents: make([]vector.Document, 0),
		Results:   make([]vector.ScoredMatch, 0),
	}
}

func (m *MockVectorDriver) Upsert(_ context.Context, docs []vector.Document) error {
	for _, doc := range docs {
		if m.FailUpsertOn != "" && doc.Text == m.FailUpsertOn {
			return fmt.Errorf("mock upsert failure for: %s", doc.Text)
		}
	}
	m.Documents = append(m.Documents, docs...)
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int) ([]vector.ScoredMatch, error) {
	m.QueryCalls++

	if m.FailQuery {
		return nil, fmt.Errorf("%w: mock query failure", vector.ErrConnection)
	}

	if len(m.Results) < topK {
		return m.Results, nil
	}
	return m.Results[:topK], nil
}

func (m *MockVectorDriver) Delete(_ context.Context, _ []string) error {
	return nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}
