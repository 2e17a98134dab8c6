package factory

import (
	"time"

	"github.com/mcoot/chessapp-go/internal/dependencies/mocks"
	"github.com/mcoot/chessapp-go/internal/services/password"
	"github.com/mcoot/chessapp-go/internal/storage"
	"github.com/mcoot/chessapp-go/internal/storage/memory"
	"github.com/mcoot/chessapp-go/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
}

// NewTestApp creates an App backed by in-memory storage with a mocked clock
func NewTestApp() *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	return NewTestAppWithStorage(memory.New(mockClock), mockClock)
}

// NewTestAppWithStorage wires a test App around an existing store, so a test can
// simulate a restart by building a second App over the same store
func NewTestAppWithStorage(store storage.Storage, mockClock *mocks.MockClock) *TestApp {
	app := newWithDependencies(store, mockClock, password.SHA256Hasher{}, testutil.NopLogger())

	return &TestApp{
		App:       app,
		MockClock: mockClock,
	}
}
