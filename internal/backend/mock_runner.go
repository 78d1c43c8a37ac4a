package backend

import (
	"github.com/stretchr/testify/mock"
)

// MockCommandRunner is a mock implementation of CommandRunner for tests of
// packages that drive the packet-filter tools.
type MockCommandRunner struct {
	mock.Mock
}

// Run records the call. Expectations are set on the command name followed
// by each argument.
func (m *MockCommandRunner) Run(name string, args ...string) ([]byte, error) {
	callArgs := make([]interface{}, 0, len(args)+1)
	callArgs = append(callArgs, name)
	for _, a := range args {
		callArgs = append(callArgs, a)
	}
	result := m.Called(callArgs...)
	if result.Get(0) == nil {
		return nil, result.Error(1)
	}
	return result.Get(0).([]byte), result.Error(1)
}
