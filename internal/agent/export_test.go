package agent

// Expose test helpers from agent_test.go to the external agent_test package.
var (
	NewTestAgent = newTestAgent
	ToolMessages = toolMessages
)
