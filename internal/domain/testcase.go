package domain

// TestCase represents a test case for code execution.
// InputData and ExpectedOutput are JSON text in signature mode and raw text in legacy mode.
type TestCase struct {
	ID             string `json:"id"`
	InputData      string `json:"input_data"`
	ExpectedOutput string `json:"expected_output"`
}
