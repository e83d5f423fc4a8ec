// File: api/schemas/scripts.go
package schemas

// ScriptStep is one step of a test script: the action the agent must carry
// out and the conditions bracketing it.
type ScriptStep struct {
	Number        int    `json:"number" yaml:"number"`
	Action        string `json:"action" yaml:"action"`
	Precondition  string `json:"precondition,omitempty" yaml:"precondition,omitempty"`
	Expected      string `json:"expected" yaml:"expected"`
	Postcondition string `json:"postcondition,omitempty" yaml:"postcondition,omitempty"`
}

// TestScript is a named, ordered sequence of steps to drive against the
// application under test.
type TestScript struct {
	Name     string       `json:"name" yaml:"name"`
	Platform string       `json:"platform,omitempty" yaml:"platform,omitempty"`
	Grouping string       `json:"grouping,omitempty" yaml:"grouping,omitempty"`
	StartURL string       `json:"start_url,omitempty" yaml:"start_url,omitempty"`
	Steps    []ScriptStep `json:"steps" yaml:"steps"`
}
