package mcpserver

// RunInput is the input schema for the taut_run tool.
type RunInput struct {
	UnitID string         `json:"unit_id" jsonschema:"ID or pool member name of the unit to run"`
	Input  map[string]any `json:"input,omitempty" jsonschema:"Initial context variables for the run"`
}

// RunOutput is the output schema for the taut_run tool.
type RunOutput struct {
	Result  any      `json:"result" jsonschema:"Value of the last executed node"`
	Success bool     `json:"success" jsonschema:"True when no node failed"`
	Errors  []string `json:"errors,omitempty" jsonschema:"Per-node failure messages"`
	Steps   int      `json:"steps" jsonschema:"Number of executed nodes"`
}

// RecallInput is the input schema for the taut_recall tool.
type RecallInput struct {
	Situation string `json:"situation" jsonschema:"Current situation or query the memories should be relevant to"`
}

// RecalledMemory is one activated memory in a recall result.
type RecalledMemory struct {
	ID         string  `json:"id" jsonschema:"Memory id"`
	Intent     string  `json:"intent" jsonschema:"What the memory is about"`
	Lesson     string  `json:"lesson,omitempty" jsonschema:"The stored lesson, if any"`
	Activation float64 `json:"activation" jsonschema:"Activation level for this situation (0.0-1.0)"`
	Tension    float64 `json:"tension" jsonschema:"Current tension of the memory (0.0-1.0)"`
}

// RecallOutput is the output schema for the taut_recall tool.
type RecallOutput struct {
	Memories []RecalledMemory `json:"memories" jsonschema:"Activated memories, highest activation first"`
}

// LearnInput is the input schema for the taut_learn tool.
type LearnInput struct {
	Task    string `json:"task" jsonschema:"What was attempted"`
	Result  string `json:"result" jsonschema:"What happened"`
	Success bool   `json:"success" jsonschema:"Whether the attempt worked"`
}

// LearnOutput is the output schema for the taut_learn tool.
type LearnOutput struct {
	Created bool   `json:"created" jsonschema:"Whether a memory was created"`
	ID      string `json:"id,omitempty" jsonschema:"Id of the new memory"`
	Intent  string `json:"intent,omitempty" jsonschema:"Intent of the new memory"`
}

// FeedbackInput is the input schema for the taut_feedback tool.
type FeedbackInput struct {
	MemoryIDs []string `json:"memory_ids" jsonschema:"Ids of the memories that were used"`
	Success   bool     `json:"success" jsonschema:"Whether the outcome was successful"`
}

// FeedbackOutput is the output schema for the taut_feedback tool.
type FeedbackOutput struct {
	Updated int      `json:"updated" jsonschema:"How many memories were reinforced or weakened"`
	Missing []string `json:"missing,omitempty" jsonschema:"Ids that were not found"`
}

// PoolsInput is the input schema for the taut_pools tool.
type PoolsInput struct {
	Pool string `json:"pool,omitempty" jsonschema:"Restrict the listing to one pool"`
}

// PoolMember is one pool entry in a taut_pools result.
type PoolMember struct {
	Pool        string  `json:"pool" jsonschema:"Pool name"`
	Name        string  `json:"name" jsonschema:"Member name"`
	Intent      string  `json:"intent" jsonschema:"The member's intent"`
	Tension     float64 `json:"tension" jsonschema:"Current tension (0.0-1.0)"`
	SuccessRate float64 `json:"success_rate" jsonschema:"Tracked success rate (0.5 when untried)"`
	Runs        int     `json:"runs" jsonschema:"Tracked run count"`
}

// PoolsOutput is the output schema for the taut_pools tool.
type PoolsOutput struct {
	Members []PoolMember `json:"members" jsonschema:"Pool members with their metrics"`
}
