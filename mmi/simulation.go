package mmi

// BoolResponse is the result of every operation that only reports success.
type BoolResponse struct {
	Successful bool     `json:"successful"`
	LogData    []string `json:"logData,omitempty"`
}

// Success returns a successful response.
func Success() BoolResponse {
	return BoolResponse{Successful: true}
}

// Failure returns an unsuccessful response carrying the given messages.
func Failure(messages ...string) BoolResponse {
	return BoolResponse{LogData: messages}
}

// Fail marks the response unsuccessful and appends the message.
func (r *BoolResponse) Fail(message string) {
	r.Successful = false
	r.LogData = append(r.LogData, message)
}

// Constraint restricts the motion an MMU may produce.
type Constraint struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Instruction tells an MMU what motion to carry out.
type Instruction struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	MotionType     string            `json:"motionType"`
	AvatarID       string            `json:"avatarId,omitempty"`
	Properties     map[string]string `json:"properties,omitempty"`
	Constraints    []Constraint      `json:"constraints,omitempty"`
	StartCondition string            `json:"startCondition,omitempty"`
	EndCondition   string            `json:"endCondition,omitempty"`
	Action         string            `json:"action,omitempty"`
	Instructions   []Instruction     `json:"instructions,omitempty"`
}

// SimulationEvent is raised by an MMU during a step, e.g. when an instruction finished.
type SimulationEvent struct {
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Reference  string            `json:"reference"`
	Properties map[string]string `json:"properties,omitempty"`
}

// SimulationState is the input of a step.
type SimulationState struct {
	Initial     *AvatarPostureValues `json:"initial,omitempty"`
	Current     *AvatarPostureValues `json:"current,omitempty"`
	Constraints []Constraint         `json:"constraints,omitempty"`
	Events      []SimulationEvent    `json:"events,omitempty"`
}

// SimulationResult is the output of a step. The zero value means the step produced nothing.
type SimulationResult struct {
	Posture     *AvatarPostureValues `json:"posture,omitempty"`
	Constraints []Constraint         `json:"constraints,omitempty"`
	Events      []SimulationEvent    `json:"events,omitempty"`
	LogData     []string             `json:"logData,omitempty"`
}

// IsEmpty returns whether the result carries nothing.
func (r *SimulationResult) IsEmpty() bool {
	return r == nil || (r.Posture == nil && len(r.Constraints) == 0 && len(r.Events) == 0 && len(r.LogData) == 0)
}
