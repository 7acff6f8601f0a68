package intake

// NoticeCompletePrevious is surfaced when a navigation request is redirected.
const NoticeCompletePrevious = "complete previous steps first"

// GuardResult is the outcome of a navigation attempt.
type GuardResult struct {
	RequestedStep int    `json:"requestedStep"`
	AllowedStep   int    `json:"allowedStep"`
	Blocked       bool   `json:"blocked"`
	Notice        string `json:"notice,omitempty"`
}

// ClampStep bounds a step number to the wizard range.
func ClampStep(step int) int {
	if step < 1 {
		return 1
	}
	if step > ReviewStep {
		return ReviewStep
	}
	return step
}

// Guard decides which step a navigation request lands on. It is evaluated on
// every attempt; a request past maxUnlocked is redirected to maxUnlocked.
func Guard(requestedStep, maxUnlocked int) GuardResult {
	maxUnlocked = ClampStep(maxUnlocked)
	if requestedStep <= maxUnlocked {
		return GuardResult{RequestedStep: requestedStep, AllowedStep: ClampStep(requestedStep)}
	}
	return GuardResult{
		RequestedStep: requestedStep,
		AllowedStep:   maxUnlocked,
		Blocked:       true,
		Notice:        NoticeCompletePrevious,
	}
}

// FixTarget opens a step named by an HR change request. It bypasses the
// forward guard: HR asked for that section, so it is always reachable.
func FixTarget(step int) GuardResult {
	step = ClampStep(step)
	return GuardResult{RequestedStep: step, AllowedStep: step}
}
