package models

// SceneStatus is the terminal classification of a scene execution
type SceneStatus string

const (
	SceneSuccess SceneStatus = "success"
	ScenePartial SceneStatus = "partial"
	SceneFailure SceneStatus = "failure"
)

// SceneOutcome is computed per execution and never persisted
type SceneOutcome struct {
	SceneID string      `json:"scene_id"`
	Status  SceneStatus `json:"status"`
	Targets []string    `json:"targets"`
	Failed  []string    `json:"failed,omitempty"`
	Message string      `json:"message"`

	// Attempts counts scene writes; zero when the scene could not be resolved
	Attempts int   `json:"attempts"`
	Err      error `json:"-"`
}
