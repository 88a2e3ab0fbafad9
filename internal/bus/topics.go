package bus

// Topic names for the in-process event taxonomy. Payload shapes are noted
// per topic; payloads with structure are defined next to their publisher.
const (
	// TopicLessonChanged carries the requested lesson slug (string).
	TopicLessonChanged = "navigation:lessonChanged"
	// TopicPlayPauseToggled carries a bool, true meaning "now playing".
	TopicPlayPauseToggled = "controls:playPauseToggled"
	// TopicResetRequested carries no payload.
	TopicResetRequested = "controls:resetRequested"
	// TopicSpeedChanged carries the playback multiplier (float64).
	TopicSpeedChanged = "controls:speedChanged"

	// TopicSceneReady carries a SceneReady value.
	TopicSceneReady = "scene:ready"
	// TopicScenePlaying, TopicScenePaused and TopicSceneReset carry no payload.
	TopicScenePlaying = "scene:playing"
	TopicScenePaused  = "scene:paused"
	TopicSceneReset   = "scene:reset"

	// TopicEntitySelected carries an entity.Info value.
	TopicEntitySelected = "entity:selected"
)

// SceneReady announces that a scene finished initializing.
type SceneReady struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}
