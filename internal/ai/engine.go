package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// ErrModelUnavailable reports that an inference capability was never
// successfully initialized. Callers degrade the specific feature rather
// than failing the whole process.
var ErrModelUnavailable = errors.New("model unavailable")

type BehaviorDetector interface {
	DetectBehaviors(ctx context.Context, frame []byte) ([]BehaviorDetection, error)
}

type FaceAnalyzer interface {
	DetectFaces(ctx context.Context, image []byte) ([]Face, error)
}

type EmotionClassifier interface {
	ClassifyEmotion(ctx context.Context, faceImage []byte) (string, error)
}

// Engine holds the three inference capabilities. Each is independently
// optional: a missing one carries the reason it is unavailable, surfaced as
// a wrapped ErrModelUnavailable when requested.
type Engine struct {
	behavior       BehaviorDetector
	behaviorReason string
	face           FaceAnalyzer
	faceReason     string
	emotion        EmotionClassifier
	emotionReason  string
}

// NewEngine builds clients for every capability with a configured endpoint
// and records a reason for every one without. It never fails: an engine
// with zero capabilities is valid, it just cannot do anything.
func NewEngine(config *Config) *Engine {
	engine := &Engine{}

	if config.BehaviorModelURL != "" {
		engine.behavior = NewBehaviorClient(config.BehaviorModelURL)
		log.Printf("Behavior detector enabled (%s)", config.BehaviorModelURL)
	} else {
		engine.behaviorReason = "BEHAVIOR_MODEL_URL not configured"
		log.Printf("Behavior detector disabled (no endpoint)")
	}

	if config.FaceModelURL != "" {
		engine.face = NewFaceClient(config.FaceModelURL)
		log.Printf("Face analyzer enabled (%s)", config.FaceModelURL)
	} else {
		engine.faceReason = "FACE_MODEL_URL not configured"
		log.Printf("Face analyzer disabled (no endpoint)")
	}

	if config.EmotionModelURL != "" {
		engine.emotion = NewEmotionClient(config.EmotionModelURL)
		log.Printf("Emotion classifier enabled (%s)", config.EmotionModelURL)
	} else {
		engine.emotionReason = "EMOTION_MODEL_URL not configured"
		log.Printf("Emotion classifier disabled (no endpoint)")
	}

	return engine
}

// NewEngineWith wires explicit capability implementations. Nil capabilities
// are recorded as unavailable; used by tests and by tools that only need a
// subset.
func NewEngineWith(behavior BehaviorDetector, face FaceAnalyzer, emotion EmotionClassifier) *Engine {
	engine := &Engine{behavior: behavior, face: face, emotion: emotion}
	if behavior == nil {
		engine.behaviorReason = "not wired"
	}
	if face == nil {
		engine.faceReason = "not wired"
	}
	if emotion == nil {
		engine.emotionReason = "not wired"
	}
	return engine
}

func (e *Engine) BehaviorDetector() (BehaviorDetector, error) {
	if e.behavior == nil {
		return nil, fmt.Errorf("%w: behavior detector: %s", ErrModelUnavailable, e.behaviorReason)
	}
	return e.behavior, nil
}

func (e *Engine) FaceAnalyzer() (FaceAnalyzer, error) {
	if e.face == nil {
		return nil, fmt.Errorf("%w: face analyzer: %s", ErrModelUnavailable, e.faceReason)
	}
	return e.face, nil
}

func (e *Engine) EmotionClassifier() (EmotionClassifier, error) {
	if e.emotion == nil {
		return nil, fmt.Errorf("%w: emotion classifier: %s", ErrModelUnavailable, e.emotionReason)
	}
	return e.emotion, nil
}
