package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// The inference models run in a sidecar process reached over HTTP: each
// capability POSTs raw JPEG bytes and gets JSON back. Model internals are
// opaque here; only the wire contract matters.

const sidecarTimeout = 30 * time.Second

type sidecarClient struct {
	endpoint   string
	httpClient *http.Client
}

func newSidecarClient(endpoint string) sidecarClient {
	return sidecarClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: sidecarTimeout,
		},
	}
}

func (c sidecarClient) postImage(ctx context.Context, image []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(image))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("inference endpoint returned %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode inference response: %w", err)
	}
	return nil
}

type BehaviorClient struct {
	sidecarClient
}

func NewBehaviorClient(endpoint string) *BehaviorClient {
	return &BehaviorClient{newSidecarClient(endpoint)}
}

type behaviorResponse struct {
	Detections []BehaviorDetection `json:"detections"`
}

func (c *BehaviorClient) DetectBehaviors(ctx context.Context, frame []byte) ([]BehaviorDetection, error) {
	var resp behaviorResponse
	if err := c.postImage(ctx, frame, &resp); err != nil {
		return nil, err
	}
	return resp.Detections, nil
}

type FaceClient struct {
	sidecarClient
}

func NewFaceClient(endpoint string) *FaceClient {
	return &FaceClient{newSidecarClient(endpoint)}
}

type faceResponse struct {
	Faces []Face `json:"faces"`
}

func (c *FaceClient) DetectFaces(ctx context.Context, image []byte) ([]Face, error) {
	var resp faceResponse
	if err := c.postImage(ctx, image, &resp); err != nil {
		return nil, err
	}
	return resp.Faces, nil
}

type EmotionClient struct {
	sidecarClient
}

func NewEmotionClient(endpoint string) *EmotionClient {
	return &EmotionClient{newSidecarClient(endpoint)}
}

type emotionResponse struct {
	Label string `json:"label"`
}

func (c *EmotionClient) ClassifyEmotion(ctx context.Context, faceImage []byte) (string, error) {
	var resp emotionResponse
	if err := c.postImage(ctx, faceImage, &resp); err != nil {
		return "", err
	}
	return resp.Label, nil
}
