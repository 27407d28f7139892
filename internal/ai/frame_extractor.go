package ai

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Frame is one sampled video frame, JPEG-encoded, delivered in capture order.
type Frame struct {
	Index int
	Data  []byte
}

// FrameSource yields the sampled frames of a video in capture order. An
// error from fn aborts the iteration and is returned as-is.
type FrameSource interface {
	SampleFrames(ctx context.Context, videoPath string, fn func(Frame) error) error
}

// SampleStride converts a reported frame rate into a frame stride so that
// roughly one frame per second of footage gets analyzed. Unknown or broken
// frame rates fall back to analyzing every frame.
func SampleStride(fps float64) int {
	if fps > 0 {
		stride := int(math.Round(fps))
		if stride < 1 {
			return 1
		}
		return stride
	}
	return 1
}

// FrameExtractor samples frames from saved video files using ffmpeg.
type FrameExtractor struct {
	ffmpegPath  string
	ffprobePath string
	tempDir     string
}

func NewFrameExtractor() (*FrameExtractor, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	// ffprobe is optional; without it the stride falls back to 1.
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		log.Printf("[FRAMES] ffprobe not found, frame rate probing disabled")
		ffprobePath = ""
	}

	tempDir := filepath.Join(os.TempDir(), "classlens-frames")
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &FrameExtractor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		tempDir:     tempDir,
	}, nil
}

// SampleFrames decodes videoPath at the stride derived from its reported
// frame rate and feeds each sampled frame to fn in capture order.
func (fe *FrameExtractor) SampleFrames(ctx context.Context, videoPath string, fn func(Frame) error) error {
	if _, err := os.Stat(videoPath); err != nil {
		return fmt.Errorf("video file not accessible: %w", err)
	}

	fps := fe.probeFrameRate(ctx, videoPath)
	stride := SampleStride(fps)
	log.Printf("[FRAMES] Sampling %s at stride %d (reported fps %.2f)", videoPath, stride, fps)

	outDir, err := os.MkdirTemp(fe.tempDir, "video-*")
	if err != nil {
		return fmt.Errorf("failed to create frame directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	pattern := filepath.Join(outDir, "frame_%06d.jpg")
	args := []string{
		"-i", videoPath,
		"-vf", fmt.Sprintf("select='not(mod(n\\,%d))'", stride),
		"-vsync", "vfr",
		"-q:v", "2",
		"-f", "image2",
		pattern,
	}

	cmd := exec.CommandContext(ctx, fe.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed to decode video: %w (%s)", err, lastLine(stderr.String()))
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return fmt.Errorf("failed to read extracted frames: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			log.Printf("[FRAMES] Skipping unreadable frame %s: %v", name, err)
			continue
		}
		if err := fn(Frame{Index: i, Data: data}); err != nil {
			return err
		}
	}

	log.Printf("[FRAMES] Delivered %d sampled frames from %s", len(names), videoPath)
	return nil
}

// probeFrameRate asks ffprobe for the video stream's average frame rate,
// reported as a fraction like "30000/1001". Any failure yields 0.
func (fe *FrameExtractor) probeFrameRate(ctx context.Context, videoPath string) float64 {
	if fe.ffprobePath == "" {
		return 0
	}

	cmd := exec.CommandContext(ctx, fe.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=avg_frame_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		log.Printf("[FRAMES] ffprobe failed for %s: %v", videoPath, err)
		return 0
	}

	return parseFrameRate(strings.TrimSpace(stdout.String()))
}

func parseFrameRate(raw string) float64 {
	if raw == "" {
		return 0
	}
	if num, den, ok := strings.Cut(raw, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		return n / d
	}
	fps, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return fps
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}

func (fe *FrameExtractor) Cleanup() error {
	return os.RemoveAll(fe.tempDir)
}
