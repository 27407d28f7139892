package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vdtri/classlens/internal/ai"
	"github.com/vdtri/classlens/internal/database"
	"github.com/vdtri/classlens/internal/models"
	"github.com/vdtri/classlens/internal/pipeline"
	"github.com/vdtri/classlens/internal/vector"
)

// Runs the analysis pipeline synchronously for one video file and prints
// the persisted rows. Useful for reprocessing and for checking a model
// setup without the server.
func main() {
	var videoPath = flag.String("video", "", "Path to the video file to analyze")
	var videoID = flag.String("id", "", "Video ID for the persisted rows (defaults to the filename)")
	flag.Parse()

	if *videoPath == "" {
		log.Fatal("Please provide a video file with -video")
	}
	if *videoID == "" {
		*videoID = filepath.Base(*videoPath)
	}

	dbConfig := database.Config{Type: getEnv("DB_TYPE", "sqlite")}
	if dbConfig.Type == "postgres" {
		dbConfig.Host = getEnv("DB_HOST", "localhost")
		dbConfig.Port = 5432
		dbConfig.User = getEnv("DB_USER", "classlens")
		dbConfig.Password = getEnv("DB_PASSWORD", "classlens_dev")
		dbConfig.Name = getEnv("DB_NAME", "classlens")
	} else {
		dbConfig.SQLitePath = getEnv("DB_PATH", "./classlens.db")
	}

	db, err := database.NewDB(dbConfig)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	indexDir := getEnv("INDEX_DIR", "./data/index")
	dim, err := strconv.Atoi(getEnv("EMBEDDING_DIM", "512"))
	if err != nil {
		log.Fatal("Invalid EMBEDDING_DIM:", err)
	}

	index, err := vector.New(vector.Config{
		Dim:       dim,
		IndexFile: filepath.Join(indexDir, "index.bin"),
		MetaFile:  filepath.Join(indexDir, "metadata.json"),
	})
	if err != nil {
		log.Fatal("Failed to load identity index:", err)
	}

	engine := ai.NewEngine(&ai.Config{
		BehaviorModelURL: os.Getenv("BEHAVIOR_MODEL_URL"),
		FaceModelURL:     os.Getenv("FACE_MODEL_URL"),
		EmotionModelURL:  os.Getenv("EMOTION_MODEL_URL"),
	})

	extractor, err := ai.NewFrameExtractor()
	if err != nil {
		log.Fatal("Failed to initialize frame extractor:", err)
	}
	defer extractor.Cleanup()

	resultRepo := database.NewResultRepository(db)
	svc := pipeline.NewService(extractor, engine, index, resultRepo, pipeline.Config{
		Workers: 1,
		Timeout: 30 * time.Minute,
	})

	fmt.Printf("Analyzing %s as video %s\n", *videoPath, *videoID)

	job, err := svc.ProcessVideoSync(context.Background(), *videoID, *videoPath)
	if err != nil {
		log.Fatal("Analysis failed: ", err)
	}
	fmt.Printf("Job %s finished with status %s\n", job.ID, job.Status)

	results, err := resultRepo.GetByVideoID(context.Background(), *videoID)
	if err != nil {
		log.Fatal("Failed to load results:", err)
	}
	if len(results) == 0 {
		fmt.Println("No students identified in this video.")
		return
	}

	fmt.Println("Persisted rows:")
	for _, res := range results {
		label := res.Behavior
		kind := "behavior"
		if label == models.NotApplicable {
			label = res.Emotion
			kind = "emotion"
		}
		fmt.Printf("  student %d  %-8s %-12s x%.0f\n", res.StudentID, kind, label, res.Duration)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
