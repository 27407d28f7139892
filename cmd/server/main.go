package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vdtri/classlens/internal/ai"
	"github.com/vdtri/classlens/internal/api"
	"github.com/vdtri/classlens/internal/database"
	"github.com/vdtri/classlens/internal/enrollment"
	"github.com/vdtri/classlens/internal/pipeline"
	"github.com/vdtri/classlens/internal/storage"
	"github.com/vdtri/classlens/internal/vector"
)

func main() {
	port := getEnv("PORT", "8080")
	uploadDir := getEnv("UPLOAD_DIR", "./data/uploads")
	indexDir := getEnv("INDEX_DIR", "./data/index")

	maxSize, err := strconv.ParseInt(getEnv("MAX_UPLOAD_SIZE", "524288000"), 10, 64)
	if err != nil {
		log.Fatal("Invalid MAX_UPLOAD_SIZE:", err)
	}

	// Database configuration
	dbConfig := database.Config{Type: getEnv("DB_TYPE", "sqlite")}
	if dbConfig.Type == "postgres" {
		dbConfig.Host = getEnv("DB_HOST", "localhost")
		dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
		if err != nil {
			log.Fatal("Invalid DB_PORT:", err)
		}
		dbConfig.Port = dbPort
		dbConfig.User = getEnv("DB_USER", "classlens")
		dbConfig.Password = getEnv("DB_PASSWORD", "classlens_dev")
		dbConfig.Name = getEnv("DB_NAME", "classlens")
	} else {
		dbConfig.SQLitePath = getEnv("DB_PATH", "./classlens.db")
	}

	localStorage, err := storage.NewLocalStorage(uploadDir)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}

	db, err := database.NewDB(dbConfig)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	dim, err := strconv.Atoi(getEnv("EMBEDDING_DIM", "512"))
	if err != nil {
		log.Fatal("Invalid EMBEDDING_DIM:", err)
	}
	threshold, err := strconv.ParseFloat(getEnv("MATCH_THRESHOLD", "0.6"), 64)
	if err != nil {
		log.Fatal("Invalid MATCH_THRESHOLD:", err)
	}

	index, err := vector.New(vector.Config{
		Dim:       dim,
		Threshold: threshold,
		IndexFile: filepath.Join(indexDir, "index.bin"),
		MetaFile:  filepath.Join(indexDir, "metadata.json"),
	})
	if err != nil {
		log.Fatal("Failed to initialize identity index:", err)
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

	workers, err := strconv.Atoi(getEnv("WORKER_COUNT", "2"))
	if err != nil {
		log.Fatal("Invalid WORKER_COUNT:", err)
	}
	timeout, err := time.ParseDuration(getEnv("PIPELINE_TIMEOUT", "30m"))
	if err != nil {
		log.Fatal("Invalid PIPELINE_TIMEOUT:", err)
	}

	studentRepo := database.NewStudentRepository(db)
	videoRepo := database.NewVideoRepository(db)
	resultRepo := database.NewResultRepository(db)

	pipelineService := pipeline.NewService(extractor, engine, index, resultRepo, pipeline.Config{
		Workers: workers,
		Timeout: timeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := pipelineService.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("Pipeline workers stopped: %v", err)
		}
	}()

	app := &api.App{
		Storage:       localStorage,
		VideoRepo:     videoRepo,
		StudentRepo:   studentRepo,
		ResultRepo:    resultRepo,
		Enrollment:    enrollment.NewService(studentRepo, index, engine),
		Pipeline:      pipelineService,
		MaxUploadSize: maxSize,
	}

	router := api.NewRouter(app)

	log.Printf("Server starting on port %s", port)
	log.Printf("Upload directory: %s", uploadDir)
	log.Printf("Identity index: %s (dim=%d, threshold=%.2f, %d vectors)", indexDir, index.Dim(), index.Threshold(), index.Len())
	log.Printf("Database type: %s", dbConfig.Type)
	log.Printf("Pipeline workers: %d, per-video timeout: %s", workers, timeout)

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal(err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
