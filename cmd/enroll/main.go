package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vdtri/classlens/internal/ai"
	"github.com/vdtri/classlens/internal/database"
	"github.com/vdtri/classlens/internal/enrollment"
	"github.com/vdtri/classlens/internal/vector"
)

// Enrolls a student from a portrait image on disk, without going through
// the HTTP API.
func main() {
	var name = flag.String("name", "", "Student name")
	var imagePath = flag.String("image", "", "Path to a single-subject portrait image")
	flag.Parse()

	if *name == "" || *imagePath == "" {
		log.Fatal("Please provide both -name and -image")
	}

	image, err := os.ReadFile(*imagePath)
	if err != nil {
		log.Fatal("Failed to read image:", err)
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
		FaceModelURL: os.Getenv("FACE_MODEL_URL"),
	})

	svc := enrollment.NewService(database.NewStudentRepository(db), index, engine)

	student, message, err := svc.Enroll(context.Background(), *name, image)
	if err != nil {
		log.Fatal("Enrollment failed: ", err)
	}

	fmt.Printf("%s Student %d (%s) now has %d embedding(s).\n",
		message, student.ID, student.Name, index.EmbeddingCount(student.ID))
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
