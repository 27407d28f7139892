// Package vector implements the durable face-embedding index used for
// student identity matching. Vectors are unit-normalized on insertion and
// search, so the inner product of stored and query vectors is their cosine
// similarity.
package vector

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrCorruptIndex      = errors.New("corrupt index file")
)

const (
	indexMagic   = "CLIX"
	indexVersion = uint32(1)

	DefaultDim       = 512
	DefaultThreshold = 0.6
)

type Config struct {
	Dim       int
	Threshold float64
	IndexFile string
	MetaFile  string
}

// Index is a flat inner-product nearest-neighbor index over student face
// embeddings. Every mutation rewrites both the binary index file and the
// metadata file atomically before returning, so a restart always observes
// either the state before an Add or the state after it.
type Index struct {
	mu        sync.RWMutex
	dim       int
	threshold float64
	ids       []int64
	vecs      [][]float32
	meta      map[string]int

	indexFile string
	metaFile  string
}

// New loads the index from cfg.IndexFile/cfg.MetaFile. If either file is
// missing or unreadable the index starts empty and a fresh baseline is
// written; identity matching degrades, the service does not fail.
func New(cfg Config) (*Index, error) {
	if cfg.Dim <= 0 {
		cfg.Dim = DefaultDim
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}

	idx := &Index{
		dim:       cfg.Dim,
		threshold: cfg.Threshold,
		meta:      make(map[string]int),
		indexFile: cfg.IndexFile,
		metaFile:  cfg.MetaFile,
	}

	if err := idx.load(); err != nil {
		log.Printf("[INDEX] Rebuilding empty index: %v", err)
		idx.ids = nil
		idx.vecs = nil
		idx.meta = make(map[string]int)
		if err := idx.save(); err != nil {
			return nil, fmt.Errorf("failed to write index baseline: %w", err)
		}
	}

	log.Printf("[INDEX] Ready with %d vectors (dim=%d, threshold=%.2f)", len(idx.ids), idx.dim, idx.threshold)
	return idx, nil
}

// Add normalizes vec, inserts it under studentID, increments the student's
// embedding count and persists both index artifacts before returning.
func (idx *Index) Add(studentID int64, vec []float32) error {
	if len(vec) != idx.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), idx.dim)
	}

	normalized := normalize(vec)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.ids = append(idx.ids, studentID)
	idx.vecs = append(idx.vecs, normalized)
	key := strconv.FormatInt(studentID, 10)
	idx.meta[key]++

	if err := idx.save(); err != nil {
		// Roll back the in-memory insertion so memory and disk agree.
		idx.ids = idx.ids[:len(idx.ids)-1]
		idx.vecs = idx.vecs[:len(idx.vecs)-1]
		if idx.meta[key]--; idx.meta[key] == 0 {
			delete(idx.meta, key)
		}
		return fmt.Errorf("failed to persist index: %w", err)
	}

	log.Printf("[INDEX] Added embedding for student %d. Total vectors: %d", studentID, len(idx.ids))
	return nil
}

// Search returns the best-matching student and the cosine similarity of the
// closest stored embedding. An empty index yields (0, 0, nil).
func (idx *Index) Search(vec []float32) (int64, float64, error) {
	if len(vec) != idx.dim {
		return 0, 0, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), idx.dim)
	}

	query := normalize(vec)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.ids) == 0 {
		return 0, 0, nil
	}

	best := -1
	bestSim := math.Inf(-1)
	for i, stored := range idx.vecs {
		sim := dot(query, stored)
		if sim > bestSim {
			best = i
			bestSim = sim
		}
	}

	return idx.ids[best], bestSim, nil
}

// Match applies the similarity threshold to a Search result. A similarity
// below the threshold is not an error: it is a valid "unidentified" result,
// reported as ok=false with the similarity preserved.
func (idx *Index) Match(vec []float32) (int64, float64, bool, error) {
	id, sim, err := idx.Search(vec)
	if err != nil {
		return 0, 0, false, err
	}
	if sim < idx.threshold {
		return 0, sim, false, nil
	}
	return id, sim, true, nil
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.ids)
}

// EmbeddingCount returns the number of embeddings stored for a student.
func (idx *Index) EmbeddingCount(studentID int64) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.meta[strconv.FormatInt(studentID, 10)]
}

func (idx *Index) Threshold() float64 {
	return idx.threshold
}

func (idx *Index) Dim() int {
	return idx.dim
}

func (idx *Index) load() error {
	if _, err := os.Stat(idx.indexFile); err != nil {
		return fmt.Errorf("index file missing: %w", err)
	}
	if _, err := os.Stat(idx.metaFile); err != nil {
		return fmt.Errorf("metadata file missing: %w", err)
	}

	f, err := os.Open(idx.indexFile)
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()

	ids, vecs, err := readIndexBlob(f, idx.dim)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}

	metaData, err := os.ReadFile(idx.metaFile)
	if err != nil {
		return fmt.Errorf("failed to read metadata file: %w", err)
	}

	var rawMeta map[string]string
	if err := json.Unmarshal(metaData, &rawMeta); err != nil {
		return fmt.Errorf("%w: bad metadata: %v", ErrCorruptIndex, err)
	}

	meta := make(map[string]int, len(rawMeta))
	for id, count := range rawMeta {
		n, err := strconv.Atoi(count)
		if err != nil {
			return fmt.Errorf("%w: bad count for student %s: %v", ErrCorruptIndex, id, err)
		}
		meta[id] = n
	}

	idx.ids = ids
	idx.vecs = vecs
	idx.meta = meta
	log.Printf("[INDEX] Loaded existing index from %s", idx.indexFile)
	return nil
}

// save writes both artifacts with a temp-file-then-rename so a crash
// mid-write never leaves a partially written or mismatched pair on disk.
// Callers must hold the write lock.
func (idx *Index) save() error {
	if err := os.MkdirAll(filepath.Dir(idx.indexFile), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(idx.metaFile), 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	rawMeta := make(map[string]string, len(idx.meta))
	for id, count := range idx.meta {
		rawMeta[id] = strconv.Itoa(count)
	}
	metaJSON, err := json.Marshal(rawMeta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := atomicWrite(idx.indexFile, func(w io.Writer) error {
		return writeIndexBlob(w, idx.dim, idx.ids, idx.vecs)
	}); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}

	if err := atomicWrite(idx.metaFile, func(w io.Writer) error {
		_, err := w.Write(metaJSON)
		return err
	}); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}

	return nil
}

func atomicWrite(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

func writeIndexBlob(w io.Writer, dim int, ids []int64, vecs [][]float32) error {
	if _, err := w.Write([]byte(indexMagic)); err != nil {
		return err
	}
	header := []uint32{indexVersion, uint32(dim), uint32(len(ids))}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for i, id := range ids {
		if err := binary.Write(w, binary.LittleEndian, id); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, vecs[i]); err != nil {
			return err
		}
	}
	return nil
}

func readIndexBlob(r io.Reader, dim int) ([]int64, [][]float32, error) {
	magic := make([]byte, len(indexMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, nil, fmt.Errorf("short header: %w", err)
	}
	if string(magic) != indexMagic {
		return nil, nil, fmt.Errorf("bad magic %q", magic)
	}

	var version, fileDim, count uint32
	for _, dst := range []*uint32{&version, &fileDim, &count} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return nil, nil, fmt.Errorf("short header: %w", err)
		}
	}
	if version != indexVersion {
		return nil, nil, fmt.Errorf("unsupported version %d", version)
	}
	if int(fileDim) != dim {
		return nil, nil, fmt.Errorf("stored dimension %d does not match configured %d", fileDim, dim)
	}

	// The count field is untrusted until the entries actually parse, so no
	// preallocation from it: a corrupt header must fail on its first short
	// read, not by sizing a huge slice.
	var (
		ids  []int64
		vecs [][]float32
	)
	for i := uint32(0); i < count; i++ {
		var id int64
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, nil, fmt.Errorf("truncated entry %d: %w", i, err)
		}
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return nil, nil, fmt.Errorf("truncated entry %d: %w", i, err)
		}
		ids = append(ids, id)
		vecs = append(vecs, vec)
	}

	return ids, vecs, nil
}

// normalize returns a unit-length copy of vec. A zero vector is returned
// unchanged; its dot product with anything is 0 and it can never clear the
// match threshold.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	out := make([]float32, len(vec))
	if sum == 0 {
		copy(out, vec)
		return out
	}
	norm := math.Sqrt(sum)
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
