package vectorstore

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/sairam-f/agentic-rag/internal/models"
)

// Persisted layout per collection:
//   <collection>_meta.jsonl  append-only record log, one JSON object per line
//   <collection>_emb.bin     dense N x D float32 matrix, rows matching log order
const (
	matrixMagic   uint32 = 0x56454D42 // "VEMB"
	matrixVersion uint32 = 1

	normEpsilon = 1e-12
)

// record is one line of the record log.
type record struct {
	ID       string          `json:"id"`
	Document string          `json:"document"`
	Metadata models.Metadata `json:"metadata"`
}

// QueryResult holds parallel result sequences in descending-similarity order.
type QueryResult struct {
	Documents []string
	Metadatas []models.Metadata
	Distances []float32
}

// Store is an append-only persistent vector collection with brute-force
// cosine similarity search. It assumes a single writer process; there is no
// file locking.
type Store struct {
	metaPath string
	embPath  string

	ids   []string
	docs  []string
	metas []models.Metadata
	emb   [][]float32
}

// Open loads (or creates) the collection under persistDir. A persisted state
// whose record count disagrees with the embedding matrix is discarded
// entirely rather than partially recovered.
func Open(persistDir, collection string) (*Store, error) {
	if err := os.MkdirAll(persistDir, 0o755); err != nil {
		return nil, fmt.Errorf("create persist dir: %w", err)
	}
	s := &Store{
		metaPath: filepath.Join(persistDir, collection+"_meta.jsonl"),
		embPath:  filepath.Join(persistDir, collection+"_emb.bin"),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	if err := s.loadRecords(); err != nil {
		return err
	}

	emb, err := readMatrix(s.embPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		// A torn matrix write reads as garbage. Same policy as a row-count
		// mismatch: discard the whole collection.
		log.Warn().Err(err).Str("path", s.embPath).Msg("unreadable embedding matrix, discarding collection")
		return s.reset()
	}
	s.emb = emb

	// A log without a matrix, or a row-count mismatch, means a crashed or
	// otherwise torn write. Partial recovery is not attempted.
	if (s.emb == nil && len(s.ids) > 0) || (s.emb != nil && len(s.emb) != len(s.ids)) {
		log.Warn().
			Int("records", len(s.ids)).
			Int("embedding_rows", len(s.emb)).
			Str("collection", s.metaPath).
			Msg("record log and embedding matrix disagree, discarding collection")
		return s.reset()
	}
	return nil
}

func (s *Store) loadRecords() error {
	f, err := os.Open(s.metaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("parse record log: %w", err)
		}
		s.ids = append(s.ids, rec.ID)
		s.docs = append(s.docs, rec.Document)
		s.metas = append(s.metas, rec.Metadata)
	}
	return scanner.Err()
}

func (s *Store) reset() error {
	s.ids, s.docs, s.metas, s.emb = nil, nil, nil, nil
	for _, p := range []string{s.metaPath, s.embPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Add appends a batch of records. The four slices must have equal length;
// deduplication against existing ids is the caller's job. The record log is
// appended first, then the matrix file is rewritten in full. A crash in
// between leaves a mismatch that the next Open discards.
func (s *Store) Add(ids []string, embeddings [][]float32, documents []string, metadatas []models.Metadata) error {
	if len(ids) != len(embeddings) || len(ids) != len(documents) || len(ids) != len(metadatas) {
		return fmt.Errorf("mismatched batch lengths: ids=%d embeddings=%d documents=%d metadatas=%d",
			len(ids), len(embeddings), len(documents), len(metadatas))
	}
	if len(ids) == 0 {
		return nil
	}

	dim := len(embeddings[0])
	if len(s.emb) > 0 {
		dim = len(s.emb[0])
	}
	for _, e := range embeddings {
		if len(e) != dim {
			return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(e), dim)
		}
	}

	f, err := os.OpenFile(s.metaPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open record log: %w", err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range ids {
		if err := enc.Encode(record{ID: ids[i], Document: documents[i], Metadata: metadatas[i]}); err != nil {
			f.Close()
			return fmt.Errorf("append record log: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush record log: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	s.ids = append(s.ids, ids...)
	s.docs = append(s.docs, documents...)
	s.metas = append(s.metas, metadatas...)
	s.emb = append(s.emb, embeddings...)

	return writeMatrix(s.embPath, s.emb)
}

// Query scans every stored embedding and returns the topK most similar
// records by cosine similarity, descending, ties kept in insertion order.
// Distances are 1 - similarity and are not a true metric.
func (s *Store) Query(embedding []float32, topK int) QueryResult {
	if len(s.emb) == 0 {
		return QueryResult{
			Documents: []string{},
			Metadatas: []models.Metadata{},
			Distances: []float32{},
		}
	}

	q := normalize(embedding)
	sims := make([]float64, len(s.emb))
	for i, row := range s.emb {
		sims[i] = dot(normalize(row), q)
	}

	idx := make([]int, len(sims))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return sims[idx[a]] > sims[idx[b]] })

	if topK < 0 {
		topK = 0
	}
	if topK > len(idx) {
		topK = len(idx)
	}
	res := QueryResult{
		Documents: make([]string, 0, topK),
		Metadatas: make([]models.Metadata, 0, topK),
		Distances: make([]float32, 0, topK),
	}
	for _, i := range idx[:topK] {
		res.Documents = append(res.Documents, s.docs[i])
		res.Metadatas = append(res.Metadatas, s.metas[i])
		res.Distances = append(res.Distances, float32(1.0-sims[i]))
	}
	return res
}

// Count returns the number of stored records.
func (s *Store) Count() int { return len(s.ids) }

// IDs returns the stored ids in insertion order.
func (s *Store) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func normalize(v []float32) []float64 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm) + normEpsilon
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x) / norm
	}
	return out
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

type matrixHeader struct {
	Magic   uint32
	Version uint32
	Rows    uint32
	Dim     uint32
}

func writeMatrix(path string, rows [][]float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create embedding matrix: %w", err)
	}
	w := bufio.NewWriter(f)

	dim := 0
	if len(rows) > 0 {
		dim = len(rows[0])
	}
	hdr := matrixHeader{
		Magic:   matrixMagic,
		Version: matrixVersion,
		Rows:    uint32(len(rows)),
		Dim:     uint32(dim),
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		f.Close()
		return err
	}
	for _, row := range rows {
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readMatrix(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var hdr matrixHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read matrix header: %w", err)
	}
	if hdr.Magic != matrixMagic || hdr.Version != matrixVersion {
		return nil, fmt.Errorf("unrecognized matrix file %s (magic %#x version %d)", path, hdr.Magic, hdr.Version)
	}

	rows := make([][]float32, 0, hdr.Rows)
	for i := uint32(0); i < hdr.Rows; i++ {
		row := make([]float32, hdr.Dim)
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("read matrix row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
