package pattern

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	sqlite_vec.Auto()
}

// vecIndex manages the sqlite-vec vector index for fast KNN queries over
// pattern and alias embeddings. If the extension fails to load, all
// operations are no-ops and the store falls back to brute-force cosine
// similarity.
//
// vec0 requires integer rowids, so a mapping table carries two text columns:
// ref_id identifies the embedded row itself (a pattern id, or "alias:<id>"),
// pattern_id identifies the pattern a hit resolves to.
type vecIndex struct {
	db         *sql.DB
	dimensions int
	available  bool
}

type vecResult struct {
	PatternID string
	Distance  float64
}

func newVecIndex(db *sql.DB, dimensions int) *vecIndex {
	vi := &vecIndex{db: db, dimensions: dimensions}
	if err := vi.ensureSchema(); err != nil {
		fmt.Fprintf(os.Stderr, "sqlite-vec not available, using linear scan: %v\n", err)
		vi.available = false
	} else {
		vi.available = true
	}
	return vi
}

func (vi *vecIndex) ensureSchema() error {
	var vecVersion string
	if err := vi.db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		return fmt.Errorf("vec_version() failed: %w", err)
	}

	if _, err := vi.db.Exec(`CREATE TABLE IF NOT EXISTS vec_metadata (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		return fmt.Errorf("failed to create vec_metadata: %w", err)
	}

	if _, err := vi.db.Exec(`CREATE TABLE IF NOT EXISTS pattern_vec_ids (
		vec_id INTEGER PRIMARY KEY AUTOINCREMENT,
		ref_id TEXT UNIQUE NOT NULL,
		pattern_id TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create vec ID mapping: %w", err)
	}

	vi.handleDimensionChange()

	createSQL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS pattern_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
		vi.dimensions,
	)
	if _, err := vi.db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create vec0 table: %w", err)
	}

	vi.db.Exec(`INSERT OR REPLACE INTO vec_metadata (key, value) VALUES ('dimensions', ?)`,
		fmt.Sprintf("%d", vi.dimensions))

	return nil
}

// handleDimensionChange drops the vec0 table when the embedder width changed
// since the last run, so it can be recreated and backfilled.
func (vi *vecIndex) handleDimensionChange() {
	var storedDim string
	err := vi.db.QueryRow(`SELECT value FROM vec_metadata WHERE key = 'dimensions'`).Scan(&storedDim)
	if err != nil {
		return
	}
	if storedDim == fmt.Sprintf("%d", vi.dimensions) {
		return
	}

	fmt.Fprintf(os.Stderr, "embedding dimensions changed (%s -> %d), rebuilding vec index\n", storedDim, vi.dimensions)
	vi.db.Exec(`DROP TABLE IF EXISTS pattern_embeddings`)
	vi.db.Exec(`DELETE FROM pattern_vec_ids`)
}

// Insert adds or replaces an embedding in the vec0 index. refID names the
// embedded row, patternID the pattern a match resolves to.
func (vi *vecIndex) Insert(refID, patternID string, embedding []float32) error {
	if !vi.available || len(embedding) == 0 || len(embedding) != vi.dimensions {
		return nil
	}

	var vecID int64
	err := vi.db.QueryRow(`SELECT vec_id FROM pattern_vec_ids WHERE ref_id = ?`, refID).Scan(&vecID)
	if err == sql.ErrNoRows {
		result, err := vi.db.Exec(`INSERT INTO pattern_vec_ids (ref_id, pattern_id) VALUES (?, ?)`, refID, patternID)
		if err != nil {
			return fmt.Errorf("failed to create vec ID mapping: %w", err)
		}
		vecID, _ = result.LastInsertId()
	} else if err != nil {
		return err
	}

	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return fmt.Errorf("failed to serialize embedding: %w", err)
	}

	// vec0 doesn't support ON CONFLICT, so delete first if exists
	vi.db.Exec(`DELETE FROM pattern_embeddings WHERE rowid = ?`, vecID)

	if _, err := vi.db.Exec(`INSERT INTO pattern_embeddings (rowid, embedding) VALUES (?, ?)`, vecID, blob); err != nil {
		return fmt.Errorf("failed to insert into vec0: %w", err)
	}
	return nil
}

// Search performs a KNN query and returns pattern IDs with cosine distances,
// nearest first. A pattern may appear more than once when both its own
// phrasing and an alias land in the window; callers keep the best.
func (vi *vecIndex) Search(queryEmbedding []float32, limit int) ([]vecResult, error) {
	if !vi.available {
		return nil, fmt.Errorf("vec index not available")
	}

	blob, err := sqlite_vec.SerializeFloat32(queryEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize query: %w", err)
	}

	rows, err := vi.db.Query(`
		SELECT rowid, distance
		FROM pattern_embeddings
		WHERE embedding MATCH ?
		ORDER BY distance
		LIMIT ?
	`, blob, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type rowResult struct {
		rowID    int64
		distance float64
	}
	var rowResults []rowResult
	for rows.Next() {
		var r rowResult
		if err := rows.Scan(&r.rowID, &r.distance); err != nil {
			continue
		}
		rowResults = append(rowResults, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(rowResults) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(rowResults))
	args := make([]interface{}, len(rowResults))
	for i, rr := range rowResults {
		placeholders[i] = "?"
		args[i] = rr.rowID
	}

	mapRows, err := vi.db.Query(
		`SELECT vec_id, pattern_id FROM pattern_vec_ids WHERE vec_id IN (`+strings.Join(placeholders, ",")+`)`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer mapRows.Close()

	idMap := make(map[int64]string)
	for mapRows.Next() {
		var vecID int64
		var patternID string
		if err := mapRows.Scan(&vecID, &patternID); err != nil {
			continue
		}
		idMap[vecID] = patternID
	}

	var results []vecResult
	for _, rr := range rowResults {
		if patternID, ok := idMap[rr.rowID]; ok {
			results = append(results, vecResult{PatternID: patternID, Distance: rr.distance})
		}
	}
	return results, nil
}

// Delete removes an embedded row from the vec0 index by ref_id.
func (vi *vecIndex) Delete(refID string) error {
	if !vi.available {
		return nil
	}
	var vecID int64
	if err := vi.db.QueryRow(`SELECT vec_id FROM pattern_vec_ids WHERE ref_id = ?`, refID).Scan(&vecID); err != nil {
		return nil // not indexed
	}
	vi.db.Exec(`DELETE FROM pattern_embeddings WHERE rowid = ?`, vecID)
	vi.db.Exec(`DELETE FROM pattern_vec_ids WHERE vec_id = ?`, vecID)
	return nil
}

// Backfill populates the vec0 index from active patterns and their aliases
// that carry embeddings but are not yet indexed. Returns the number of rows
// backfilled.
func (vi *vecIndex) Backfill(db *sql.DB) (int, error) {
	if !vi.available {
		return 0, nil
	}

	count := 0

	rows, err := db.Query(`
		SELECT p.id, p.embedding
		FROM patterns p
		LEFT JOIN pattern_vec_ids v ON v.ref_id = p.id
		WHERE v.vec_id IS NULL AND p.status = 'active'
		AND p.embedding IS NOT NULL AND p.embedding != '' AND p.embedding != '[]' AND p.embedding != 'null'
	`)
	if err != nil {
		return 0, err
	}
	count += vi.backfillRows(rows, "")

	aliasRows, err := db.Query(`
		SELECT a.id, a.pattern_id, a.embedding
		FROM pattern_aliases a
		JOIN patterns p ON p.id = a.pattern_id
		LEFT JOIN pattern_vec_ids v ON v.ref_id = 'alias:' || a.id
		WHERE v.vec_id IS NULL AND p.status = 'active'
		AND a.embedding IS NOT NULL AND a.embedding != '' AND a.embedding != '[]' AND a.embedding != 'null'
	`)
	if err != nil {
		return count, err
	}
	defer aliasRows.Close()
	for aliasRows.Next() {
		var aliasID, patternID, embJSON string
		if err := aliasRows.Scan(&aliasID, &patternID, &embJSON); err != nil {
			continue
		}
		var embedding []float32
		if err := json.Unmarshal([]byte(embJSON), &embedding); err != nil {
			continue
		}
		if len(embedding) != vi.dimensions {
			continue
		}
		if err := vi.Insert("alias:"+aliasID, patternID, embedding); err != nil {
			continue
		}
		count++
	}

	return count, nil
}

func (vi *vecIndex) backfillRows(rows *sql.Rows, prefix string) int {
	defer rows.Close()
	count := 0
	for rows.Next() {
		var id, embJSON string
		if err := rows.Scan(&id, &embJSON); err != nil {
			continue
		}
		var embedding []float32
		if err := json.Unmarshal([]byte(embJSON), &embedding); err != nil {
			continue
		}
		if len(embedding) != vi.dimensions {
			continue
		}
		if err := vi.Insert(prefix+id, id, embedding); err != nil {
			continue
		}
		count++
	}
	return count
}
