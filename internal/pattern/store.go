package pattern

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

// Store provides durable pattern storage using SQLite. It holds pure data
// operations only; dedup, contradiction, and retrieval policy live in the
// Compactor and Retriever.
type Store struct {
	db      *sql.DB
	dataDir string

	// Vector index for fast KNN lookup (nil-safe: falls back to linear scan)
	vecIdx *vecIndex
}

// NewStore opens (or creates) the pattern store. The data directory comes
// from DRIFTLOG_DATA_DIR, defaulting to ~/.driftlog. dimensions is the
// embedding width used for the vector index.
func NewStore(dimensions int) (*Store, error) {
	dataDir := os.Getenv("DRIFTLOG_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home dir: %w", err)
		}
		dataDir = filepath.Join(home, ".driftlog")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "patterns.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dataDir: dataDir}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	s.vecIdx = newVecIndex(db, dimensions)
	if s.vecIdx.available {
		if n, err := s.vecIdx.Backfill(db); err == nil && n > 0 {
			fmt.Fprintf(os.Stderr, "backfilled %d vectors into vec index\n", n)
		}
	}

	return s, nil
}

// GetDB returns the underlying SQL database handle. Collaborators sharing
// the same file (journal entries) attach their tables through it.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS patterns (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		kind TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 0.5,
		strength REAL NOT NULL DEFAULT 1.0,
		times_seen INTEGER NOT NULL DEFAULT 1,
		first_seen DATETIME NOT NULL,
		last_seen DATETIME NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		canonical_hash TEXT NOT NULL,
		embedding TEXT,
		temporal TEXT,
		expires_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_patterns_hash ON patterns(canonical_hash, status);
	CREATE INDEX IF NOT EXISTS idx_patterns_status_strength ON patterns(status, strength DESC);
	CREATE INDEX IF NOT EXISTS idx_patterns_expiry ON patterns(status, kind, expires_at);

	CREATE TABLE IF NOT EXISTS pattern_observations (
		id TEXT PRIMARY KEY,
		pattern_id TEXT NOT NULL,
		source_message_ids TEXT,
		excerpt TEXT,
		role TEXT NOT NULL DEFAULT 'user',
		confidence REAL NOT NULL DEFAULT 1.0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (pattern_id) REFERENCES patterns(id)
	);
	CREATE INDEX IF NOT EXISTS idx_observations_pattern ON pattern_observations(pattern_id);

	CREATE TABLE IF NOT EXISTS pattern_relations (
		id TEXT PRIMARY KEY,
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		relation TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (from_id, to_id, relation),
		FOREIGN KEY (from_id) REFERENCES patterns(id),
		FOREIGN KEY (to_id) REFERENCES patterns(id)
	);

	CREATE TABLE IF NOT EXISTS pattern_aliases (
		id TEXT PRIMARY KEY,
		pattern_id TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (pattern_id) REFERENCES patterns(id)
	);
	CREATE INDEX IF NOT EXISTS idx_aliases_pattern ON pattern_aliases(pattern_id);

	CREATE TABLE IF NOT EXISTS pattern_entry_links (
		id TEXT PRIMARY KEY,
		pattern_id TEXT NOT NULL,
		entry_id TEXT NOT NULL,
		source TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 1.0,
		times_linked INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (pattern_id, entry_id, source),
		FOREIGN KEY (pattern_id) REFERENCES patterns(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateParams captures everything needed to insert a new pattern.
type CreateParams struct {
	Content       string
	Kind          Kind
	Confidence    float64
	Embedding     []float32 // nil when the embed call failed
	Temporal      string
	CanonicalHash string
	ExpiresAt     *time.Time
}

// Create inserts a new active pattern with strength 1.0 and times_seen 1.
// Returns ErrDuplicateCanonicalHash if an active pattern with the same hash
// and kind already exists.
func (s *Store) Create(ctx context.Context, p CreateParams) (*Pattern, error) {
	if p.CanonicalHash == "" {
		p.CanonicalHash = CanonicalHash(p.Content)
	}

	var existingID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM patterns WHERE canonical_hash = ? AND kind = ? AND status = 'active'
	`, p.CanonicalHash, string(p.Kind)).Scan(&existingID)
	if err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCanonicalHash, existingID)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check canonical hash: %w", err)
	}

	id := ulid.Make().String()
	now := time.Now().UTC()

	var embeddingJSON interface{}
	if len(p.Embedding) > 0 {
		b, _ := json.Marshal(p.Embedding)
		embeddingJSON = string(b)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO patterns (id, content, kind, confidence, strength, times_seen,
			first_seen, last_seen, status, canonical_hash, embedding, temporal, expires_at)
		VALUES (?, ?, ?, ?, 1.0, 1, ?, ?, 'active', ?, ?, NULLIF(?, ''), ?)
	`, id, p.Content, string(p.Kind), p.Confidence, now, now, p.CanonicalHash,
		embeddingJSON, p.Temporal, p.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert pattern: %w", err)
	}

	if s.vecIdx != nil && len(p.Embedding) > 0 {
		s.vecIdx.Insert(id, id, p.Embedding)
	}

	return &Pattern{
		ID:            id,
		Content:       p.Content,
		Kind:          p.Kind,
		Confidence:    p.Confidence,
		Strength:      1.0,
		TimesSeen:     1,
		FirstSeen:     now,
		LastSeen:      now,
		Status:        StatusActive,
		CanonicalHash: p.CanonicalHash,
		Embedding:     p.Embedding,
		Temporal:      p.Temporal,
		ExpiresAt:     p.ExpiresAt,
	}, nil
}

// GetByID returns a pattern regardless of status, or nil if absent.
// Terminal patterns stay queryable for audit.
func (s *Store) GetByID(ctx context.Context, id string) (*Pattern, error) {
	rows, err := s.db.QueryContext(ctx, selectPattern+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanPattern(rows)
}

// GetByCanonicalHash returns the active pattern for a hash, or nil.
func (s *Store) GetByCanonicalHash(ctx context.Context, hash string) (*Pattern, error) {
	rows, err := s.db.QueryContext(ctx,
		selectPattern+` WHERE canonical_hash = ? AND status = 'active' LIMIT 1`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanPattern(rows)
}

// GetByHashAndKind returns the active pattern for a (hash, kind) pair, or
// nil. Exact-match dedup is scoped this way so the same sentence can exist
// as, say, both a belief and a behavior.
func (s *Store) GetByHashAndKind(ctx context.Context, hash string, kind Kind) (*Pattern, error) {
	rows, err := s.db.QueryContext(ctx,
		selectPattern+` WHERE canonical_hash = ? AND kind = ? AND status = 'active' LIMIT 1`,
		hash, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanPattern(rows)
}

// Reinforce records a reinforcement event: times_seen increments, confidence
// is replaced, and strength grows by the spacing-aware boost for the gap
// since last_seen. Returns ErrNotFound for an unknown id; terminal patterns
// are rejected.
func (s *Store) Reinforce(ctx context.Context, id string, newConfidence float64) (*Pattern, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if p.Terminal() {
		return nil, fmt.Errorf("cannot reinforce %s pattern %s", p.Status, id)
	}

	now := time.Now().UTC()
	gap := DaysSince(p.LastSeen, now)

	p.Strength = Reinforced(p.Strength, gap)
	p.Confidence = newConfidence
	p.TimesSeen++
	p.LastSeen = now

	_, err = s.db.ExecContext(ctx, `
		UPDATE patterns SET strength = ?, confidence = ?, times_seen = ?, last_seen = ?
		WHERE id = ?
	`, p.Strength, p.Confidence, p.TimesSeen, p.LastSeen, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reinforce pattern: %w", err)
	}

	return p, nil
}

// SetStatus transitions active -> deprecated|superseded. Transitioning an
// already-terminal pattern is a no-op. Returns ErrNotFound for unknown ids.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) error {
	if status != StatusDeprecated && status != StatusSuperseded {
		return fmt.Errorf("invalid target status %q", status)
	}

	p, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if p.Terminal() {
		return nil
	}

	_, err = s.db.ExecContext(ctx, `UPDATE patterns SET status = ? WHERE id = ?`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}

	// Terminal patterns leave the semantic index; their aliases go with them.
	if s.vecIdx != nil {
		s.vecIdx.Delete(id)
		aliases, _ := s.Aliases(ctx, id)
		for _, a := range aliases {
			s.vecIdx.Delete("alias:" + a.ID)
		}
	}

	return nil
}

// FindByEmbedding returns active patterns by cosine similarity against the
// query vector, descending, ties broken by more recent last_seen. Alias
// embeddings widen the match surface: an alias hit counts for its parent at
// the alias's similarity, keeping the best per pattern.
func (s *Store) FindByEmbedding(ctx context.Context, vector []float32, limit int, minSimilarity float64) ([]Match, error) {
	if limit <= 0 {
		limit = 10
	}

	if s.vecIdx != nil && s.vecIdx.available {
		matches, err := s.findWithVecIndex(ctx, vector, limit, minSimilarity)
		if err == nil {
			return matches, nil
		}
		// Fall through to linear scan on index error.
	}
	return s.findLinearScan(ctx, vector, limit, minSimilarity)
}

func (s *Store) findWithVecIndex(ctx context.Context, vector []float32, limit int, minSimilarity float64) ([]Match, error) {
	// Overfetch: terminal rows were removed from the index, but alias hits
	// collapse onto parents and thin the result set.
	results, err := s.vecIdx.Search(vector, limit*3+10)
	if err != nil {
		return nil, err
	}

	best := make(map[string]float64, len(results))
	for _, r := range results {
		sim := 1.0 - r.Distance
		if sim < minSimilarity {
			continue
		}
		if sim > best[r.PatternID] {
			best[r.PatternID] = sim
		}
	}
	if len(best) == 0 {
		return nil, nil
	}

	var matches []Match
	for id, sim := range best {
		p, err := s.GetByID(ctx, id)
		if err != nil || p == nil || p.Status != StatusActive {
			continue
		}
		matches = append(matches, Match{Pattern: p, Similarity: sim})
	}

	sortMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *Store) findLinearScan(ctx context.Context, vector []float32, limit int, minSimilarity float64) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, selectPattern+` WHERE status = 'active' AND embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()

	best := make(map[string]*Match)
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			continue
		}
		sim := CosineSimilarity(vector, p.Embedding)
		if sim < minSimilarity {
			continue
		}
		best[p.ID] = &Match{Pattern: p, Similarity: sim}
	}

	// Alias pass: an alias can out-score its parent's own phrasing.
	aliasRows, err := s.db.QueryContext(ctx, `
		SELECT a.pattern_id, a.embedding
		FROM pattern_aliases a
		JOIN patterns p ON p.id = a.pattern_id
		WHERE p.status = 'active' AND a.embedding IS NOT NULL
	`)
	if err == nil {
		defer aliasRows.Close()
		for aliasRows.Next() {
			var patternID, embJSON string
			if err := aliasRows.Scan(&patternID, &embJSON); err != nil {
				continue
			}
			var emb []float32
			if err := json.Unmarshal([]byte(embJSON), &emb); err != nil {
				continue
			}
			sim := CosineSimilarity(vector, emb)
			if sim < minSimilarity {
				continue
			}
			if m, ok := best[patternID]; ok {
				if sim > m.Similarity {
					m.Similarity = sim
				}
				continue
			}
			p, err := s.GetByID(ctx, patternID)
			if err != nil || p == nil || p.Status != StatusActive {
				continue
			}
			best[patternID] = &Match{Pattern: p, Similarity: sim}
		}
	}

	matches := make([]Match, 0, len(best))
	for _, m := range best {
		matches = append(matches, *m)
	}
	sortMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func sortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Pattern.LastSeen.After(matches[j].Pattern.LastSeen)
	})
}

// ListTopByStrength returns active patterns ordered by stored strength.
// This is the only retrieval path for patterns without embeddings.
func (s *Store) ListTopByStrength(ctx context.Context, limit int) ([]*Pattern, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		selectPattern+` WHERE status = 'active' ORDER BY strength DESC, last_seen DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	defer rows.Close()

	var patterns []*Pattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			continue
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// ExpireEventPatterns deprecates active event/fact patterns whose expires_at
// has passed. Idempotent: a second run with the same clock changes nothing.
// Returns the number of patterns transitioned.
func (s *Store) ExpireEventPatterns(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM patterns
		WHERE status = 'active' AND kind IN ('event', 'fact')
		AND expires_at IS NOT NULL AND expires_at < ?
	`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to query stale events: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err == nil {
			ids = append(ids, id)
		}
	}
	rows.Close()

	count := 0
	for _, id := range ids {
		if err := s.SetStatus(ctx, id, StatusDeprecated); err == nil {
			count++
		}
	}
	return count, nil
}

// CountStale counts active event/fact patterns already past expires_at,
// without changing anything. Used for the pre-prune memory note.
func (s *Store) CountStale(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM patterns
		WHERE status = 'active' AND kind IN ('event', 'fact')
		AND expires_at IS NOT NULL AND expires_at < ?
	`, now.UTC()).Scan(&count)
	return count, err
}

// AddRelation inserts a directed typed edge between two patterns.
// Idempotent: re-inserting the same triple is a no-op.
func (s *Store) AddRelation(ctx context.Context, fromID, toID, relation string) error {
	if fromID == "" || toID == "" || relation == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO pattern_relations (id, from_id, to_id, relation, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), fromID, toID, relation, time.Now().UTC())
	return err
}

// RelationsFrom returns edges originating at the pattern, optionally
// filtered by relation type.
func (s *Store) RelationsFrom(ctx context.Context, patternID, relation string) ([]Relation, error) {
	query := `SELECT id, from_id, to_id, relation, created_at FROM pattern_relations WHERE from_id = ?`
	args := []interface{}{patternID}
	if relation != "" {
		query += ` AND relation = ?`
		args = append(args, relation)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []Relation
	for rows.Next() {
		var r Relation
		if err := rows.Scan(&r.ID, &r.FromID, &r.ToID, &r.Relation, &r.CreatedAt); err != nil {
			continue
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// AddAlias records an alternate phrasing for a pattern. Read-only once
// created; its embedding joins the similarity-match surface.
func (s *Store) AddAlias(ctx context.Context, patternID, content string, embedding []float32) (*Alias, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	var embeddingJSON interface{}
	if len(embedding) > 0 {
		b, _ := json.Marshal(embedding)
		embeddingJSON = string(b)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pattern_aliases (id, pattern_id, content, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, patternID, content, embeddingJSON, now)
	if err != nil {
		return nil, fmt.Errorf("failed to add alias: %w", err)
	}

	if s.vecIdx != nil && len(embedding) > 0 {
		s.vecIdx.Insert("alias:"+id, patternID, embedding)
	}

	return &Alias{ID: id, PatternID: patternID, Content: content, Embedding: embedding, CreatedAt: now}, nil
}

// Aliases returns all aliases of a pattern.
func (s *Store) Aliases(ctx context.Context, patternID string) ([]Alias, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pattern_id, content, embedding, created_at
		FROM pattern_aliases WHERE pattern_id = ? ORDER BY created_at
	`, patternID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aliases []Alias
	for rows.Next() {
		var a Alias
		var embJSON sql.NullString
		if err := rows.Scan(&a.ID, &a.PatternID, &a.Content, &embJSON, &a.CreatedAt); err != nil {
			continue
		}
		if embJSON.Valid {
			json.Unmarshal([]byte(embJSON.String), &a.Embedding)
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

// AddObservation appends one evidence row for a creation or reinforcement
// event. Observations are never mutated or deleted.
func (s *Store) AddObservation(ctx context.Context, obs Observation) error {
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	if obs.CreatedAt.IsZero() {
		obs.CreatedAt = time.Now().UTC()
	}
	idsJSON, _ := json.Marshal(obs.SourceMessageIDs)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pattern_observations (id, pattern_id, source_message_ids, excerpt, role, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, obs.ID, obs.PatternID, string(idsJSON), obs.Excerpt, obs.Role, obs.Confidence, obs.CreatedAt)
	return err
}

// Observations returns the evidence trail for a pattern, oldest first.
func (s *Store) Observations(ctx context.Context, patternID string) ([]Observation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pattern_id, source_message_ids, excerpt, role, confidence, created_at
		FROM pattern_observations WHERE pattern_id = ? ORDER BY created_at
	`, patternID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var obs []Observation
	for rows.Next() {
		var o Observation
		var idsJSON sql.NullString
		var excerpt sql.NullString
		if err := rows.Scan(&o.ID, &o.PatternID, &idsJSON, &excerpt, &o.Role, &o.Confidence, &o.CreatedAt); err != nil {
			continue
		}
		if idsJSON.Valid {
			json.Unmarshal([]byte(idsJSON.String), &o.SourceMessageIDs)
		}
		if excerpt.Valid {
			o.Excerpt = excerpt.String
		}
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

// UpsertEntryLink associates a pattern with a journal entry. A repeat of the
// same (pattern, entry, source) increments times_linked instead of creating
// a second row.
func (s *Store) UpsertEntryLink(ctx context.Context, patternID, entryID, source string, confidence float64) (*EntryLink, error) {
	now := time.Now().UTC()

	var link EntryLink
	err := s.db.QueryRowContext(ctx, `
		SELECT id, times_linked, created_at FROM pattern_entry_links
		WHERE pattern_id = ? AND entry_id = ? AND source = ?
	`, patternID, entryID, source).Scan(&link.ID, &link.TimesLinked, &link.CreatedAt)

	if err == sql.ErrNoRows {
		link = EntryLink{
			ID:          uuid.NewString(),
			PatternID:   patternID,
			EntryID:     entryID,
			Source:      source,
			Confidence:  confidence,
			TimesLinked: 1,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO pattern_entry_links (id, pattern_id, entry_id, source, confidence, times_linked, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		`, link.ID, patternID, entryID, source, confidence, now, now)
		if err != nil {
			return nil, fmt.Errorf("failed to insert entry link: %w", err)
		}
		return &link, nil
	}
	if err != nil {
		return nil, err
	}

	link.PatternID = patternID
	link.EntryID = entryID
	link.Source = source
	link.Confidence = confidence
	link.TimesLinked++
	link.UpdatedAt = now
	_, err = s.db.ExecContext(ctx, `
		UPDATE pattern_entry_links SET times_linked = ?, confidence = ?, updated_at = ? WHERE id = ?
	`, link.TimesLinked, confidence, now, link.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update entry link: %w", err)
	}
	return &link, nil
}

// EntryLinks returns all entry links for a pattern.
func (s *Store) EntryLinks(ctx context.Context, patternID string) ([]EntryLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pattern_id, entry_id, source, confidence, times_linked, created_at, updated_at
		FROM pattern_entry_links WHERE pattern_id = ? ORDER BY created_at
	`, patternID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []EntryLink
	for rows.Next() {
		var l EntryLink
		if err := rows.Scan(&l.ID, &l.PatternID, &l.EntryID, &l.Source, &l.Confidence,
			&l.TimesLinked, &l.CreatedAt, &l.UpdatedAt); err != nil {
			continue
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// Count returns the total number of patterns, all statuses included.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patterns`).Scan(&count)
	return count, err
}

// CountActive returns the number of active patterns.
func (s *Store) CountActive(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patterns WHERE status = 'active'`).Scan(&count)
	return count, err
}

// Size returns the database file size as a human-readable string.
func (s *Store) Size() (string, error) {
	info, err := os.Stat(filepath.Join(s.dataDir, "patterns.db"))
	if err != nil {
		return "unknown", err
	}
	size := info.Size()
	switch {
	case size < 1024:
		return fmt.Sprintf("%d B", size), nil
	case size < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024), nil
	default:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024)), nil
	}
}

// LastActivity returns the most recent last_seen across all patterns.
func (s *Store) LastActivity(ctx context.Context) (time.Time, error) {
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT MAX(last_seen) FROM patterns`).Scan(&last)
	if err != nil || !last.Valid {
		return time.Time{}, err
	}
	return last.Time, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectPattern = `
	SELECT id, content, kind, confidence, strength, times_seen, first_seen,
		last_seen, status, canonical_hash, embedding, temporal, expires_at
	FROM patterns`

func scanPattern(rows *sql.Rows) (*Pattern, error) {
	var p Pattern
	var kind, status string
	var embJSON, temporal sql.NullString
	var expiresAt sql.NullTime

	err := rows.Scan(&p.ID, &p.Content, &kind, &p.Confidence, &p.Strength,
		&p.TimesSeen, &p.FirstSeen, &p.LastSeen, &status, &p.CanonicalHash,
		&embJSON, &temporal, &expiresAt)
	if err != nil {
		return nil, err
	}

	p.Kind = Kind(kind)
	p.Status = Status(status)
	if embJSON.Valid {
		json.Unmarshal([]byte(embJSON.String), &p.Embedding)
	}
	if temporal.Valid {
		p.Temporal = temporal.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		p.ExpiresAt = &t
	}
	return &p, nil
}
