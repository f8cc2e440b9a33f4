package importer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/driftlog/driftlog/internal/embed"
	"github.com/driftlog/driftlog/internal/extract"
	"github.com/driftlog/driftlog/internal/pattern"
)

func setupTestImporter(t *testing.T, candidates []extract.Candidate) (*Importer, *pattern.Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "driftlog-import-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	originalDataDir := os.Getenv("DRIFTLOG_DATA_DIR")
	os.Setenv("DRIFTLOG_DATA_DIR", tmpDir)

	embedder := embed.NewLocalEmbedder()
	store, err := pattern.NewStore(embedder.Dimensions())
	if err != nil {
		os.RemoveAll(tmpDir)
		os.Setenv("DRIFTLOG_DATA_DIR", originalDataDir)
		t.Fatalf("failed to create store: %v", err)
	}

	compactor := pattern.NewCompactor(store,
		&extract.MockExtractor{Candidates: candidates}, embedder, nil)

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
		os.Setenv("DRIFTLOG_DATA_DIR", originalDataDir)
	}
	return New(compactor), store, cleanup
}

func writeJSON(t *testing.T, dir, name string, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}

func strPtr(s string) *string { return &s }

func TestImportChatGPTFile(t *testing.T) {
	im, store, cleanup := setupTestImporter(t, []extract.Candidate{
		{Content: "I run every morning", Kind: "behavior", Confidence: 0.8, Role: "user"},
	})
	defer cleanup()
	ctx := context.Background()

	ct := float64(time.Now().Unix())
	export := ChatGPTExport{{
		Title:      "morning routines",
		CreateTime: ct,
		Mapping: map[string]ChatGPTNode{
			"root": {ID: "root", Children: []string{"n1"}},
			"n1": {ID: "n1", Parent: strPtr("root"), Children: []string{"n2"},
				Message: &ChatGPTMessage{
					ID:      "m1",
					Author:  ChatGPTAuthor{Role: "user"},
					Content: ChatGPTContent{ContentType: "text", Parts: []string{"I went for my run again today"}},
				}},
			"n2": {ID: "n2", Parent: strPtr("n1"),
				Message: &ChatGPTMessage{
					ID:      "m2",
					Author:  ChatGPTAuthor{Role: "assistant"},
					Content: ChatGPTContent{ContentType: "text", Parts: []string{"Sounds like a solid habit."}},
				}},
		},
	}}

	path := writeJSON(t, t.TempDir(), "export.json", export)
	result, err := im.ImportChatGPTFile(ctx, path)
	if err != nil {
		t.Fatalf("ImportChatGPTFile failed: %v", err)
	}

	if result.ConversationsProcessed != 1 {
		t.Errorf("expected 1 conversation, got %d", result.ConversationsProcessed)
	}
	if result.BatchesCompacted != 1 {
		t.Errorf("expected 1 batch, got %d", result.BatchesCompacted)
	}
	if result.PatternsCreated != 1 {
		t.Errorf("expected 1 pattern created, got %d", result.PatternsCreated)
	}

	p, err := store.GetByCanonicalHash(ctx, pattern.CanonicalHash("I run every morning"))
	if err != nil || p == nil {
		t.Fatalf("expected imported pattern in store, got %v, %v", p, err)
	}
}

func TestChatGPTMessages_SkipsNonText(t *testing.T) {
	conv := ChatGPTConversation{
		Mapping: map[string]ChatGPTNode{
			"root": {ID: "root", Children: []string{"a", "b", "c"}},
			"a": {ID: "a", Parent: strPtr("root"),
				Message: &ChatGPTMessage{
					ID:      "m1",
					Author:  ChatGPTAuthor{Role: "system"},
					Content: ChatGPTContent{ContentType: "text", Parts: []string{"system prompt"}},
				}},
			"b": {ID: "b", Parent: strPtr("root"),
				Message: &ChatGPTMessage{
					ID:      "m2",
					Author:  ChatGPTAuthor{Role: "user"},
					Content: ChatGPTContent{ContentType: "multimodal_text"},
				}},
			"c": {ID: "c", Parent: strPtr("root"),
				Message: &ChatGPTMessage{
					ID:      "m3",
					Author:  ChatGPTAuthor{Role: "user"},
					Content: ChatGPTContent{ContentType: "text", Parts: []string{"kept"}},
				}},
		},
	}

	msgs := chatGPTMessages(conv)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].ID != "m3" || msgs[0].Content != "kept" {
		t.Errorf("unexpected message %+v", msgs[0])
	}
}

func TestImportClaudeFile_JSONArray(t *testing.T) {
	im, _, cleanup := setupTestImporter(t, []extract.Candidate{
		{Content: "likes quiet mornings", Kind: "preference", Confidence: 0.7, Role: "user"},
	})
	defer cleanup()
	ctx := context.Background()

	export := []ClaudeConversation{{
		UUID: "c1",
		Name: "mornings",
		ChatMessages: []ClaudeMessage{
			{UUID: "m1", Sender: "human", Text: "quiet mornings are the best part of my day", CreatedAt: time.Now()},
			{UUID: "m2", Sender: "assistant", Text: "What makes them work for you?", CreatedAt: time.Now()},
		},
	}}

	path := writeJSON(t, t.TempDir(), "export.json", export)
	result, err := im.ImportClaudeFile(ctx, path)
	if err != nil {
		t.Fatalf("ImportClaudeFile failed: %v", err)
	}
	if result.ConversationsProcessed != 1 || result.PatternsCreated != 1 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestImportClaudeFile_JSONL(t *testing.T) {
	im, _, cleanup := setupTestImporter(t, []extract.Candidate{
		{Content: "likes quiet mornings", Kind: "preference", Confidence: 0.7, Role: "user"},
	})
	defer cleanup()
	ctx := context.Background()

	line1, _ := json.Marshal(ClaudeConversation{
		UUID:         "c1",
		ChatMessages: []ClaudeMessage{{UUID: "m1", Sender: "human", Text: "first conversation"}},
	})
	line2, _ := json.Marshal(ClaudeConversation{
		UUID:         "c2",
		ChatMessages: []ClaudeMessage{{UUID: "m2", Sender: "human", Text: "second conversation"}},
	})

	path := filepath.Join(t.TempDir(), "export.jsonl")
	if err := os.WriteFile(path, []byte(string(line1)+"\n"+string(line2)+"\n"), 0600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	result, err := im.ImportClaudeFile(ctx, path)
	if err != nil {
		t.Fatalf("ImportClaudeFile failed: %v", err)
	}
	if result.ConversationsProcessed != 2 {
		t.Errorf("expected 2 conversations, got %d", result.ConversationsProcessed)
	}
	// Same canned candidate both times: one create, one reinforce.
	if result.PatternsCreated != 1 || result.PatternsReinforced != 1 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestCompactConversation_SplitsLongTranscripts(t *testing.T) {
	im, _, cleanup := setupTestImporter(t, []extract.Candidate{
		{Content: "writes long entries", Kind: "behavior", Confidence: 0.7, Role: "user"},
	})
	defer cleanup()
	im.batchChars = 10

	messages := []extract.Message{
		{ID: "m1", Role: "user", Content: "aaaaaaaa"},
		{ID: "m2", Role: "user", Content: "bbbbbbbb"},
		{ID: "m3", Role: "user", Content: "cccccccc"},
	}

	var result Result
	im.compactConversation(context.Background(), "conv-long", messages, &result)

	if result.BatchesCompacted != 3 {
		t.Errorf("expected 3 batches under the char cap, got %d", result.BatchesCompacted)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
}
