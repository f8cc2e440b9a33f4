package importer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/driftlog/driftlog/internal/extract"
)

// ClaudeConversation represents a Claude export conversation
type ClaudeConversation struct {
	UUID         string          `json:"uuid"`
	Name         string          `json:"name"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	ChatMessages []ClaudeMessage `json:"chat_messages"`
}

// ClaudeMessage represents a message in Claude format
type ClaudeMessage struct {
	UUID      string    `json:"uuid"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"` // "human" or "assistant"
	CreatedAt time.Time `json:"created_at"`
}

// ImportClaudeFile replays a Claude export file through compaction. Exports
// can be JSONL (one conversation per line) or a JSON array.
func (im *Importer) ImportClaudeFile(ctx context.Context, filePath string) (*Result, error) {
	start := time.Now()
	result := &Result{}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var conversations []ClaudeConversation

	if strings.ToLower(filepath.Ext(filePath)) == ".jsonl" {
		scanner := bufio.NewScanner(file)
		// Long conversations blow past the default token size
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 10*1024*1024)

		for scanner.Scan() {
			var conv ClaudeConversation
			if err := json.Unmarshal(scanner.Bytes(), &conv); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("line parse error: %v", err))
				continue
			}
			conversations = append(conversations, conv)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("scanner error: %w", err)
		}
	} else {
		decoder := json.NewDecoder(file)
		if err := decoder.Decode(&conversations); err != nil {
			// Try single conversation
			file.Seek(0, 0)
			var single ClaudeConversation
			if err := json.NewDecoder(file).Decode(&single); err != nil {
				return nil, fmt.Errorf("failed to parse JSON: %w", err)
			}
			conversations = []ClaudeConversation{single}
		}
	}

	for _, conv := range conversations {
		id := conv.UUID
		if id == "" {
			id = conv.Name
		}
		im.compactConversation(ctx, "claude-import-"+id, claudeMessages(conv), result)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// ImportClaudeDirectory imports all JSON/JSONL files from a directory.
func (im *Importer) ImportClaudeDirectory(ctx context.Context, dirPath string) (*Result, error) {
	combined := &Result{}
	start := time.Now()

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		lower := strings.ToLower(path)
		if !info.IsDir() && (strings.HasSuffix(lower, ".json") || strings.HasSuffix(lower, ".jsonl")) {
			result, err := im.ImportClaudeFile(ctx, path)
			if err != nil {
				combined.Errors = append(combined.Errors, fmt.Sprintf("%s: %v", path, err))
				return nil
			}
			merge(combined, result)
		}
		return nil
	})

	combined.Duration = time.Since(start)
	return combined, err
}

func claudeMessages(conv ClaudeConversation) []extract.Message {
	var messages []extract.Message
	for _, msg := range conv.ChatMessages {
		content := strings.TrimSpace(msg.Text)
		if content == "" {
			continue
		}
		role := "assistant"
		if msg.Sender == "human" {
			role = "user"
		}
		messages = append(messages, extract.Message{
			ID:        msg.UUID,
			Role:      role,
			Content:   content,
			Timestamp: msg.CreatedAt,
		})
	}
	return messages
}
