package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/driftlog/driftlog/internal/extract"
)

// ChatGPTConversation represents a ChatGPT export conversation
type ChatGPTConversation struct {
	Title       string                 `json:"title"`
	CreateTime  float64                `json:"create_time"`
	UpdateTime  float64                `json:"update_time"`
	Mapping     map[string]ChatGPTNode `json:"mapping"`
	CurrentNode string                 `json:"current_node,omitempty"`
}

// ChatGPTNode represents a node in the conversation tree
type ChatGPTNode struct {
	ID       string          `json:"id"`
	Message  *ChatGPTMessage `json:"message,omitempty"`
	Parent   *string         `json:"parent,omitempty"`
	Children []string        `json:"children,omitempty"`
}

// ChatGPTMessage represents a message in ChatGPT format
type ChatGPTMessage struct {
	ID         string         `json:"id"`
	Author     ChatGPTAuthor  `json:"author"`
	CreateTime *float64       `json:"create_time,omitempty"`
	Content    ChatGPTContent `json:"content"`
	Status     string         `json:"status,omitempty"`
}

// ChatGPTAuthor represents the message author
type ChatGPTAuthor struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
}

// ChatGPTContent represents message content
type ChatGPTContent struct {
	ContentType string   `json:"content_type"`
	Parts       []string `json:"parts,omitempty"`
}

// ChatGPTExport represents the full export file
type ChatGPTExport []ChatGPTConversation

// ImportChatGPTFile replays a ChatGPT export file through compaction.
func (im *Importer) ImportChatGPTFile(ctx context.Context, filePath string) (*Result, error) {
	start := time.Now()
	result := &Result{}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var export ChatGPTExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	for i, conv := range export {
		conversationID := fmt.Sprintf("chatgpt-import-%s-%d", filepath.Base(filePath), i)
		im.compactConversation(ctx, conversationID, chatGPTMessages(conv), result)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// ImportChatGPTDirectory imports all JSON files from a directory.
func (im *Importer) ImportChatGPTDirectory(ctx context.Context, dirPath string) (*Result, error) {
	combined := &Result{}
	start := time.Now()

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(strings.ToLower(path), ".json") {
			result, err := im.ImportChatGPTFile(ctx, path)
			if err != nil {
				combined.Errors = append(combined.Errors, fmt.Sprintf("%s: %v", path, err))
				return nil // Continue with other files
			}
			merge(combined, result)
		}
		return nil
	})

	combined.Duration = time.Since(start)
	return combined, err
}

// chatGPTMessages converts the conversation tree to an ordered message list
// the extraction step understands.
func chatGPTMessages(conv ChatGPTConversation) []extract.Message {
	var messages []extract.Message

	for _, node := range flattenChatGPTTree(conv) {
		if node.Message == nil || node.Message.Content.ContentType != "text" {
			continue
		}
		content := strings.TrimSpace(strings.Join(node.Message.Content.Parts, "\n"))
		if content == "" {
			continue
		}

		role := node.Message.Author.Role
		if role == "system" {
			continue
		}
		if role != "user" && role != "assistant" {
			role = "tool"
		}

		ts := time.Unix(int64(conv.CreateTime), 0).UTC()
		if node.Message.CreateTime != nil {
			ts = time.Unix(int64(*node.Message.CreateTime), 0).UTC()
		}

		messages = append(messages, extract.Message{
			ID:        node.Message.ID,
			Role:      role,
			Content:   content,
			Timestamp: ts,
		})
	}
	return messages
}

// flattenChatGPTTree converts the tree structure to a linear list
func flattenChatGPTTree(conv ChatGPTConversation) []ChatGPTNode {
	var result []ChatGPTNode

	// Find root nodes (no parent)
	var roots []string
	for id, node := range conv.Mapping {
		if node.Parent == nil || *node.Parent == "" {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots) // map order is random; keep runs reproducible

	var traverse func(id string)
	traverse = func(id string) {
		if node, ok := conv.Mapping[id]; ok {
			result = append(result, node)
			for _, childID := range node.Children {
				traverse(childID)
			}
		}
	}
	for _, root := range roots {
		traverse(root)
	}
	return result
}

func merge(into, from *Result) {
	into.ConversationsProcessed += from.ConversationsProcessed
	into.BatchesCompacted += from.BatchesCompacted
	into.PatternsCreated += from.PatternsCreated
	into.PatternsReinforced += from.PatternsReinforced
	into.Errors = append(into.Errors, from.Errors...)
}
