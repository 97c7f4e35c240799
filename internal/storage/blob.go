package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tradescope/internal/model"
)

// BlobStore keeps finalized block envelopes on disk with two-phase writes:
// an envelope lands in processing/ first and is promoted to complete/ once
// its events are persisted, removing the processing copy. Readers of
// complete/ never observe a partial write.
type BlobStore struct {
	root string
}

func NewBlobStore(root string) *BlobStore {
	return &BlobStore{root: root}
}

func (s *BlobStore) processingDir() string { return filepath.Join(s.root, "processing") }
func (s *BlobStore) completeDir() string   { return filepath.Join(s.root, "complete") }

func envelopeName(chainID, blockNumber uint64) string {
	return fmt.Sprintf("block_%d_%d.json", chainID, blockNumber)
}

// WriteProcessing writes the envelope into the processing stage. The write
// itself goes through a tmp file and rename so the processing copy is also
// never partial.
func (s *BlobStore) WriteProcessing(envelope *model.BlockEnvelope) error {
	if err := os.MkdirAll(s.processingDir(), 0o755); err != nil {
		return fmt.Errorf("create processing dir: %w", err)
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	path := filepath.Join(s.processingDir(), envelopeName(envelope.ChainID, envelope.BlockNumber))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write envelope tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename envelope: %w", err)
	}
	return nil
}

// Promote moves the envelope from processing to complete.
func (s *BlobStore) Promote(chainID, blockNumber uint64) error {
	if err := os.MkdirAll(s.completeDir(), 0o755); err != nil {
		return fmt.Errorf("create complete dir: %w", err)
	}

	name := envelopeName(chainID, blockNumber)
	src := filepath.Join(s.processingDir(), name)
	dst := filepath.Join(s.completeDir(), name)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("promote envelope: %w", err)
	}
	return nil
}

// ReadComplete loads a promoted envelope.
func (s *BlobStore) ReadComplete(chainID, blockNumber uint64) (*model.BlockEnvelope, error) {
	return ReadEnvelope(filepath.Join(s.completeDir(), envelopeName(chainID, blockNumber)))
}

// ReadEnvelope loads one envelope file.
func ReadEnvelope(path string) (*model.BlockEnvelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read envelope: %w", err)
	}
	var envelope model.BlockEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	return &envelope, nil
}

// FindDecoded locates the decoded input envelope for a block.
func FindDecoded(inputDir string, chainID, blockNumber uint64) (*model.BlockEnvelope, error) {
	return ReadEnvelope(filepath.Join(inputDir, envelopeName(chainID, blockNumber)))
}

// ListEnvelopes returns all envelope files in a directory, sorted by name.
func ListEnvelopes(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		out = append(out, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(out)
	return out, nil
}
