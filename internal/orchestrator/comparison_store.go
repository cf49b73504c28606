package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tenderanalysis/internal/domain"
)

// ComparisonStore persists completed Comparisons, keyed by
// comparisonId, with the same atomic temp-file-then-rename discipline
// as ArtifactStore.
type ComparisonStore struct {
	root string
}

func NewComparisonStore(root string) *ComparisonStore {
	return &ComparisonStore{root: root}
}

func (s *ComparisonStore) pathFor(comparisonID string) string {
	return filepath.Join(s.root, comparisonID+".json")
}

func (s *ComparisonStore) Save(cmp *domain.Comparison) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cmp, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.root, cmp.ComparisonID+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
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
	return os.Rename(tmpName, s.pathFor(cmp.ComparisonID))
}

func (s *ComparisonStore) Load(comparisonID string) (*domain.Comparison, error) {
	data, err := os.ReadFile(s.pathFor(comparisonID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load comparison %s: %w", comparisonID, err)
	}
	var cmp domain.Comparison
	if err := json.Unmarshal(data, &cmp); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptedArtifactStore, comparisonID, err)
	}
	return &cmp, nil
}
