package moderation

import (
	"strings"
	"sync"

	"github.com/muhammadmasoud/blogApp/cmd/models"
	"gorm.io/gorm"
)

// Filter masks forbidden words in free-text content. The word list is loaded
// once and cached; Reload is called after every admin edit so handlers never
// hit the store per comment.
type Filter struct {
	db *gorm.DB

	mu    sync.RWMutex
	words []string
}

func NewFilter(db *gorm.DB) (*Filter, error) {
	f := &Filter{db: db}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Filter) Reload() error {
	var words []string
	if err := f.db.Model(&models.ForbiddenWord{}).Pluck("word", &words).Error; err != nil {
		return err
	}

	f.mu.Lock()
	f.words = words
	f.mu.Unlock()
	return nil
}

// Mask replaces occurrences of forbidden words with asterisks of equal length.
// The containment check is case-insensitive but the replacement is literal
// stored-case, so casings that differ from the stored word may survive. Best
// effort, not a guaranteed scrub.
func (f *Filter) Mask(text string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, word := range f.words {
		if strings.Contains(strings.ToLower(text), strings.ToLower(word)) {
			text = strings.ReplaceAll(text, word, strings.Repeat("*", len(word)))
		}
	}
	return text
}
