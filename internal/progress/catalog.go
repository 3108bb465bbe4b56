package progress

import "learnstack/internal/models"

// Catalog is a snapshot of the active topics sorted by order
type Catalog []models.Topic

// Topic returns the definition with the given id
func (c Catalog) Topic(id string) (*models.Topic, bool) {
	for i := range c {
		if c[i].ID == id {
			return &c[i], true
		}
	}
	return nil, false
}

// IDs returns the topic ids in catalog order
func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c))
	for _, t := range c {
		ids = append(ids, t.ID)
	}
	return ids
}

// prerequisitesMet requires each prerequisite to be both recorded as
// completed and at 100% completion.
func prerequisitesMet(p *models.UserProgress, prereqs []string) bool {
	for _, id := range prereqs {
		if !p.LearningPath.HasCompleted(id) {
			return false
		}
		tp, ok := p.Topics[id]
		if !ok || tp == nil || tp.Completion != 100 {
			return false
		}
	}
	return true
}
