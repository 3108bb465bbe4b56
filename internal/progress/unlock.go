package progress

import "learnstack/internal/models"

// UnlockNextTopic looks one topic past the current one. A locked next topic
// becomes available when its prerequisites are met. The current topic then
// advances if it is at 100% and the next topic is not locked. It reports
// whether anything changed.
func UnlockNextTopic(p *models.UserProgress, catalog Catalog) bool {
	lp := &p.LearningPath
	if lp.CurrentTopic == "" || len(lp.TopicOrder) == 0 {
		return false
	}

	idx := -1
	for i, id := range lp.TopicOrder {
		if id == lp.CurrentTopic {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(lp.TopicOrder)-1 {
		return false
	}
	nextID := lp.TopicOrder[idx+1]

	changed := false
	next := p.Topics[nextID]
	if next != nil && next.Status == models.StatusLocked {
		var prereqs []string
		if def, ok := catalog.Topic(nextID); ok {
			prereqs = def.Prerequisites
		}
		if prerequisitesMet(p, prereqs) {
			next.Status = models.StatusAvailable
			changed = true
		}
	}

	current := p.Topics[lp.CurrentTopic]
	if current != nil && current.Completion == 100 && next != nil && next.Status != models.StatusLocked {
		lp.CurrentTopic = nextID
		changed = true
	}
	return changed
}
