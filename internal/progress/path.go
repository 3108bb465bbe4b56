package progress

import "learnstack/internal/models"

// InitialTopicStatus is the status a fresh entry gets: locked when the topic
// is globally locked or its prerequisites are unmet, otherwise available.
func InitialTopicStatus(p *models.UserProgress, topic *models.Topic) models.Status {
	if topic.IsGloballyLocked || !prerequisitesMet(p, topic.Prerequisites) {
		return models.StatusLocked
	}
	return models.StatusAvailable
}

// InitializeLearningPath seeds a new aggregate from the active catalog
func InitializeLearningPath(p *models.UserProgress, catalog Catalog) {
	for i := range catalog {
		seedTopic(p, &catalog[i])
	}
	p.LearningPath.TopicOrder = catalog.IDs()
	p.LearningPath.CurrentTopic = ""
	if len(catalog) > 0 {
		p.LearningPath.CurrentTopic = catalog[0].ID
	}
	Recalculate(p)
}

// SyncTopicOrder aligns the learning path with the live catalog: the order
// follows the catalog, topics no longer in it leave the order, new topics get
// a default entry, new algorithms get tracked and dropped ones are retired. A current topic that left
// the catalog moves to the first topic not yet completed. Progress entries are
// never deleted. It reports whether anything changed.
func SyncTopicOrder(p *models.UserProgress, catalog Catalog) bool {
	changed := false

	for i := range catalog {
		if seedTopic(p, &catalog[i]) {
			changed = true
		}
	}

	order := catalog.IDs()
	if !equalStrings(order, p.LearningPath.TopicOrder) {
		p.LearningPath.TopicOrder = order
		changed = true
	}

	if _, ok := catalog.Topic(p.LearningPath.CurrentTopic); !ok {
		next := ""
		for _, id := range order {
			if !p.LearningPath.HasCompleted(id) {
				next = id
				break
			}
		}
		if next != p.LearningPath.CurrentTopic {
			p.LearningPath.CurrentTopic = next
			changed = true
		}
	}
	return changed
}

// seedTopic creates the topic entry if missing, tracks every catalog
// algorithm and retires entries the topic no longer defines. It reports
// whether anything changed.
func seedTopic(p *models.UserProgress, topic *models.Topic) bool {
	changed := false
	tp, ok := p.Topics[topic.ID]
	if !ok || tp == nil {
		tp = p.EnsureTopic(topic.ID, InitialTopicStatus(p, topic))
		changed = true
	}
	for _, algo := range topic.Algorithms {
		ap, ok := tp.Algorithms[algo.ID]
		if !ok || ap == nil {
			tp.EnsureAlgorithm(algo.ID)
			changed = true
			continue
		}
		if ap.Retired {
			ap.Retired = false
			changed = true
		}
	}
	for id, ap := range tp.Algorithms {
		if ap == nil || ap.Retired {
			continue
		}
		if _, ok := topic.FindAlgorithm(id); !ok {
			ap.Retired = true
			changed = true
		}
	}
	return changed
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
