package progress

import (
	"learnstack/internal/apperr"
	"learnstack/internal/models"
)

// SetTopicStatus is the per-user topic override. Unlocking sets the topic
// available without checking prerequisites.
func SetTopicStatus(p *models.UserProgress, topic *models.Topic, locked bool) {
	tp := p.EnsureTopic(topic.ID, models.StatusAvailable)
	if locked {
		tp.Status = models.StatusLocked
	} else {
		tp.Status = models.StatusAvailable
	}
}

// ApplyGlobalTopicLock records a global topic lock on one user's aggregate.
// Clearing the global flag does not touch user entries.
func ApplyGlobalTopicLock(p *models.UserProgress, topicID string) {
	p.EnsureTopic(topicID, models.StatusLocked).Status = models.StatusLocked
}

// SetAlgorithmStatus is the per-user algorithm override
func SetAlgorithmStatus(p *models.UserProgress, topic *models.Topic, algorithmID string, locked bool) error {
	if _, ok := topic.FindAlgorithm(algorithmID); !ok {
		return apperr.NotFoundf("algorithm %q not defined for topic %q", algorithmID, topic.ID)
	}
	tp := p.EnsureTopic(topic.ID, models.StatusAvailable)
	ap := tp.EnsureAlgorithm(algorithmID)
	if locked {
		ap.Status = models.StatusLocked
	} else {
		ap.Status = models.StatusAvailable
	}
	return nil
}

// TopicStatuses resolves the effective status of every catalog topic for the
// admin per-user view.
func TopicStatuses(p *models.UserProgress, catalog Catalog) map[string]models.Status {
	out := make(map[string]models.Status, len(catalog))
	for i := range catalog {
		out[catalog[i].ID] = EffectiveTopicStatus(&catalog[i], p.Topics[catalog[i].ID])
	}
	return out
}
