// Package progress holds the per-user progress rules: lock resolution,
// derived statistics, the learning path and progress updates. Everything here
// is pure and operates on a loaded aggregate plus a catalog snapshot.
package progress

import (
	"learnstack/internal/apperr"
	"learnstack/internal/models"
)

// Access statuses reported to clients
const (
	AccessAvailable       = "available"
	AccessLockedTopic     = "locked (topic)"
	AccessLockedAlgorithm = "locked (algorithm)"
)

// AccessResult is the verdict for an action on a (topic, algorithm) pair.
// Blocker is "topic", "algorithm" or empty.
type AccessResult struct {
	HasAccess       bool          `json:"hasAccess"`
	Status          string        `json:"status"`
	Blocker         string        `json:"-"`
	TopicStatus     models.Status `json:"-"`
	AlgorithmStatus models.Status `json:"-"`
}

// EffectiveTopicStatus resolves a topic's status for one user. A missing entry
// defaults from the global flag. Under a global lock only an explicit
// non-locked per-user status grants access.
func EffectiveTopicStatus(topic *models.Topic, entry *models.TopicProgress) models.Status {
	userSpecific := models.StatusAvailable
	if topic.IsGloballyLocked {
		userSpecific = models.StatusLocked
	}
	if entry != nil && entry.Status != "" {
		userSpecific = entry.Status
	}

	if topic.IsGloballyLocked && userSpecific == models.StatusLocked {
		return models.StatusLocked
	}
	return userSpecific
}

// EffectiveAlgorithmStatus resolves an algorithm's status. A locked topic
// always locks its algorithms.
func EffectiveAlgorithmStatus(algo *models.Algorithm, entry *models.AlgorithmProgress, topicStatus models.Status) models.Status {
	if topicStatus == models.StatusLocked {
		return models.StatusLocked
	}

	userSpecific := models.StatusAvailable
	if entry != nil && entry.Status != "" {
		userSpecific = entry.Status
	}

	if algo.IsGloballyLocked {
		if userSpecific == models.StatusAvailable {
			return models.StatusAvailable
		}
		return models.StatusLocked
	}
	return userSpecific
}

// CheckAccess resolves both levels for (topic, algorithmID) against the
// user's topic map. topic must be the catalog definition; nil means the topic
// does not exist.
func CheckAccess(topic *models.Topic, algorithmID string, topics map[string]*models.TopicProgress) (AccessResult, error) {
	if topic == nil {
		return AccessResult{}, apperr.New(apperr.NotFound, "topic not found")
	}
	algo, ok := topic.FindAlgorithm(algorithmID)
	if !ok {
		return AccessResult{}, apperr.NotFoundf("algorithm %q not defined for topic %q", algorithmID, topic.ID)
	}

	topicEntry := topics[topic.ID]
	topicStatus := EffectiveTopicStatus(topic, topicEntry)

	var algoEntry *models.AlgorithmProgress
	if topicEntry != nil {
		algoEntry = topicEntry.Algorithms[algorithmID]
	}
	algoStatus := EffectiveAlgorithmStatus(algo, algoEntry, topicStatus)

	res := AccessResult{
		HasAccess:       true,
		Status:          AccessAvailable,
		TopicStatus:     topicStatus,
		AlgorithmStatus: algoStatus,
	}
	switch {
	case topicStatus == models.StatusLocked:
		res.HasAccess = false
		res.Status = AccessLockedTopic
		res.Blocker = "topic"
	case algoStatus == models.StatusLocked:
		res.HasAccess = false
		res.Status = AccessLockedAlgorithm
		res.Blocker = "algorithm"
	}
	return res, nil
}

// DeniedError converts a negative verdict into an AccessDenied error carrying
// the status as its code.
func DeniedError(res AccessResult) error {
	msg := "this algorithm is locked"
	if res.Blocker == "topic" {
		msg = "this topic is locked"
	}
	return apperr.New(apperr.AccessDenied, msg).WithCode(res.Status)
}
