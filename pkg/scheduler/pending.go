package scheduler

import (
	"sort"

	gocache "github.com/patrickmn/go-cache"

	"github.com/croftlabs/croft/pkg/types"
)

// SchedulePending attempts placement for every pending pod, oldest first.
// It runs when capacity appears (node registered, reconnected, uncordoned)
// and may be called at any time; pods that keep failing placement are
// backed off after maxRetries consecutive misses until their retry entry
// expires. Returns how many pods were placed.
func (s *Scheduler) SchedulePending() int {
	pending := s.List(ListFilter{Status: types.PodStatusPending})
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].ID < pending[j].ID
	})

	placed := 0
	for _, pod := range pending {
		if s.retriesExhausted(pod.ID) {
			continue
		}
		if _, err := s.Schedule(pod.ID); err != nil {
			if types.IsCode(err, types.CodeNoCompatibleNodes) ||
				types.IsCode(err, types.CodePreemptionFailed) {
				s.recordRetry(pod.ID)
				continue
			}
			s.logger.Warn().Err(err).Str("pod", pod.ID).Msg("pending pass placement error")
			continue
		}
		s.retries.Delete(pod.ID)
		placed++
	}
	return placed
}

func (s *Scheduler) retriesExhausted(podID string) bool {
	if s.cfg.MaxRetries <= 0 {
		return false
	}
	v, ok := s.retries.Get(podID)
	return ok && v.(int) >= s.cfg.MaxRetries
}

func (s *Scheduler) recordRetry(podID string) {
	count := 1
	if v, ok := s.retries.Get(podID); ok {
		count = v.(int) + 1
	}
	s.retries.Set(podID, count, gocache.DefaultExpiration)
}
