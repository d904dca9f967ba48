package app

import (
	"sync"

	"quiz-hosting/internal/domain"
)

// ScoreFeed fans out newly recorded scores to per-quiz subscribers.
type ScoreFeed struct {
	mu          sync.Mutex
	subscribers map[int64]map[chan domain.Score]struct{}
}

func NewScoreFeed() *ScoreFeed {
	return &ScoreFeed{subscribers: make(map[int64]map[chan domain.Score]struct{})}
}

// Subscribe registers a listener for quizID. cancel closes the channel and is idempotent.
func (f *ScoreFeed) Subscribe(quizID int64) (<-chan domain.Score, func()) {
	ch := make(chan domain.Score, 8)

	f.mu.Lock()
	subs, ok := f.subscribers[quizID]
	if !ok {
		subs = make(map[chan domain.Score]struct{})
		f.subscribers[quizID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs, ok := f.subscribers[quizID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, quizID)
		}
	}
	return ch, cancel
}

// Publish delivers score to the subscribers of its quiz without blocking.
func (f *ScoreFeed) Publish(score domain.Score) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[score.QuizID] {
		select {
		case ch <- score:
		default:
			// buffer full: drop the oldest update
			select {
			case <-ch:
			default:
			}
			ch <- score
		}
	}
}

// Subscribers reports how many listeners quizID has.
func (f *ScoreFeed) Subscribers(quizID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[quizID])
}
