package memory

import (
	"container/list"
	"sync"
	"time"

	"line-work-assistant/pkg/conversation"

	"github.com/patrickmn/go-cache"
)

// ConversationRepository keeps per-user chat history in go-cache. Entries
// expire after ttl without activity, and once more than maxUsers users are
// tracked the least recently used one is evicted.
type ConversationRepository struct {
	cache    *cache.Cache
	maxUsers int

	mu    sync.Mutex // guards lru and elems
	lru   *list.List
	elems map[string]*list.Element
}

var _ conversation.HistoryStore = &ConversationRepository{}

type conversationEntry struct {
	mu    sync.Mutex
	turns []conversation.Turn
}

func NewConversationRepository(ttl time.Duration, maxUsers int) *ConversationRepository {
	expiration, cleanup := ttl, 10*time.Minute
	if ttl <= 0 {
		expiration, cleanup = cache.NoExpiration, 0
	}

	r := &ConversationRepository{
		cache:    cache.New(expiration, cleanup),
		maxUsers: maxUsers,
		lru:      list.New(),
		elems:    make(map[string]*list.Element),
	}
	r.cache.OnEvicted(func(userID string, _ interface{}) {
		r.forget(userID)
	})
	return r
}

func (r *ConversationRepository) History(userID string) []conversation.Turn {
	e := r.entry(userID, false)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]conversation.Turn(nil), e.turns...)
}

func (r *ConversationRepository) Append(userID string, keep int, turns ...conversation.Turn) {
	e := r.entry(userID, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	merged := conversation.Recent(append(e.turns, turns...), keep)
	e.turns = append([]conversation.Turn(nil), merged...)
}

func (r *ConversationRepository) Len() int {
	return r.cache.ItemCount()
}

func (r *ConversationRepository) entry(userID string, create bool) *conversationEntry {
	if v, found := r.cache.Get(userID); found {
		// sliding expiration
		r.cache.SetDefault(userID, v)
		r.evict(r.touch(userID))
		return v.(*conversationEntry)
	}
	if !create {
		return nil
	}

	e := &conversationEntry{}
	if err := r.cache.Add(userID, e, cache.DefaultExpiration); err != nil {
		if v, found := r.cache.Get(userID); found {
			e = v.(*conversationEntry)
		}
	}

	r.evict(r.touch(userID))
	return e
}

func (r *ConversationRepository) evict(victims []string) {
	for _, victim := range victims {
		r.cache.Delete(victim)
	}
}

// touch marks userID as most recently used and returns the users that now
// exceed capacity. Victims are deleted by the caller outside the lock since
// go-cache calls OnEvicted synchronously.
func (r *ConversationRepository) touch(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.elems[userID]; ok {
		r.lru.MoveToFront(el)
	} else {
		r.elems[userID] = r.lru.PushFront(userID)
	}

	if r.maxUsers <= 0 {
		return nil
	}

	var victims []string
	for r.lru.Len() > r.maxUsers {
		back := r.lru.Back()
		victim := back.Value.(string)
		r.lru.Remove(back)
		delete(r.elems, victim)
		victims = append(victims, victim)
	}
	return victims
}

func (r *ConversationRepository) forget(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if el, ok := r.elems[userID]; ok {
		r.lru.Remove(el)
		delete(r.elems, userID)
	}
}
