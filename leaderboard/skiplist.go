package leaderboard

import (
	"math/rand/v2"
	"sync"

	"chronoguess/core"
)

const (
	maxLevel = 16
	promote  = 0.25
)

// level i of a node links to the next node that reaches that level; width[i]
// counts the bottom-level hops the link skips, so ranks fall out of a search.
type node struct {
	e     Entry
	next  [maxLevel]*node
	width [maxLevel]int
}

// SkipList is an indexable skip list: updates, removals and rank lookups are
// all O(log n).
type SkipList struct {
	mu     sync.RWMutex
	head   *node
	height int
	count  int
	users  map[core.UserID]*node
	rng    *rand.Rand
}

func NewSkipList() *SkipList {
	return &SkipList{
		head:   &node{},
		height: 1,
		users:  map[core.UserID]*node{},
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

func (s *SkipList) coinFlips() int {
	h := 1
	for h < maxLevel && s.rng.Float64() < promote {
		h++
	}
	return h
}

// descend finds, per level, the last node ranked above e, and the rank of
// that node (head is rank 0).
func (s *SkipList) descend(e Entry) (prev [maxLevel]*node, rank [maxLevel]int) {
	cur, pos := s.head, 0
	for i := s.height - 1; i >= 0; i-- {
		for cur.next[i] != nil && ahead(cur.next[i].e, e) {
			pos += cur.width[i]
			cur = cur.next[i]
		}
		prev[i], rank[i] = cur, pos
	}
	return prev, rank
}

// Update inserts or repositions the entry's user.
func (s *SkipList) Update(e Entry) {
	e.Rank = 0
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.users[e.User]; ok {
		s.unlinkLocked(old)
	}

	prev, rank := s.descend(e)
	h := s.coinFlips()
	for ; s.height < h; s.height++ {
		prev[s.height], rank[s.height] = s.head, 0
		s.head.width[s.height] = s.count
	}
	n := &node{e: e}
	for i := 0; i < h; i++ {
		skipped := rank[0] - rank[i]
		n.next[i] = prev[i].next[i]
		n.width[i] = prev[i].width[i] - skipped
		prev[i].next[i] = n
		prev[i].width[i] = skipped + 1
	}
	for i := h; i < s.height; i++ {
		prev[i].width[i]++
	}
	s.users[e.User] = n
	s.count++
}

func (s *SkipList) unlinkLocked(n *node) {
	prev, _ := s.descend(n.e)
	for i := 0; i < s.height; i++ {
		if prev[i].next[i] == n {
			prev[i].width[i] += n.width[i] - 1
			prev[i].next[i] = n.next[i]
		} else {
			prev[i].width[i]--
		}
	}
	for s.height > 1 && s.head.next[s.height-1] == nil {
		s.height--
		s.head.width[s.height] = 0
	}
	delete(s.users, n.e.User)
	s.count--
}

func (s *SkipList) Remove(user core.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.users[user]; ok {
		s.unlinkLocked(n)
	}
}

// TopN returns the first n standings with ranks filled in.
func (s *SkipList) TopN(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	out := make([]Entry, 0, min(n, s.count))
	for cur := s.head.next[0]; cur != nil && len(out) < n; cur = cur.next[0] {
		e := cur.e
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out
}

// Get returns user's standing and 1-based rank.
func (s *SkipList) Get(user core.UserID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.users[user]
	if !ok {
		return Entry{}, false
	}
	_, rank := s.descend(n.e)
	e := n.e
	e.Rank = rank[0] + 1
	return e, true
}

func (s *SkipList) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

var _ Board = (*SkipList)(nil)
