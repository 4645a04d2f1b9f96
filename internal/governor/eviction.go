package governor

// EvictionPolicy selects which entry the cache removes when it is full.
type EvictionPolicy string

const (
	// EvictFIFO removes the oldest inserted key regardless of access.
	EvictFIFO EvictionPolicy = "fifo"
	// EvictLRU removes the key that has gone longest without being read.
	EvictLRU EvictionPolicy = "lru"
)

// evictionTracker is the bookkeeping behind an EvictionPolicy. The cache
// notifies it of reads, writes and removals and asks it for a victim when
// space is needed. Implementations are not safe for concurrent use; the
// cache serializes access under its own lock.
type evictionTracker interface {
	onGet(key string)
	onSet(key string)
	remove(key string)
	victim() (string, bool)
}

func newEvictionTracker(policy EvictionPolicy) evictionTracker {
	if policy == EvictLRU {
		return newLRUTracker()
	}
	return newFIFOTracker()
}

// fifoTracker keeps keys in insertion order. Reads do not reorder.
type fifoTracker struct {
	order []string
	seen  map[string]struct{}
}

func newFIFOTracker() *fifoTracker {
	return &fifoTracker{seen: make(map[string]struct{})}
}

func (f *fifoTracker) onGet(string) {}

func (f *fifoTracker) onSet(key string) {
	if _, ok := f.seen[key]; ok {
		return
	}
	f.order = append(f.order, key)
	f.seen[key] = struct{}{}
}

func (f *fifoTracker) remove(key string) {
	if _, ok := f.seen[key]; !ok {
		return
	}
	delete(f.seen, key)
	for i, k := range f.order {
		if k == key {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

func (f *fifoTracker) victim() (string, bool) {
	if len(f.order) == 0 {
		return "", false
	}
	key := f.order[0]
	f.order = f.order[1:]
	delete(f.seen, key)
	return key, true
}

// lruTracker keeps keys in access order using a doubly linked list so that
// promotion on read is O(1). The tail is the least recently used key.
type lruTracker struct {
	nodes map[string]*lruNode
	head  *lruNode
	tail  *lruNode
}

type lruNode struct {
	key  string
	prev *lruNode
	next *lruNode
}

func newLRUTracker() *lruTracker {
	return &lruTracker{nodes: make(map[string]*lruNode)}
}

func (l *lruTracker) onGet(key string) {
	if n, ok := l.nodes[key]; ok {
		l.unlink(n)
		l.pushFront(n)
	}
}

func (l *lruTracker) onSet(key string) {
	if n, ok := l.nodes[key]; ok {
		l.unlink(n)
		l.pushFront(n)
		return
	}
	n := &lruNode{key: key}
	l.nodes[key] = n
	l.pushFront(n)
}

func (l *lruTracker) remove(key string) {
	if n, ok := l.nodes[key]; ok {
		l.unlink(n)
		delete(l.nodes, key)
	}
}

func (l *lruTracker) victim() (string, bool) {
	if l.tail == nil {
		return "", false
	}
	key := l.tail.key
	l.unlink(l.tail)
	delete(l.nodes, key)
	return key, true
}

func (l *lruTracker) pushFront(n *lruNode) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
}

func (l *lruTracker) unlink(n *lruNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
}
