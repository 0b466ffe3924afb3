package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// TTLCache 캐시는 만료 시간과 최대 크기를 가진 LRU 캐시다.
type TTLCache[K comparable, V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	order   *list.List
	items   map[K]*list.Element
}

// NewTTLCache 는 만료 시간과 최대 크기를 갖는 TTLCache 를 생성한다.
func NewTTLCache[K comparable, V any](maxSize int, ttl time.Duration) *TTLCache[K, V] {
	if maxSize <= 0 {
		maxSize = 1
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return &TTLCache[K, V]{
		ttl:     ttl,
		maxSize: maxSize,
		order:   list.New(),
		items:   make(map[K]*list.Element, maxSize),
	}
}

func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.items[key]
	if !ok {
		return zero, false
	}

	ent := element.Value.(*entry[K, V])
	if time.Now().After(ent.expiresAt) {
		c.removeElement(element)
		return zero, false
	}

	c.order.MoveToFront(element)
	return ent.value, true
}

func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.items[key]; ok {
		ent := element.Value.(*entry[K, V])
		ent.value = value
		ent.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(element)
		return
	}

	ent := &entry[K, V]{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
	element := c.order.PushFront(ent)
	c.items[key] = element
	c.evictIfNeeded()
}

// Modify 는 잠금 아래에서 현재 값에 fn 을 적용해 저장한다. 읽기와 쓰기 사이에
// 다른 고루틴이 끼어들 수 없으므로 카운터 용도로 쓸 수 있다.
// 캐시가 가득 차 새 키를 수용할 수 없으면 저장하지 않고 false 를 반환한다.
// 기존 키의 카운터를 밀어내면 해당 호출자의 계수가 깨지기 때문이다.
func (c *TTLCache[K, V]) Modify(key K, fn func(current V, exists bool) V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	now := time.Now()

	if element, ok := c.items[key]; ok {
		ent := element.Value.(*entry[K, V])
		if now.After(ent.expiresAt) {
			ent.value = fn(zero, false)
		} else {
			ent.value = fn(ent.value, true)
		}
		ent.expiresAt = now.Add(c.ttl)
		c.order.MoveToFront(element)
		return ent.value, true
	}

	if len(c.items) >= c.maxSize {
		return zero, false
	}

	ent := &entry[K, V]{
		key:       key,
		value:     fn(zero, false),
		expiresAt: now.Add(c.ttl),
	}
	c.items[key] = c.order.PushFront(ent)
	return ent.value, true
}

func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.items[key]
	if !ok {
		return
	}
	c.removeElement(element)
}

func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *TTLCache[K, V]) evictIfNeeded() {
	for len(c.items) > c.maxSize {
		element := c.order.Back()
		if element == nil {
			return
		}
		c.removeElement(element)
	}
}

func (c *TTLCache[K, V]) removeElement(element *list.Element) {
	c.order.Remove(element)
	ent := element.Value.(*entry[K, V])
	delete(c.items, ent.key)
}
