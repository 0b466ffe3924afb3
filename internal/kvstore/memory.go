package kvstore

import (
	"sort"
	"strings"
	"sync"
)

// memoryBackend 는 Valkey 미사용 환경(로컬, 단위 테스트)용 인메모리 구현이다.
type memoryBackend struct {
	mu      sync.RWMutex
	values  map[string][]byte
	indexes map[string][]string
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		values:  make(map[string][]byte),
		indexes: make(map[string][]string),
	}
}

func (m *memoryBackend) get(key string) ([]byte, bool) {
	m.mu.RLock()
	data, ok := m.values[key]
	m.mu.RUnlock()
	return data, ok
}

func (m *memoryBackend) set(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = data
}

func (m *memoryBackend) delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

func (m *memoryBackend) indexAdd(index string, member string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := m.indexes[index]
	pos := sort.SearchStrings(members, member)
	if pos < len(members) && members[pos] == member {
		return
	}
	members = append(members, "")
	copy(members[pos+1:], members[pos:])
	members[pos] = member
	m.indexes[index] = members
}

// indexScan 는 ZRANGEBYLEX 의 "-", "(member" min 문법을 흉내 낸다.
func (m *memoryBackend) indexScan(index string, min string, limit int) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members := m.indexes[index]
	start := 0
	if strings.HasPrefix(min, "(") {
		exclusive := strings.TrimPrefix(min, "(")
		start = sort.SearchStrings(members, exclusive)
		if start < len(members) && members[start] == exclusive {
			start++
		}
	}

	end := start + limit
	if end > len(members) {
		end = len(members)
	}
	result := make([]string, end-start)
	copy(result, members[start:end])
	return result
}
