package kvstore

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
)

var (
	// ErrNotFound 는 키 미존재 오류다.
	ErrNotFound = errors.New("key not found")
	// ErrStoreDisabled 는 저장소 비활성 오류다.
	ErrStoreDisabled = errors.New("store disabled")
)

type storeBackend int

const (
	storeBackendMemory storeBackend = iota
	storeBackendValkey
)

// Store 는 Valkey 기반 KV 저장소다.
// 모든 내구 상태(잔액, 사용량, 잡)가 이 저장소를 거친다. 트랜잭션은 없다.
type Store struct {
	client  valkey.Client
	cfg     *config.Config
	enabled bool
	backend storeBackend

	mem *memoryBackend
}

// NewStore 는 KV 저장소를 생성한다. 연결 실패 시 설정된 횟수만큼 재시도한다.
func NewStore(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if !cfg.Store.Enabled {
		if cfg.Store.Required {
			return nil, errors.New("store required but disabled")
		}
		return newMemoryStore(cfg), nil
	}

	conn, err := parseStoreURL(cfg.Store.URL)
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}

	var tlsConfig *tls.Config
	if conn.useTLS {
		host, _, splitErr := net.SplitHostPort(conn.addr)
		if splitErr != nil {
			return nil, fmt.Errorf("parse store addr: %w", splitErr)
		}
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}

	var client valkey.Client
	connect := func() error {
		c, connectErr := valkey.NewClient(valkey.ClientOption{
			TLSConfig:    tlsConfig,
			Username:     conn.username,
			Password:     conn.password,
			InitAddress:  []string{conn.addr},
			SelectDB:     conn.selectDB,
			DisableCache: cfg.Store.DisableCache,
		})
		if connectErr != nil {
			if logger != nil {
				logger.Warn("store_connect_retry", "addr", conn.addr, "err", connectErr)
			}
			return connectErr
		}
		client = c
		return nil
	}

	retry := backoff.WithMaxRetries(
		backoff.NewConstantBackOff(time.Duration(cfg.Store.ConnectRetrySeconds)*time.Second),
		uint64(cfg.Store.ConnectMaxAttempts-1),
	)
	if err := backoff.Retry(connect, retry); err != nil {
		return nil, fmt.Errorf("connect to valkey: %w", err)
	}

	return &Store{
		client:  client,
		cfg:     cfg,
		enabled: true,
		backend: storeBackendValkey,
	}, nil
}

func newMemoryStore(cfg *config.Config) *Store {
	return &Store{
		cfg:     cfg,
		enabled: true,
		backend: storeBackendMemory,
		mem:     newMemoryBackend(),
	}
}

// IsEnabled 는 저장소 활성화 여부를 반환한다.
func (s *Store) IsEnabled() bool {
	return s.enabled
}

// Close 는 Valkey 연결을 종료한다.
func (s *Store) Close() {
	if s == nil {
		return
	}
	if s.backend == storeBackendValkey && s.client != nil {
		s.client.Close()
	}
}

// GetJSON 는 키의 JSON 값을 읽어 out 에 역직렬화한다.
// 압축 저장된 값은 읽기 시점에 투명하게 해제된다.
func (s *Store) GetJSON(ctx context.Context, key string, out any) error {
	if !s.enabled {
		return ErrStoreDisabled
	}

	var data []byte
	if s.backend == storeBackendMemory {
		raw, ok := s.mem.get(key)
		if !ok {
			return ErrNotFound
		}
		data = raw
	} else {
		cmd := s.client.B().Get().Key(key).Build()
		result, err := s.client.Do(ctx, cmd).AsBytes()
		if err != nil {
			if valkey.IsValkeyNil(err) {
				return ErrNotFound
			}
			return fmt.Errorf("get %s: %w", key, err)
		}
		data = result
	}

	plain, err := maybeDecompress(data)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", key, err)
	}
	if err := json.Unmarshal(plain, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

// SetJSON 는 값을 JSON 으로 직렬화해 키에 쓴다. 큰 값은 zstd 로 압축한다.
func (s *Store) SetJSON(ctx context.Context, key string, value any) error {
	if !s.enabled {
		return ErrStoreDisabled
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	payload, err := compressValue(data)
	if err != nil {
		return fmt.Errorf("compress %s: %w", key, err)
	}

	if s.backend == storeBackendMemory {
		s.mem.set(key, payload)
		return nil
	}

	cmd := s.client.B().Set().Key(key).Value(string(payload)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete 는 키를 삭제한다. 미존재 키는 무시한다.
func (s *Store) Delete(ctx context.Context, key string) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		s.mem.delete(key)
		return nil
	}

	cmd := s.client.B().Del().Key(key).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil && !valkey.IsValkeyNil(err) {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// IndexAdd 는 열거용 색인에 멤버를 추가한다.
// 멤버는 역순 타임스탬프로 시작하므로 사전순 오름차순 스캔이 최신순이 된다.
func (s *Store) IndexAdd(ctx context.Context, index string, member string) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		s.mem.indexAdd(index, member)
		return nil
	}

	cmd := s.client.B().Zadd().Key(index).ScoreMember().ScoreMember(0, member).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("index add %s: %w", index, err)
	}
	return nil
}

// IndexScan 는 색인을 사전순으로 스캔한다. cursor 는 불투명 연속 토큰이다.
func (s *Store) IndexScan(ctx context.Context, index string, limit int, cursor string) ([]string, string, error) {
	if !s.enabled {
		return nil, "", ErrStoreDisabled
	}
	if limit <= 0 {
		limit = 20
	}

	min := "-"
	if cursor != "" {
		member, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		min = "(" + member
	}

	var members []string
	if s.backend == storeBackendMemory {
		members = s.mem.indexScan(index, min, limit)
	} else {
		cmd := s.client.B().Zrangebylex().Key(index).Min(min).Max("+").Limit(0, int64(limit)).Build()
		result, err := s.client.Do(ctx, cmd).AsStrSlice()
		if err != nil && !valkey.IsValkeyNil(err) {
			return nil, "", fmt.Errorf("index scan %s: %w", index, err)
		}
		members = result
	}

	next := ""
	if len(members) == limit {
		next = encodeCursor(members[len(members)-1])
	}
	return members, next, nil
}

// Ping 는 저장소 연결을 확인한다.
func (s *Store) Ping(ctx context.Context) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return nil
	}

	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping valkey: %w", err)
	}
	return nil
}

// ReverseTimestamp 는 MAX - t 기반의 20자리 고정폭 키 구성요소를 반환한다.
// 사전순 오름차순 == 시간 역순이 되도록 한다.
func ReverseTimestamp(t time.Time) string {
	return fmt.Sprintf("%020d", math.MaxInt64-t.UnixNano())
}
