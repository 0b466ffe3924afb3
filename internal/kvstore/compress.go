package kvstore

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// compressMinBytes 미만의 행은 압축하지 않는다. 잔액 같은 작은 행은 이득이 없다.
const compressMinBytes = 1024

// zstd 프레임 매직 넘버. JSON 문서는 이 바이트열로 시작할 수 없으므로
// 별도 마커 없이 읽기 시점에 압축 여부를 판별한다.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// 싱글톤 encoder/decoder - goroutine-safe 재사용
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdOnce    sync.Once
	zstdInitErr error
)

func initZstd() error {
	zstdOnce.Do(func() {
		var err error
		zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			zstdInitErr = fmt.Errorf("create zstd encoder: %w", err)
			return
		}
		zstdDecoder, err = zstd.NewReader(nil)
		if err != nil {
			zstdInitErr = fmt.Errorf("create zstd decoder: %w", err)
		}
	})
	return zstdInitErr
}

// compressValue 는 임계치 이상의 값을 zstd 로 압축한다. 작은 값은 그대로 반환한다.
func compressValue(src []byte) ([]byte, error) {
	if len(src) < compressMinBytes {
		return src, nil
	}
	if err := initZstd(); err != nil {
		return nil, err
	}
	return zstdEncoder.EncodeAll(src, make([]byte, 0, len(src))), nil
}

// maybeDecompress 는 zstd 프레임이면 해제하고 아니면 그대로 반환한다.
func maybeDecompress(src []byte) ([]byte, error) {
	if !bytes.HasPrefix(src, zstdMagic) {
		return src, nil
	}
	if err := initZstd(); err != nil {
		return nil, err
	}
	decoded, err := zstdDecoder.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return decoded, nil
}
