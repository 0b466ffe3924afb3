package kvstore

import (
	"encoding/base64"
	"errors"
)

// 커서는 마지막으로 반환된 색인 멤버를 감싼 불투명 토큰이다.
// 호출자는 구조를 가정해서는 안 된다.

func encodeCursor(member string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(member))
}

func decodeCursor(cursor string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", errors.New("invalid cursor")
	}
	return string(data), nil
}
