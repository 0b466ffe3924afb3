package shared

import (
	"log/slog"
)

// LogError: 에러를 경고 레벨로 로깅합니다. attrs 는 추가 slog 키/값 쌍이다.
func LogError(logger *slog.Logger, domain string, err error, attrs ...any) {
	if logger == nil || err == nil {
		return
	}
	args := make([]any, 0, len(attrs)+2)
	args = append(args, "err", err)
	args = append(args, attrs...)
	logger.Warn(domain+"_error", args...)
}
