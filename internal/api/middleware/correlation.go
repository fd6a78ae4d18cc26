// correlation.go — сквозной идентификатор запроса.
// Входящий X-Correlation-Id принимается как есть; при отсутствии
// генерируется uuid. Идентификатор кладётся в контекст, echo-ится
// в заголовок ответа и попадает в metadata ответа search.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderCorrelationID — имя заголовка сквозного идентификатора.
const HeaderCorrelationID = "X-Correlation-Id"

type correlationKey struct{}

// WithCorrelationID возвращает middleware, обеспечивающий наличие
// correlation id у каждого запроса.
func WithCorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderCorrelationID)
			if id == "" {
				id = uuid.NewString()
			}

			w.Header().Set(HeaderCorrelationID, id)
			ctx := context.WithValue(r.Context(), correlationKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CorrelationID возвращает идентификатор запроса из контекста
// (пустая строка, если middleware не применялся).
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}
