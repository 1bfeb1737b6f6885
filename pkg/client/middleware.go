package client

import (
	"net/http"
)

// Middleware wraps next so each served request starts with fresh
// queues and ends with an aggregate log line of the batches it caused.
// Calls deferred past the end of the handler are abandoned by the
// entry reset, so flush them before returning.
func (s *Session) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Reset()
		defer func() {
			st := s.Stats()
			if st.Batches > 0 {
				s.logger.Info().
					Int("calls", st.Calls).
					Int("batches", st.Batches).
					Int("failed", st.Failed).
					Msg("processed graph requests")
			}
			s.ClearRecords()
		}()
		next.ServeHTTP(w, r)
	})
}
