package api

import "net/http"

func (s *Server) handleListKinds(w http.ResponseWriter, _ *http.Request) {
	kinds := s.registry.List()
	s.writeJSON(w, http.StatusOK, kinds)
}
