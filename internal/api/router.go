package api

import "net/http"

// NewRouter registers the application routes. Callers may add operational
// routes (health, metrics) to the returned mux.
func NewRouter(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /clientes", h.ListCustomers)
	mux.HandleFunc("GET /cliente/{id}", h.GetCustomer)
	mux.HandleFunc("POST /interact", h.Interact)
	mux.HandleFunc("POST /audio-interact", h.AudioInteract)
	mux.HandleFunc("POST /reset", h.Reset)
	mux.HandleFunc("GET /conversation-history", h.History)

	if h.StaticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(h.StaticDir))))
	}
	return mux
}
