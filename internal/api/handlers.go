// Package api exposes the negotiation assistant over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"voice-negotiator-go/internal/logger"
	"voice-negotiator-go/internal/session"
	"voice-negotiator-go/internal/types"
)

// User-facing messages.
const (
	msgCustomerNotFound = "Cliente no encontrado"
	msgMissingFields    = "Faltan datos necesarios para procesar la solicitud."
	msgMissingAudioID   = "ID de cliente no proporcionado para la interacción de audio."
	msgMissingAudio     = "No se recibió el archivo de audio."
	msgInvalidUpload    = "El formulario de audio no es válido."
	msgUploadTooLarge   = "El archivo de audio excede el tamaño permitido."
	msgNoSpeech         = "No se pudo reconocer voz en el audio."
	msgSTTTimeout       = "El reconocimiento de voz tardó demasiado."
	msgSTTFailed        = "Error al procesar el audio."
	msgReset            = "Conversación reiniciada exitosamente."
	msgInternal         = "Error interno del servidor."
)

const defaultMaxUpload = 25 << 20

type Directory interface {
	List() []types.CustomerSummary
	Get(id int) (types.CustomerProfile, bool)
}

type Interactor interface {
	Interact(ctx context.Context, input string, customer *types.CustomerProfile) (types.InteractionResult, error)
	InteractAudio(ctx context.Context, audioPath string, customer *types.CustomerProfile) (types.InteractionResult, error)
}

type Handler struct {
	Customers Directory
	Pipeline  Interactor
	Session   *session.Store
	Log       *logger.Logger

	// StrictCustomerLookup makes interaction endpoints answer 404 for an
	// unknown cliente_id instead of continuing without a profile.
	StrictCustomerLookup bool
	StaticDir            string
	IndexPath            string
	MaxUploadBytes       int64
}

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Customers.List())
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, msgCustomerNotFound)
		return
	}
	c, ok := h.Customers.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, msgCustomerNotFound)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type interactRequest struct {
	Input     string          `json:"input"`
	ClienteID json.RawMessage `json:"cliente_id"`
}

func (h *Handler) Interact(w http.ResponseWriter, r *http.Request) {
	log := h.Log.WithRequest(r)

	var req interactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.WithError(err).Warn("invalid interact body")
		writeError(w, http.StatusBadRequest, msgMissingFields)
		return
	}
	input := strings.TrimSpace(req.Input)
	id, ok := parseClienteID(req.ClienteID)
	if input == "" || !ok {
		writeError(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	customer, ok := h.lookup(w, r, id)
	if !ok {
		return
	}
	res, err := h.Pipeline.Interact(r.Context(), input, customer)
	if err != nil {
		if errors.Is(err, types.ErrEmptyInput) {
			writeError(w, http.StatusBadRequest, msgMissingFields)
			return
		}
		log.WithError(err).Error("interaction failed")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) AudioInteract(w http.ResponseWriter, r *http.Request) {
	log := h.Log.WithRequest(r)

	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUpload
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		log.WithError(err).Warn("invalid multipart upload")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgUploadTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, msgInvalidUpload)
		return
	}
	id, ok := parseClienteIDString(r.FormValue("cliente_id"))
	if !ok {
		writeError(w, http.StatusBadRequest, msgMissingAudioID)
		return
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, msgMissingAudio)
		return
	}
	defer file.Close()

	customer, ok := h.lookup(w, r, id)
	if !ok {
		return
	}

	tmp, err := os.CreateTemp("", "upload-*.webm")
	if err != nil {
		log.WithError(err).Error("cannot create upload file")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	defer os.Remove(tmp.Name())
	_, err = io.Copy(tmp, file)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.WithError(err).Error("cannot store upload")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	res, err := h.Pipeline.InteractAudio(r.Context(), tmp.Name(), customer)
	if err != nil {
		log.WithError(err).WithField("kind", types.Kind(err)).Warn("audio interaction aborted")
		switch {
		case errors.Is(err, types.ErrNoSpeech):
			writeError(w, http.StatusUnprocessableEntity, msgNoSpeech)
		case errors.Is(err, types.ErrTimeout):
			writeError(w, http.StatusGatewayTimeout, msgSTTTimeout)
		default:
			writeError(w, http.StatusBadGateway, msgSTTFailed)
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	h.Session.Reset()
	h.Log.WithRequest(r).Info("conversation reset")
	writeJSON(w, http.StatusOK, map[string]string{"message": msgReset})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "xlsx" {
		h.exportHistory(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"conversation": h.Session.Transcript()})
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if h.IndexPath == "" {
		http.NotFound(w, r)
		return
	}
	if st, err := os.Stat(h.IndexPath); err != nil || st.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, h.IndexPath)
}

// lookup resolves id to a profile. It writes the 404 itself and returns
// false when strict lookup is on and the customer is unknown.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request, id int) (*types.CustomerProfile, bool) {
	c, found := h.Customers.Get(id)
	if found {
		return &c, true
	}
	if h.StrictCustomerLookup {
		writeError(w, http.StatusNotFound, msgCustomerNotFound)
		return nil, false
	}
	h.Log.WithRequest(r).WithField("cliente_id", id).Warn("unknown customer, continuing without profile")
	return nil, true
}

// parseClienteID accepts a JSON number or a numeric string. Missing, empty,
// zero and negative values are rejected.
func parseClienteID(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		return parseClienteIDString(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil || f != float64(int(f)) {
		return 0, false
	}
	return positive(int(f))
}

func parseClienteIDString(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return positive(n)
}

func positive(n int) (int, bool) {
	return n, n > 0
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
