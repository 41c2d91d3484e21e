package handler

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/V4T54L/hookwatch/internal/domain"
)

const (
	SignatureHeader = "X-Signature-Ed25519"
	TimestampHeader = "X-Signature-Timestamp"

	maxInteractionSize = 1 << 20
)

// InteractionUseCase answers component interactions and reports failures
// of its own handling.
type InteractionUseCase interface {
	HandleInteraction(ctx context.Context, in domain.Interaction) (domain.InteractionResponse, error)
	Capture(ctx context.Context, event string, err error)
}

const interactionEvent = "InteractionCreate"

// interactionPayload is the subset of an incoming interaction we read.
type interactionPayload struct {
	ID   string `json:"id"`
	Type int    `json:"type"`
	Data struct {
		CustomID string `json:"custom_id"`
	} `json:"data"`
	Message struct {
		ID string `json:"id"`
	} `json:"message"`
	Member *struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"member"`
	User *struct {
		ID string `json:"id"`
	} `json:"user"`
}

func (p interactionPayload) toDomain() domain.Interaction {
	in := domain.Interaction{ID: p.ID, Type: p.Type, MessageID: p.Message.ID, CustomID: p.Data.CustomID}
	switch {
	case p.Member != nil:
		in.UserID = p.Member.User.ID
	case p.User != nil:
		in.UserID = p.User.ID
	}
	return in
}

type attachment struct {
	ID       int    `json:"id"`
	Filename string `json:"filename"`
}

type responseData struct {
	Content     string       `json:"content,omitempty"`
	Flags       int          `json:"flags,omitempty"`
	Attachments []attachment `json:"attachments,omitempty"`
}

type responsePayload struct {
	Type int           `json:"type"`
	Data *responseData `json:"data,omitempty"`
}

// InteractionHandler serves the interaction callback endpoint.
type InteractionHandler struct {
	useCase   InteractionUseCase
	publicKey ed25519.PublicKey
	logger    *slog.Logger
}

// NewInteractionHandler creates a new InteractionHandler. An empty
// publicKeyHex disables signature verification.
func NewInteractionHandler(uc InteractionUseCase, publicKeyHex string, logger *slog.Logger) (*InteractionHandler, error) {
	h := &InteractionHandler{useCase: uc, logger: logger.With("component", "interaction_handler")}
	if publicKeyHex == "" {
		return h, nil
	}
	key, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid interactions public key")
	}
	h.publicKey = key
	return h, nil
}

// ServeHTTP verifies and dispatches one interaction.
func (h *InteractionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInteractionSize))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			http.Error(w, "Payload Too Large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if !h.verify(r.Header, body) {
		h.logger.Warn("rejected interaction with bad signature", "remote_addr", r.RemoteAddr)
		http.Error(w, "Unauthorized: invalid request signature", http.StatusUnauthorized)
		return
	}

	var payload interactionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "Bad Request: Failed to decode JSON", http.StatusBadRequest)
		return
	}

	switch payload.Type {
	case domain.InteractionTypePing:
		h.respondJSON(w, responsePayload{Type: domain.InteractionResponsePong})
	case domain.InteractionTypeComponent:
		resp, err := h.useCase.HandleInteraction(r.Context(), payload.toDomain())
		if err != nil {
			h.logger.Error("failed to handle interaction", "error", err, "interaction_id", payload.ID)
			h.useCase.Capture(r.Context(), interactionEvent, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		h.respond(w, resp)
	default:
		http.Error(w, "Bad Request: Unsupported interaction type", http.StatusBadRequest)
	}
}

func (h *InteractionHandler) verify(header http.Header, body []byte) bool {
	if h.publicKey == nil {
		return true
	}
	sig, err := hex.DecodeString(header.Get(SignatureHeader))
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	timestamp := header.Get(TimestampHeader)
	if timestamp == "" {
		return false
	}
	msg := make([]byte, 0, len(timestamp)+len(body))
	msg = append(append(msg, timestamp...), body...)
	return ed25519.Verify(h.publicKey, msg, sig)
}

func (h *InteractionHandler) respond(w http.ResponseWriter, resp domain.InteractionResponse) {
	payload := responsePayload{
		Type: resp.Type,
		Data: &responseData{Content: resp.Content, Flags: resp.Flags},
	}
	if len(resp.Files) == 0 {
		h.respondJSON(w, payload)
		return
	}

	for i, f := range resp.Files {
		payload.Data.Attachments = append(payload.Data.Attachments, attachment{ID: i, Filename: f.Name})
	}
	body, contentType, err := encodeMultipart(payload, resp.Files)
	if err != nil {
		h.logger.Error("failed to encode multipart response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *InteractionHandler) respondJSON(w http.ResponseWriter, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(response)
}

// encodeMultipart writes payload_json followed by one files[n] part per file.
func encodeMultipart(payload responsePayload, files []domain.File) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	jsonHeader := make(textproto.MIMEHeader)
	jsonHeader.Set("Content-Disposition", `form-data; name="payload_json"`)
	jsonHeader.Set("Content-Type", "application/json")
	part, err := mw.CreatePart(jsonHeader)
	if err != nil {
		return nil, "", err
	}
	if err := json.NewEncoder(part).Encode(payload); err != nil {
		return nil, "", err
	}

	for i, f := range files {
		fileHeader := make(textproto.MIMEHeader)
		fileHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files[%d]"; filename=%q`, i, f.Name))
		fileHeader.Set("Content-Type", "text/plain; charset=utf-8")
		part, err := mw.CreatePart(fileHeader)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
