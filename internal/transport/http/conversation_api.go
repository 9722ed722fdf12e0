package http

import (
	"net/http"

	"e2estore/internal/domain"
	"e2estore/internal/dto"
	"e2estore/internal/httpx"

	"github.com/google/uuid"
)

func (h *Handler) handleOpenConversation(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenConversationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid customerId")
		return
	}
	conv, err := h.svc.OpenConversation(r.Context(), customerID, domain.ConversationKind(req.Kind))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, dto.FromConversation(conv))
}

func (h *Handler) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	conv, err := h.svc.Conversation(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromConversation(conv))
}

func (h *Handler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	convs, err := h.svc.Conversations(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]dto.ConversationResponse, 0, len(convs))
	for _, c := range convs {
		out = append(out, dto.FromConversation(c))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAppendRecord(w http.ResponseWriter, r *http.Request) {
	convID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dto.AppendRecordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := h.svc.Append(r.Context(), domain.AppendInput{
		ConversationID:  convID,
		Sender:          domain.Sender(req.Sender),
		Kind:            domain.RecordKind(req.Kind),
		Envelope:        req.Envelope,
		SenderPublicKey: req.SenderPublicKey,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, dto.FromRecord(rec))
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	convID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	recs, err := h.svc.ListOrdered(r.Context(), convID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]dto.RecordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, dto.FromRecord(rec))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
