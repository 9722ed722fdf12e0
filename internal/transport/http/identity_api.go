package http

import (
	"net/http"

	"e2estore/internal/dto"
	"e2estore/internal/httpx"
)

func (h *Handler) handleRegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterCustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := h.svc.RegisterCustomer(r.Context(), req.PublicKey, req.AuthAccountID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	c, err := h.svc.Customer(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, dto.FromCustomer(c))
}

func (h *Handler) handleCustomerByAuthAccount(w http.ResponseWriter, r *http.Request) {
	id, err := h.svc.CustomerByAuthAccount(r.Context(), r.URL.Query().Get("auth_account_id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	c, err := h.svc.Customer(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromCustomer(c))
}

func (h *Handler) handleGetCustomerKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	key, err := h.svc.CustomerPublicKey(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.PublicKeyBody{PublicKey: key})
}

func (h *Handler) handlePutCustomerKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dto.PublicKeyBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.UpdateCustomerPublicKey(r.Context(), id, req.PublicKey); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLinkAuthAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dto.LinkAuthAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.LinkAuthAccount(r.Context(), id, req.AuthAccountID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetOperatorKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.svc.OperatorPublicKey(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.PublicKeyBody{PublicKey: key})
}

func (h *Handler) handlePutOperatorKey(w http.ResponseWriter, r *http.Request) {
	var req dto.PublicKeyBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.SetOperatorPublicKey(r.Context(), req.PublicKey); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
