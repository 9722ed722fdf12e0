package dto

import "time"

type RegisterCustomerRequest struct {
	PublicKey     string `json:"publicKey"`
	AuthAccountID string `json:"authAccountId,omitempty"`
}

type CustomerResponse struct {
	ID            string    `json:"id"`
	PublicKey     string    `json:"publicKey"`
	AuthAccountID *string   `json:"authAccountId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type PublicKeyBody struct {
	PublicKey string `json:"publicKey"`
}

type LinkAuthAccountRequest struct {
	AuthAccountID string `json:"authAccountId"`
}
