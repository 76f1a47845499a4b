// Package cep wraps the viacep.com.br postal-code lookup used by the
// patient address forms.
package cep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("duofisio.internal.cep")

// DefaultBaseURL is the public viacep endpoint.
const DefaultBaseURL = "https://viacep.com.br"

// ErrInvalidCEP is returned when the input is not exactly eight
// digits. The dashboard only fires a lookup at that length, so
// anything else never reaches the wire.
var ErrInvalidCEP = errors.New("cep: must be exactly 8 digits")

// ErrNotFound is returned when viacep does not know the CEP.
var ErrNotFound = errors.New("cep: not found")

// Address is the subset of the viacep payload the forms consume.
type Address struct {
	Street   string `json:"logradouro"`
	District string `json:"bairro"`
	City     string `json:"localidade"`
	State    string `json:"uf"`
}

type viacepPayload struct {
	Address
	Erro bool `json:"erro"`
}

// Client queries viacep.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a viacep client. An empty baseURL uses the public
// service.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: baseURL, http: &http.Client{}}
}

// Lookup resolves a CEP to an address. The cep must be exactly eight
// digits, matching the input-length trigger of the original forms.
func (c *Client) Lookup(ctx context.Context, cep string) (*Address, error) {
	if !validCEP(cep) {
		return nil, ErrInvalidCEP
	}

	ctx, span := tracer.Start(ctx, "cep.lookup")
	defer span.End()
	span.SetAttributes(attribute.String("duofisio.cep", cep))

	url := fmt.Sprintf("%s/ws/%s/json", c.baseURL, cep)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("cep: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cep: lookup %s: %w", cep, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cep: lookup %s: status %d", cep, resp.StatusCode)
	}

	var payload viacepPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("cep: decode response: %w", err)
	}
	if payload.Erro {
		return nil, ErrNotFound
	}
	return &payload.Address, nil
}

func validCEP(cep string) bool {
	if len(cep) != 8 {
		return false
	}
	for _, r := range cep {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
