package factory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pizza-service/internal/model"
)

const defaultTimeout = 10 * time.Second

// Diner identifies who the factory is baking for.
type Diner struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type orderRequest struct {
	Diner Diner       `json:"diner"`
	Order model.Order `json:"order"`
}

// Result is the factory's answer: a signed pizza and a link to the build report.
type Result struct {
	JWT       string `json:"jwt"`
	ReportURL string `json:"reportUrl"`
}

// Error is returned when the factory refuses an order. ReportURL may still be
// set so the caller can hand it to the diner.
type Error struct {
	Status    int
	Message   string
	ReportURL string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("factory status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("factory status %d", e.Status)
}

// Client posts orders to the pizza factory.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: defaultTimeout},
	}
}

// Order asks the factory to fulfil order for diner.
func (c *Client) Order(ctx context.Context, diner Diner, order model.Order) (Result, error) {
	body, err := json.Marshal(orderRequest{Diner: diner, Order: order})
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/order", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("factory request: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Result
		Message string `json:"message"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&payload)
	if resp.StatusCode != http.StatusOK {
		return Result{}, &Error{Status: resp.StatusCode, Message: payload.Message, ReportURL: payload.ReportURL}
	}
	if decodeErr != nil {
		return Result{}, fmt.Errorf("decode factory response: %w", decodeErr)
	}
	return payload.Result, nil
}
