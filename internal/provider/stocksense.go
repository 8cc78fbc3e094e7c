package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"StockSense/internal/model"
)

const (
	endpointSentiment = "getstocksentiment"
	endpointData      = "getstockdata"
	endpointPredict   = "predict"
)

// errorMessage extracts the message of an {"error": "..."} body.
func errorMessage(body []byte) (string, bool) {
	var e struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil || e.Error == nil {
		return "", false
	}
	msg := strings.TrimSpace(fmt.Sprint(e.Error))
	if msg == "" {
		return "", false
	}
	return msg, true
}

// Sentiment returns the sentiment score of symbol, rounded and clamped to
// [-100, 100]. The service reports lookup failures as a string in the
// sentiment field; those surface as *APIError.
func (c *Client) Sentiment(ctx context.Context, symbol string) (*model.Sentiment, error) {
	body, err := c.postForm(ctx, endpointSentiment, symbol)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Symbol    string          `json:"stock_symbol"`
		Sentiment json.RawMessage `json:"sentiment"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", endpointSentiment, err)
	}

	var score float64
	if err := json.Unmarshal(raw.Sentiment, &score); err != nil {
		var msg string
		if json.Unmarshal(raw.Sentiment, &msg) == nil && msg != "" {
			return nil, &APIError{Endpoint: endpointSentiment, Message: msg}
		}
		return nil, fmt.Errorf("%s: sentiment is not a number: %s", endpointSentiment, string(raw.Sentiment))
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return nil, fmt.Errorf("%s: sentiment is not finite", endpointSentiment)
	}

	if raw.Symbol == "" {
		raw.Symbol = symbol
	}
	return &model.Sentiment{
		Symbol: strings.ToUpper(raw.Symbol),
		Score:  int(math.Max(-100, math.Min(100, math.Round(score)))),
	}, nil
}

// Fundamentals returns the company metrics of symbol. Unknown values ("---")
// decode to unset metrics.
func (c *Client) Fundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	body, err := c.postForm(ctx, endpointData, symbol)
	if err != nil {
		return nil, err
	}
	var f model.Fundamentals
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", endpointData, err)
	}
	return &f, nil
}

// Predict returns the next-day close predicted for symbol. A missing
// confidence falls back to the client's default.
func (c *Client) Predict(ctx context.Context, symbol string) (*model.Prediction, error) {
	body, err := c.postForm(ctx, endpointPredict, symbol)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Prediction  *float64  `json:"prediction"`
		Predictions []float64 `json:"predictions"`
		Confidence  *float64  `json:"confidence"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", endpointPredict, err)
	}

	var price float64
	switch {
	case raw.Prediction != nil:
		price = *raw.Prediction
	case len(raw.Predictions) > 0:
		price = raw.Predictions[0]
	default:
		return nil, fmt.Errorf("%s: response has no prediction", endpointPredict)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return nil, fmt.Errorf("%s: invalid predicted price %v", endpointPredict, price)
	}

	confidence := c.defaultConfidence
	if raw.Confidence != nil && !math.IsNaN(*raw.Confidence) {
		confidence = math.Max(0, math.Min(1, *raw.Confidence))
	}

	return &model.Prediction{
		Symbol:     strings.ToUpper(symbol),
		Date:       c.now().UTC().AddDate(0, 0, 1).Format(model.DateLayout),
		Price:      price,
		Confidence: confidence,
	}, nil
}
