// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"encoding/json"
	"strings"
)

// Alert returns a valid open-long alert for SOLUSDT as a mutable map.
func Alert() map[string]any {
	return map[string]any{
		"general": map[string]any{
			"strategy": "trend-follow",
			"ticker":   "SOLUSDT",
			"exchange": "BINANCE",
			"interval": "15",
			"time":     "2025-01-15T10:00:00Z",
			"timenow":  "2025-01-15T10:00:01.250Z",
			"leverage": "3X",
		},
		"symbol_data": map[string]any{
			"open":   "142.10",
			"close":  "143.25",
			"high":   "143.80",
			"low":    "141.95",
			"volume": "10234.5",
		},
		"currency": map[string]any{
			"quote": "USDT",
			"base":  "SOL",
		},
		"position": map[string]any{
			"position_size": "1.5",
		},
		"order": map[string]any{
			"action":        "buy",
			"contracts":     "1.5",
			"price":         "143.25",
			"id":            "Long Entry",
			"comment":       "breakout",
			"alert_message": nil,
		},
		"market": map[string]any{
			"position":               "long",
			"position_size":          "1.5",
			"previous_position":      "flat",
			"previous_position_size": "0",
		},
	}
}

// Set assigns value at a dotted path such as "order.contracts".
func Set(alert map[string]any, path string, value any) map[string]any {
	parts := strings.Split(path, ".")
	m := alert
	for _, p := range parts[:len(parts)-1] {
		m = m[p].(map[string]any)
	}
	m[parts[len(parts)-1]] = value
	return alert
}

// Delete removes the value at a dotted path.
func Delete(alert map[string]any, path string) map[string]any {
	parts := strings.Split(path, ".")
	m := alert
	for _, p := range parts[:len(parts)-1] {
		m = m[p].(map[string]any)
	}
	delete(m, parts[len(parts)-1])
	return alert
}

// JSON marshals alert, panicking on failure.
func JSON(alert map[string]any) []byte {
	b, err := json.Marshal(alert)
	if err != nil {
		panic(err)
	}
	return b
}
