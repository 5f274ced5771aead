package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"brevity-server/internal/domain"

	"github.com/supabase-community/postgrest-go"
)

// quotaExhaustedMarker is raised by the SQL functions when a user has no credits left.
const quotaExhaustedMarker = "quota_exhausted"

type rpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// callIntRPC runs a stored procedure that returns a single integer.
// postgrest-go returns the raw body without checking the status code, so
// error payloads are recognised by shape.
func callIntRPC(client *postgrest.Client, name string, body interface{}) (int, error) {
	raw := strings.TrimSpace(client.Rpc(name, "", body))
	if client.ClientError != nil {
		return 0, fmt.Errorf("rpc %s: %w", name, client.ClientError)
	}

	var n int
	if err := json.Unmarshal([]byte(raw), &n); err == nil {
		return n, nil
	}

	var rErr rpcError
	if err := json.Unmarshal([]byte(raw), &rErr); err == nil && rErr.Message != "" {
		if strings.Contains(rErr.Message, quotaExhaustedMarker) {
			return 0, domain.ErrQuotaExhausted
		}
		return 0, fmt.Errorf("rpc %s failed: (%s) %s", name, rErr.Code, rErr.Message)
	}

	return 0, fmt.Errorf("rpc %s: unexpected response %q", name, raw)
}
