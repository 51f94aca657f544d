package probe

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// maxBody bounds how much of a response body is read for predicates.
const maxBody = 64 << 10

type HTTPChecker struct {
	Client *http.Client
}

// NewHTTPChecker returns a checker without a client-level timeout; the deadline
// comes from the context the runner passes in.
func NewHTTPChecker() *HTTPChecker {
	return &HTTPChecker{
		Client: &http.Client{},
	}
}

func (h *HTTPChecker) Probe(ctx context.Context, def Definition) (Raw, error) {
	method := def.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if def.Body != "" {
		body = strings.NewReader(def.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, def.Target, body)
	if err != nil {
		return Raw{}, Fault(err)
	}
	for k, v := range def.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return Raw{}, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Raw{StatusCode: resp.StatusCode}, err
	}
	return Raw{StatusCode: resp.StatusCode, Output: string(b)}, nil
}
