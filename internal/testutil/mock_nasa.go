// Package testutil provides testing utilities for the rover photos client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock API endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockNASA is a configurable mock of the Mars Photos API for testing.
type MockNASA struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount int
	LastQuery    map[string]string
}

// NewMockNASA creates a new mock API server.
func NewMockNASA() *MockNASA {
	mock := &MockNASA{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastQuery = make(map[string]string)
		for key, values := range r.URL.Query() {
			if len(values) > 0 {
				mock.LastQuery[key] = values[0]
			}
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL, usable as the client's base URL.
func (m *MockNASA) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockNASA) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockNASA) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastQuery = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockNASA) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetPhotosResponse configures a response for a rover's photos endpoint.
func (m *MockNASA) SetPhotosResponse(rover string, resp MockResponse) {
	path := fmt.Sprintf("/rovers/%s/photos", rover)
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockNASA) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// defaultHandler answers any photos path with a small valid payload.
func (m *MockNASA) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if !strings.Contains(r.URL.Path, "/photos") {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "not found"}`))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(PhotosBody("https://mars.nasa.gov/msl/01000/default.jpg")))
}

// PhotosBody builds a minimal photos payload with the given image links.
func PhotosBody(imgSrcs ...string) string {
	photos := make([]string, 0, len(imgSrcs))
	for i, src := range imgSrcs {
		photos = append(photos, fmt.Sprintf(
			`{"id":%d,"sol":1000,"camera":{"id":20,"name":"FHAZ","rover_id":5,"full_name":"Front Hazard Avoidance Camera"},"img_src":"%s","earth_date":"2015-05-30","rover":{"id":5,"name":"Curiosity","landing_date":"2012-08-06","launch_date":"2011-11-26","status":"active"}}`,
			i+1, src,
		))
	}
	return fmt.Sprintf(`{"photos":[%s]}`, strings.Join(photos, ","))
}

// NewPhotosResponse creates a standard 200 OK response with the given image
// links.
func NewPhotosResponse(imgSrcs ...string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       PhotosBody(imgSrcs...),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response, the shape
// api.nasa.gov returns when an API key is over its limit.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": {"code": "OVER_RATE_LIMIT", "message": "You have exceeded your rate limit."}}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
