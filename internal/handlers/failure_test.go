package handlers

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestFailureHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		queryParams    string
		expectedStatus int
		checkContent   []string
	}{
		{
			name:           "declined payment",
			method:         http.MethodGet,
			queryParams:    "?reference=PAY-123&reason=requires_payment_method",
			expectedStatus: http.StatusOK,
			checkContent:   []string{"PAY-123", "declined"},
		},
		{
			name:           "cancelled payment",
			method:         http.MethodGet,
			queryParams:    "?reference=PAY-456&reason=canceled",
			expectedStatus: http.StatusOK,
			checkContent:   []string{"PAY-456", "cancelled"},
		},
		{
			name:           "authorisation not completed",
			method:         http.MethodGet,
			queryParams:    "?reference=PAY-789&reason=requires_action",
			expectedStatus: http.StatusOK,
			checkContent:   []string{"PAY-789", "not authorised"},
		},
		{
			name:           "no query parameters",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
			checkContent:   []string{"Payment Failed", "contact support"},
		},
		{
			name:           "reason is escaped",
			method:         http.MethodGet,
			queryParams:    "?reason=%3Cscript%3E",
			expectedStatus: http.StatusOK,
			checkContent:   []string{"&lt;script&gt;"},
		},
		{
			name:           "method not allowed - POST",
			method:         http.MethodPost,
			queryParams:    "?reference=PAY-123&reason=canceled",
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, err := NewFailureHandler("../../templates/failed.html", zap.NewNop())
			if err != nil {
				t.Fatalf("Failed to create handler: %v", err)
			}

			req := httptest.NewRequest(tt.method, "/payment/failed"+tt.queryParams, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			body := w.Body.String()
			for _, content := range tt.checkContent {
				if !strings.Contains(body, content) {
					t.Errorf("expected response to contain '%s'", content)
				}
			}
		})
	}
}

func TestGetFailureMessage(t *testing.T) {
	tests := []struct {
		reason   string
		contains string
	}{
		{"requires_payment_method", "declined"},
		{"canceled", "cancelled"},
		{"requires_action", "authorisation"},
		{"", "contact support"},
		{"something_else", "contact support"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			if msg := getFailureMessage(tt.reason); !strings.Contains(msg, tt.contains) {
				t.Errorf("expected message for %q to contain %q, got %q", tt.reason, tt.contains, msg)
			}
		})
	}
}

func TestNewFailureHandler(t *testing.T) {
	for _, path := range []string{"", "/invalid/path/to/failed.html"} {
		handler, err := NewFailureHandler(path, zap.NewNop())
		if err == nil {
			t.Errorf("expected error for template path %q", path)
		}
		if handler != nil {
			t.Error("expected nil handler when error occurs")
		}
	}
}

func TestFailureHandler_TemplateExecutionError(t *testing.T) {
	tmpl, err := template.New("failed.html").Parse("{{.InvalidField.NonExistent}}")
	if err != nil {
		t.Fatalf("Failed to create test template: %v", err)
	}

	handler := &FailureHandler{template: tmpl, logger: zap.NewNop()}

	req := httptest.NewRequest(http.MethodGet, "/payment/failed", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}
