package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/notekeeper/backend/internal/domain"
	"github.com/pkordes/notekeeper/backend/internal/handler"
	"github.com/pkordes/notekeeper/backend/internal/summary"
)

func TestCreateSummary_200(t *testing.T) {
	sum := &mockSummarizer{
		summarize: func(_ context.Context, text string) (string, error) {
			assert.Equal(t, "long note", text)
			return "short", nil
		},
	}
	api := newTestAPI(t, handler.Deps{Summaries: sum})

	rec := api.do(http.MethodPost, "/summaries", uuid.New(), handler.SummaryInput{Text: "long note"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "short", decode[handler.SummaryResponse](t, rec).Summary)
}

func TestCreateSummary_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"blank text", fmt.Errorf("%w: text is required", domain.ErrValidation), http.StatusUnprocessableEntity},
		{"not configured", summary.ErrNotConfigured, http.StatusServiceUnavailable},
		{"upstream failed", fmt.Errorf("summary.Client.Summarize: %w: status 500", summary.ErrUpstream), http.StatusBadGateway},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sum := &mockSummarizer{
				summarize: func(context.Context, string) (string, error) { return "", tc.err },
			}
			api := newTestAPI(t, handler.Deps{Summaries: sum})

			rec := api.do(http.MethodPost, "/summaries", uuid.New(), handler.SummaryInput{Text: "x"})

			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}
