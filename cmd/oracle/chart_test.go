package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Zuo-Peng/oracle-destiny/internal/chart"
	"github.com/Zuo-Peng/oracle-destiny/internal/convo"
	"github.com/Zuo-Peng/oracle-destiny/internal/devserver"
	"github.com/Zuo-Peng/oracle-destiny/internal/oracle"
	"github.com/Zuo-Peng/oracle-destiny/internal/session"
)

func TestConverseAgainstDevServer(t *testing.T) {
	srv := httptest.NewServer(devserver.New(zap.NewNop()).Routes())
	defer srv.Close()

	client := oracle.NewClient(srv.URL)
	tr, err := converse(context.Background(), client, session.PolicyProceed, chart.DefaultQuery(),
		[]string{"연애운 알려줘", "   ", "직업운은 어때?"})
	require.NoError(t, err)

	assert.False(t, tr.UsedFallback)
	assert.Equal(t, devserver.ConnectedSummary, tr.Chart.Summary)

	// welcome, then two question/answer pairs; the blank question is skipped
	require.Len(t, tr.Turns, 5)
	assert.Equal(t, convo.WelcomeText(devserver.ConnectedSummary), tr.Turns[0].Text)
	assert.Equal(t, "연애운 알려줘", tr.Turns[1].Text)
	assert.Equal(t, convo.User, tr.Turns[1].Author)
	assert.Contains(t, tr.Turns[2].Text, "금성이")
	assert.Equal(t, "직업운은 어때?", tr.Turns[3].Text)
	assert.Contains(t, tr.Turns[4].Text, "토성이")
	for _, turn := range tr.Turns {
		assert.False(t, turn.Pending)
	}
}

func TestConverseUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(devserver.New(zap.NewNop()).Routes())
	url := srv.URL
	srv.Close()

	client := oracle.NewClient(url)

	t.Run("proceed uses the fallback chart", func(t *testing.T) {
		tr, err := converse(context.Background(), client, session.PolicyProceed, chart.DefaultQuery(),
			[]string{"재물운이 궁금해"})
		require.NoError(t, err)
		assert.True(t, tr.UsedFallback)
		assert.Equal(t, chart.FallbackSummary, tr.Chart.Summary)
		require.Len(t, tr.Turns, 3)
		assert.Equal(t, convo.ApologyText, tr.Turns[2].Text)
	})

	t.Run("bounce reports the alert", func(t *testing.T) {
		_, err := converse(context.Background(), client, session.PolicyBounce, chart.DefaultQuery(), nil)
		require.Error(t, err)
		assert.Equal(t, session.BounceAlert, err.Error())
	})
}

func TestConverseRejectsInvalidQuery(t *testing.T) {
	q := chart.DefaultQuery()
	q.City = "  "
	_, err := converse(context.Background(), oracle.NewClient("http://127.0.0.1:1"), session.PolicyProceed, q, nil)
	require.ErrorIs(t, err, chart.ErrInvalidQuery)
}

func TestPrintTranscript(t *testing.T) {
	srv := httptest.NewServer(devserver.New(zap.NewNop()).Routes())
	defer srv.Close()

	tr, err := converse(context.Background(), oracle.NewClient(srv.URL), session.PolicyProceed, chart.DefaultQuery(),
		[]string{"건강운 알려줘"})
	require.NoError(t, err)

	var buf bytes.Buffer
	printTranscript(&buf, tr)
	out := buf.String()

	assert.Contains(t, out, "1995-09-22 14:30 · Seoul")
	assert.Contains(t, out, "Test Sign")
	assert.Contains(t, out, "건강운 알려줘")
	assert.NotContains(t, out, "\033[")
	assert.NotContains(t, out, "fallback chart")
}
