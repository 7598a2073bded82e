package capture

import (
	"testing"
	"time"

	"github.com/calebmd/radpace/internal/common"
	"github.com/calebmd/radpace/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccessions(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    []string
		wantErr bool
	}{
		{name: "single accession", text: "12345678", want: []string{"12345678"}},
		{name: "alphanumeric accession", text: "ACC-20240117-001", want: []string{"ACC-20240117-001"}},
		{name: "comma delimited", text: "1001,1002,1003", want: []string{"1001", "1002", "1003"}},
		{name: "semicolon delimited", text: "1001; 1002", want: []string{"1001", "1002"}},
		{name: "pipe delimited", text: "1001|1002", want: []string{"1001", "1002"}},
		{name: "whitespace delimited", text: "1001  1002\n1003", want: []string{"1001", "1002", "1003"}},
		{name: "order preserved", text: "9003, 9001, 9002", want: []string{"9003", "9001", "9002"}},
		{name: "empty text", text: "   ", wantErr: true},
		{name: "token without digits", text: "PENDING", wantErr: true},
		{name: "token with invalid characters", text: "12345!", wantErr: true},
		{name: "one bad token poisons the capture", text: "1001, ???", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAccessions(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrMalformedAccession)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitter_Split_CountInvariant(t *testing.T) {
	now := time.Date(2024, 1, 17, 14, 0, 0, 0, time.UTC)
	windowStart := now.Add(-30 * time.Minute)

	for _, policy := range []model.SplitPolicy{model.SplitEven, model.SplitTerminal} {
		s := NewSplitter(policy)
		studies, err := s.Split(model.RawCapture{
			AccessionText: "1001, 1002, 1003",
			ProcedureText: "CT HEAD WITHOUT CONTRAST",
			CaptureTime:   now,
		}, windowStart)
		require.NoError(t, err)
		require.Len(t, studies, 3, "policy %s", policy)

		assert.Equal(t, "1001", studies[0].AccessionNumber)
		assert.Equal(t, "1002", studies[1].AccessionNumber)
		assert.Equal(t, "1003", studies[2].AccessionNumber)
	}
}

func TestSplitter_Split_EvenApportionment(t *testing.T) {
	now := time.Date(2024, 1, 17, 14, 0, 0, 0, time.UTC)
	windowStart := now.Add(-30 * time.Minute)

	s := NewSplitter(model.SplitEven)
	studies, err := s.Split(model.RawCapture{
		AccessionText: "1001, 1002, 1003",
		ProcedureText: "CT HEAD",
		CaptureTime:   now,
	}, windowStart)
	require.NoError(t, err)

	var total time.Duration
	for _, st := range studies {
		total += st.Duration()
	}
	assert.Equal(t, 30*time.Minute, total, "shares must sum to the capture window")
	assert.Equal(t, 10*time.Minute, studies[0].Duration())
	assert.Equal(t, 10*time.Minute, studies[1].Duration())

	// Slices are consecutive and end at the capture time.
	assert.Equal(t, windowStart, studies[0].StartTime)
	assert.Equal(t, studies[0].EndTime, studies[1].StartTime)
	assert.Equal(t, now, studies[2].EndTime)
}

func TestSplitter_Split_TerminalApportionment(t *testing.T) {
	now := time.Date(2024, 1, 17, 14, 0, 0, 0, time.UTC)
	windowStart := now.Add(-20 * time.Minute)

	s := NewSplitter(model.SplitTerminal)
	studies, err := s.Split(model.RawCapture{
		AccessionText: "1001; 1002",
		ProcedureText: "XR CHEST",
		CaptureTime:   now,
	}, windowStart)
	require.NoError(t, err)
	require.Len(t, studies, 2)

	assert.Zero(t, studies[0].Duration())
	assert.Equal(t, 20*time.Minute, studies[1].Duration())
	assert.Equal(t, now, studies[1].EndTime)
}

func TestSplitter_Split_RemainderGoesToLast(t *testing.T) {
	now := time.Date(2024, 1, 17, 14, 0, 0, 0, time.UTC)
	// 10 seconds across 3 accessions does not divide evenly.
	windowStart := now.Add(-10 * time.Second)

	s := NewSplitter(model.SplitEven)
	studies, err := s.Split(model.RawCapture{
		AccessionText: "1 2 3",
		ProcedureText: "XR CHEST",
		CaptureTime:   now,
	}, windowStart)
	require.NoError(t, err)

	var total time.Duration
	for _, st := range studies {
		total += st.Duration()
	}
	assert.Equal(t, 10*time.Second, total)
	assert.Equal(t, now, studies[2].EndTime)
}

func TestSplitter_Split_PerAccessionText(t *testing.T) {
	now := time.Now()
	s := NewSplitter(model.SplitEven)

	t.Run("one line per accession pairs positionally", func(t *testing.T) {
		studies, err := s.Split(model.RawCapture{
			AccessionText: "1001, 1002",
			ProcedureText: "CT HEAD WITHOUT CONTRAST\nCT CSPINE WITHOUT CONTRAST",
			CaptureTime:   now,
		}, now.Add(-10*time.Minute))
		require.NoError(t, err)
		require.Len(t, studies, 2)
		assert.Equal(t, "CT HEAD WITHOUT CONTRAST", studies[0].ProcedureText)
		assert.Equal(t, "CT CSPINE WITHOUT CONTRAST", studies[1].ProcedureText)
	})

	t.Run("mismatched line count shares the full text", func(t *testing.T) {
		studies, err := s.Split(model.RawCapture{
			AccessionText: "1001, 1002, 1003",
			ProcedureText: "CT HEAD\nCT CSPINE",
			CaptureTime:   now,
		}, now.Add(-10*time.Minute))
		require.NoError(t, err)
		require.Len(t, studies, 3)
		for _, st := range studies {
			assert.Equal(t, "CT HEAD\nCT CSPINE", st.ProcedureText)
		}
	})
}

func TestSplitter_Split_CaptureBeforeWindowStart(t *testing.T) {
	now := time.Now()
	s := NewSplitter(model.SplitEven)

	studies, err := s.Split(model.RawCapture{
		AccessionText: "1001",
		ProcedureText: "XR CHEST",
		CaptureTime:   now,
	}, now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, studies, 1)
	assert.Zero(t, studies[0].Duration())
}
