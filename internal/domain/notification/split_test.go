package notification

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_ShortText(t *testing.T) {
	assert.Equal(t, []string{"hello"}, Split("hello", 10))
	assert.Nil(t, Split("", 10))
	assert.Equal(t, []string{"no limit"}, Split("no limit", 0))
}

func TestSplit_PrefersLineBreaks(t *testing.T) {
	text := "line one\nline two\nline three"
	chunks := Split(text, 18)

	assert.Equal(t, []string{"line one\nline two\n", "line three"}, chunks)
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplit_HardCutsLongLines(t *testing.T) {
	text := strings.Repeat("借", 10) + "\nok"
	chunks := Split(text, 4)

	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 4, c)
	}
	assert.Equal(t, text, strings.Join(chunks, ""), "切分不能丢字")
}

func TestSplit_PreservesContent(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("#12 reader@example.com: The Left Hand of Darkness (due 2026-03-11)\n")
	}
	text := b.String()

	chunks := Split(text, 4096)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 4096)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSend_EnqueuesEachChunk(t *testing.T) {
	var got []Event
	n := NotifierFunc(func(ctx context.Context, e Event) { got = append(got, e) })
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	Send(context.Background(), n, KindOverdueReport, "aaaa\nbbbb\ncccc", 5, now)

	require.Len(t, got, 3)
	for _, e := range got {
		assert.Equal(t, KindOverdueReport, e.Kind)
		assert.Equal(t, now, e.OccurredAt)
	}
}

func TestOverdueReportText(t *testing.T) {
	assert.Equal(t, "No borrowings overdue today!", OverdueReportText(nil))

	text := OverdueReportText([]OverdueLine{{
		BorrowingID:        3,
		UserEmail:          "reader@example.com",
		BookTitle:          "Dune",
		ExpectedReturnDate: time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
	}})
	assert.Equal(t, "Overdue borrowings: 1\n#3 reader@example.com: Dune (due 2026-03-11)", text)
}
