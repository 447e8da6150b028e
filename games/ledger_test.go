package games

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func testLog(n int) messageLog {
	l := make(messageLog, 0, n)
	for i := 1; i <= n; i++ {
		l = append(l, ChatMessage{ID: i})
	}
	return l
}

func ids(page MessagePage) []int {
	ids := make([]int, 0, len(page.Messages))
	for _, m := range page.Messages {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestMessageLogPage(t *testing.T) {
	tests := []struct {
		name    string
		log     messageLog
		start   int
		count   int
		wantIDs []int
		wantEnd bool
	}{
		{
			name:    "empty log",
			log:     nil,
			start:   0,
			count:   10,
			wantIDs: []int{},
			wantEnd: true,
		},
		{
			name:    "first page",
			log:     testLog(25),
			start:   0,
			count:   10,
			wantIDs: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			wantEnd: false,
		},
		{
			name:    "exact end",
			log:     testLog(20),
			start:   10,
			count:   10,
			wantIDs: []int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
			wantEnd: true,
		},
		{
			name:    "partial last page",
			log:     testLog(12),
			start:   10,
			count:   10,
			wantIDs: []int{11, 12},
			wantEnd: true,
		},
		{
			name:    "start beyond log",
			log:     testLog(5),
			start:   8,
			count:   10,
			wantIDs: []int{},
			wantEnd: true,
		},
		{
			name:    "zero count",
			log:     testLog(5),
			start:   1,
			count:   0,
			wantIDs: []int{},
			wantEnd: false,
		},
		{
			name:    "negative values",
			log:     testLog(5),
			start:   -3,
			count:   -1,
			wantIDs: []int{},
			wantEnd: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := tt.log.page(tt.start, tt.count)
			assert.Equal(t, tt.wantIDs, ids(page))
			assert.Equal(t, tt.wantEnd, page.End)
		})
	}
}

func TestMessageLogPageCopies(t *testing.T) {
	l := testLog(3)
	page := l.page(0, 3)
	page.Messages[0].Content = "changed"
	assert.Empty(t, l[0].Content, "should not modify log")
}
