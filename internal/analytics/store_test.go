package analytics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

func TestNewStoreMessageLimit(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, defaultMessageLimit},
		{-5, defaultMessageLimit},
		{25, 25},
		{200, 200},
	}

	for _, tt := range tests {
		s := NewStore(nil, tt.limit)
		if s.messageLimit != tt.want {
			t.Errorf("NewStore(nil, %d).messageLimit = %d, want %d", tt.limit, s.messageLimit, tt.want)
		}
	}
}

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "wrapped net error",
			err: fmt.Errorf("querying total tokens: %w", &net.OpError{
				Op: "dial", Net: "tcp", Err: errors.New("connection refused"),
			}),
			want: true,
		},
		{
			name: "deadline exceeded",
			err:  fmt.Errorf("querying agent metrics: %w", context.DeadlineExceeded),
			want: true,
		},
		{
			name: "scan failure",
			err:  errors.New("scanning message row: cannot assign"),
			want: false,
		},
		{
			name: "no data",
			err:  ErrNoData,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnavailable(tt.err); got != tt.want {
				t.Errorf("IsUnavailable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
