package services

import (
	"testing"
	"time"
)

func Test_FormatBytes_Cases(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 Bytes"},
		{1, "1 Bytes"},
		{1023, "1023 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1048576, "1 MB"},
		{5 * 1024 * 1024 * 1024, "5 GB"},
		{1234567890, "1.15 GB"},
		{3 * 1024 * 1024 * 1024 * 1024, "3 TB"},
		{2048 * 1024 * 1024 * 1024 * 1024, "2048 TB"},
		{-1536, "-1.5 KB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func Test_TimeAgo_Cases(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{-time.Second, "0 seconds ago"},
		{0, "0 seconds ago"},
		{59 * time.Second, "59 seconds ago"},
		{60 * time.Second, "1 minute ago"},
		{150 * time.Second, "2 minutes ago"},
		{time.Hour, "1 hour ago"},
		{23 * time.Hour, "23 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{72 * time.Hour, "3 days ago"},
	}
	for _, tt := range tests {
		if got := TimeAgo(tt.in); got != tt.want {
			t.Errorf("TimeAgo(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
