package web

import (
	"bytes"
	"strings"
	"testing"
)

func Test_Templates_RenderDashboard(t *testing.T) {
	tmpl, err := Templates()
	if err != nil {
		t.Fatalf("Templates: %v", err)
	}

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "dashboard.html", map[string]interface{}{
		"Title":   "statboard",
		"Project": "abcd",
		"Host":    "abcd.supabase.co",
	})
	if err != nil {
		t.Fatalf("ExecuteTemplate: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"<title>statboard</title>", "abcd.supabase.co", "/api/dashboard"} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func Test_Templates_FormatTimesClientSide(t *testing.T) {
	tmpl, err := Templates()
	if err != nil {
		t.Fatalf("Templates: %v", err)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "dashboard.html", map[string]interface{}{"Title": "statboard"}); err != nil {
		t.Fatalf("ExecuteTemplate: %v", err)
	}
	out := buf.String()

	// the "ago" label ticks on its own between pushes and rate rows use the viewer's zone
	for _, want := range []string{"s.last_refreshed_at", "setInterval(renderUpdated, 10000)", "clock(r.observed_at)"} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(out, "s.last_refreshed_ago") {
		t.Error("page still renders the server-side ago string")
	}
}
