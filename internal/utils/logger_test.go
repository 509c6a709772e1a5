package utils

import "testing"

func TestSanitizeLogLine(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			"key value assignment",
			"2026-01-10 12:00:00 [INFO] [Runner] runner.go:88 - api_key=sk-live0123456789abcdef0123\n",
			"2026-01-10 12:00:00 [INFO] [Runner] runner.go:88 - api_key=" + redactionPlaceholder + "\n",
		},
		{
			"authorization header",
			"Authorization: Bearer abc.def.ghi",
			"Authorization: Bearer " + redactionPlaceholder,
		},
		{
			"token shape anywhere in line",
			"prompt mentions ghp_abcd1234efgh5678ijkl9012 explicitly",
			"prompt mentions " + redactionPlaceholder + " explicitly",
		},
		{
			"plain line untouched",
			"Generator: Done (12.3s)\n",
			"Generator: Done (12.3s)\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sanitizeLogLine(tc.in); got != tc.want {
				t.Errorf("sanitizeLogLine(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestLogLevelString(t *testing.T) {
	cases := []struct {
		level LogLevel
		want  string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{LogLevel(42), "UNKNOWN"},
	}
	for _, tc := range cases {
		if got := tc.level.String(); got != tc.want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tc.level, got, tc.want)
		}
	}
}
