package builder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/huntql/internal/platform"
)

func TestParseIntent_Indicators(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []indicator
	}{
		{"empty", "   ", nil},
		{"sha256", "hash " + sampleSHA256, []indicator{{platform.IOCSHA256, sampleSHA256}}},
		{"sha1", "da39a3ee5e6b4b0d3255bfef95601890afd80709", []indicator{{platform.IOCSHA1, "da39a3ee5e6b4b0d3255bfef95601890afd80709"}}},
		{"md5 upper case", "098F6BCD4621D373CADE4E832627B4F6", []indicator{{platform.IOCMD5, sampleMD5}}},
		{"ipv4", "beacon to 192.0.2.10", []indicator{{platform.IOCIPv4, "192.0.2.10"}}},
		{"invalid ipv4", "version 300.1.1.1", nil},
		{"process", "Rundll32.EXE loading a dll", []indicator{{platform.IOCProcess, "rundll32.exe"}}},
		{"script", "ran evil.ps1", []indicator{{platform.IOCProcess, "evil.ps1"}}},
		{"port", "listening on port 8080", []indicator{{platform.IOCPort, "8080"}}},
		{"port out of range", "port 99999", nil},
		{"host", "on hostname=ws01.corp.local.", []indicator{{platform.IOCHost, "ws01.corp.local"}}},
		{"user", "where username equals 'svc_backup'", []indicator{{platform.IOCUser, "svc_backup"}}},
		{"bare label", "user activity on the device", nil},
		{"domain", "domain is Evil.Example.com", []indicator{{platform.IOCDomain, "evil.example.com"}}},
		{"duplicates", "10.0.0.1 and 10.0.0.1", []indicator{{platform.IOCIPv4, "10.0.0.1"}}},
		{"ipv6", "beacon to 2001:DB8::1f", []indicator{{platform.IOCIPv6, "2001:db8::1f"}}},
		{"ipv6 loopback", "listener on ::1", []indicator{{platform.IOCIPv6, "::1"}}},
		{"clock time is not ipv6", "at 08:30:00 each day", nil},
		{"mac address is not ipv6", "nic 00:1a:2b:3c:4d:5e", nil},
		{"quoted command line", `command line containing "-nop -w hidden"`, []indicator{{platform.IOCCommandLine, "-nop -w hidden"}}},
		{"cmdline label", "cmdline 'whoami /all'", []indicator{{platform.IOCCommandLine, "whoami /all"}}},
		{"cmdline containing", `processes with cmdline containing "-enc"`, []indicator{{platform.IOCCommandLine, "-enc"}}},
		{"unquoted command line", "command line with flags", nil},
		{"windows path", `dropped into C:\Users\Public\stage.`, []indicator{{platform.IOCPath, `C:\Users\Public\stage`}}},
		{"unix path", "written to /tmp/.x/payload", []indicator{{platform.IOCPath, "/tmp/.x/payload"}}},
		{"single component is a flag", "ran with /c and /all", nil},
		{"url path", "fetched https://example.org/a/b", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseIntent(tt.text).indicators)
		})
	}
}

func TestParseIntent_Window(t *testing.T) {
	tests := []struct {
		text   string
		want   time.Duration
		phrase string
	}{
		{"in the last 7 days", 7 * 24 * time.Hour, "last 7 days"},
		{"past hour", time.Hour, "past hour"},
		{"Last 36h", 36 * time.Hour, "Last 36h"},
		{"previous 2 weeks", 14 * 24 * time.Hour, "previous 2 weeks"},
		{"last month", 30 * 24 * time.Hour, "last month"},
		{"last 0 days", 0, ""},
		{"recently", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			in := parseIntent(tt.text)
			assert.Equal(t, tt.want, in.window)
			assert.Equal(t, tt.phrase, in.phrase)
		})
	}
}

func TestParseIntent_Words(t *testing.T) {
	in := parseIntent("Show DeviceNetworkEvents connections")
	assert.Contains(t, in.words, "network")
	assert.Contains(t, in.words, "connections")
	assert.NotContains(t, in.words, "show")
}
