package sanitize_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/guard/pkg/sanitize"
)

var hostileHTML = []string{
	`<script>alert(1)</script>hello`,
	`<SCRIPT SRC=//evil.example/x.js></SCRIPT>`,
	`<img src=x onerror=alert(1)>`,
	`<a href="javascript:alert(1)">click</a>`,
	`<a href="JaVaScRiPt:alert(1)">click</a>`,
	`&lt;script&gt;alert(1)&lt;/script&gt;`,
	`&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;`,
	`java&#115;cript:alert(1)`,
	`javajavascript:script:alert(1)`,
	`x onerror = alert(1)`,
	`xonerror=alert(1)`,
	`<svg><g onload="alert(1)"></g></svg>`,
	`<<script>script>alert(1)<</script>/script>`,
	`<div style="background:url(javascript:alert(1))">x</div>`,
	"a\x00<script>\x01alert(1)</script>",
	`plain text with 5 < 6 & "quotes"`,
	``,
}

func TestHTMLStripsMarkup(t *testing.T) {
	require.Equal(t, "hello", sanitize.HTML(`<script>alert(1)</script>hello`))
	require.Equal(t, "bold", sanitize.HTML(`<b>bold</b>`))
	require.Equal(t, "click", sanitize.HTML(`<a href="https://example.com">click</a>`))
	require.Equal(t, "5 &lt; 6 &amp; 7", sanitize.HTML("5 < 6 & 7"))
}

func TestHTMLNeverEmitsActiveContent(t *testing.T) {
	for _, in := range hostileHTML {
		out := strings.ToLower(sanitize.HTML(in))
		require.NotContains(t, out, "<script", "input %q", in)
		require.NotContains(t, out, "<", "input %q", in)
		require.NotContains(t, out, "onerror=", "input %q", in)
		require.NotContains(t, out, "onload=", "input %q", in)
		require.NotContains(t, out, "javascript:", "input %q", in)
	}
}

func TestHTMLIsIdempotent(t *testing.T) {
	for _, in := range hostileHTML {
		once := sanitize.HTML(in)
		require.Equal(t, once, sanitize.HTML(once), "input %q", in)
	}
}

// nestedEntity encodes "<b>" with depth extra layers of &amp;.
func nestedEntity(depth int) string {
	return "&" + strings.Repeat("amp;", depth) + "lt;b&gt;"
}

func TestHTMLIsIdempotentOnNestedEntities(t *testing.T) {
	for _, depth := range []int{1, 5, 10, 40, 200} {
		in := nestedEntity(depth)
		once := sanitize.HTML(in)
		require.Equal(t, once, sanitize.HTML(once), "depth %d", depth)
		require.NotContains(t, once, "<", "depth %d", depth)
	}
}

func FuzzHTML(f *testing.F) {
	for _, in := range hostileHTML {
		f.Add(in)
	}

	f.Fuzz(func(t *testing.T, input string) {
		once := sanitize.HTML(input)
		lower := strings.ToLower(once)
		if strings.Contains(lower, "<script") || strings.Contains(lower, "javascript:") || strings.Contains(lower, "onerror=") {
			t.Errorf("HTML(%q) = %q contains active content", input, once)
		}
		if twice := sanitize.HTML(once); twice != once {
			t.Errorf("HTML not idempotent for %q: %q then %q", input, once, twice)
		}
	})
}

func TestText(t *testing.T) {
	require.Equal(t, "test", sanitize.Text("\x00\x01\x02test\x03\x04"))
	require.Equal(t, "tab\there", sanitize.Text("tab\there"))
	require.Equal(t, "spaces", sanitize.Text("  spaces  "))
	require.Equal(t, "", sanitize.Text(strings.Repeat("\x00", 100)))
}

func TestSQL(t *testing.T) {
	require.Equal(t, "Robert) DROP TABLE students", sanitize.SQL(`Robert'); DROP TABLE students;--`))
	require.Equal(t, "admin OR 1=1 ", sanitize.SQL(`admin" OR 1=1 --`))
	require.Equal(t, "ab", sanitize.SQL(`a/**/b`))
	require.Equal(t, "-", sanitize.SQL(`-/*-*/-`))
	require.Equal(t, "plain words", sanitize.SQL("plain words"))
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"alice@example.com", "a.b+tag@sub.example.co", " bob@example.org "}
	for _, e := range valid {
		require.True(t, sanitize.ValidateEmail(e), e)
	}

	invalid := []string{
		"",
		"no-at-sign",
		"a@b",
		"a@@example.com",
		"<script>@example.com",
		strings.Repeat("a", 250) + "@example.com",
	}
	for _, e := range invalid {
		require.False(t, sanitize.ValidateEmail(e), e)
	}

	got, err := sanitize.NormalizeEmail("  Alice@Example.COM ")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", got)

	_, err = sanitize.NormalizeEmail("nope")
	require.ErrorIs(t, err, sanitize.ErrInvalidInput)
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"report-2026.pdf":  "report-2026.pdf",
		"my file (1).txt":  "my_file__1_.txt",
		"../../etc/passwd": "____etc_passwd",
		"..":               "_",
		".":                "_",
		"a..b":             "a_b",
		"naïve.txt":        "na_ve.txt",
		`C:\Windows\x.exe`: "C__Windows_x.exe",
	}
	for in, want := range tests {
		require.Equal(t, want, sanitize.FileName(in), in)
	}

	long := sanitize.FileName(strings.Repeat("a", 300))
	require.Len(t, long, sanitize.MaxFileNameLength)
}

func TestValidateAPIKey(t *testing.T) {
	require.True(t, sanitize.ValidateAPIKey(strings.Repeat("ab", 32)))
	require.True(t, sanitize.ValidateAPIKey(strings.Repeat("F", 32)))
	require.False(t, sanitize.ValidateAPIKey(strings.Repeat("a", 31)))
	require.False(t, sanitize.ValidateAPIKey(strings.Repeat("a", 129)))
	require.False(t, sanitize.ValidateAPIKey(strings.Repeat("a", 63)+"'"))
	require.False(t, sanitize.ValidateAPIKey(""))
}

func TestValidatePhone(t *testing.T) {
	require.True(t, sanitize.ValidatePhone("+61412345678"))
	require.True(t, sanitize.ValidatePhone("+1 (415) 555-0100"))
	require.False(t, sanitize.ValidatePhone("0412345678"))
	require.False(t, sanitize.ValidatePhone("+0412345678"))
	require.False(t, sanitize.ValidatePhone("+1234"))
	require.False(t, sanitize.ValidatePhone("+61abc45678"))
}

func TestValidateAmount(t *testing.T) {
	for _, ok := range []string{"1", "0.5", "100.12345678", "999999999999999"} {
		require.True(t, sanitize.ValidateAmount(ok), ok)
	}
	for _, bad := range []string{"", "0", "0.00", "-1", "1.123456789", "1e5", "1,000", ".5", "1."} {
		require.False(t, sanitize.ValidateAmount(bad), bad)
	}
}

func TestValidateIdentifier(t *testing.T) {
	for _, ok := range []string{"u_123", "01J9ZK3M6P0000000000000000", "trades:write", "alice@example.com", "a"} {
		require.True(t, sanitize.ValidateIdentifier(ok), ok)
	}
	for _, bad := range []string{"", "-leading", "has space", "semi;colon", "<script>", strings.Repeat("a", 129)} {
		require.False(t, sanitize.ValidateIdentifier(bad), bad)
	}
}
