package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_IgnoresCaseAndWhitespace(t *testing.T) {
	base := Fingerprint("Backend Engineer", "Acme Corp", "justjoin")

	variants := []struct{ title, company, source string }{
		{"backend engineer", "acme corp", "justjoin"},
		{"  Backend   Engineer ", "Acme\tCorp", "justjoin"},
		{"BACKEND\nENGINEER", "ACME CORP", " JustJoin "},
		{"BackendEngineer", "AcmeCorp", "justjoin"},
	}
	for _, v := range variants {
		assert.Equal(t, base, Fingerprint(v.title, v.company, v.source), "%q / %q / %q", v.title, v.company, v.source)
	}
}

func TestFingerprint_DistinguishesFields(t *testing.T) {
	base := Fingerprint("Backend Engineer", "Acme", "justjoin")

	assert.NotEqual(t, base, Fingerprint("Frontend Engineer", "Acme", "justjoin"))
	assert.NotEqual(t, base, Fingerprint("Backend Engineer", "Globex", "justjoin"))
	assert.NotEqual(t, base, Fingerprint("Backend Engineer", "Acme", "nofluff"))
}

func TestFingerprint_FieldBoundary(t *testing.T) {
	// the separator keeps "ab"+"c" apart from "a"+"bc"
	assert.NotEqual(t, Fingerprint("ab", "c", "s"), Fingerprint("a", "bc", "s"))
}

func TestFingerprint_Format(t *testing.T) {
	fp := Fingerprint("x", "y", "z")
	assert.Len(t, fp, 32)
	assert.Regexp(t, `^[0-9a-f]{32}$`, fp)
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "Senior Go Developer", CollapseSpaces("  Senior \n Go\tDeveloper  "))
	assert.Equal(t, "", CollapseSpaces("   "))
}
