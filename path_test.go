package vaultik

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinURL(t *testing.T) {
	testdata := []struct {
		expected string
		parts    []string
	}{
		{"", []string{}},
		{"", []string{"", "/"}},
		{"v1", []string{"v1"}},
		{"v1/secret/foo", []string{"v1", "secret", "foo"}},
		{"v1/secret/foo", []string{"/v1/", "/secret/", "/foo/"}},
		{"v1/secret/foo", []string{"v1", "", "secret/foo"}},
		{"v1/auth/userpass/login/alice", []string{"/v1/", "auth/userpass", "login/alice/"}},
		{"https://vault.example.com:8200/v1/secret", []string{"https://vault.example.com:8200", "v1", "secret"}},
		{"https://vault.example.com:8200/v1/secret", []string{"https://vault.example.com:8200/", "/v1/secret"}},
		{"http://127.0.0.1:8200/v1/sys/health", []string{"http://127.0.0.1:8200", "/v1//sys///health"}},
	}

	for _, d := range testdata {
		assert.Equal(t, d.expected, joinURL(d.parts...))
	}
}

func TestJoinURLNoDoubledSeparators(t *testing.T) {
	fragments := [][]string{
		{"/a/", "//b", "c//"},
		{"a", "", "", "b"},
		{"///", "x", "///y///z"},
		{"/v1", "/secret//data/", "///app"},
	}

	for _, parts := range fragments {
		joined := joinURL(parts...)
		assert.NotContains(t, joined, "//")

		// joining the output with no new parts must be a fixed point
		assert.Equal(t, joined, joinURL(joined))
	}
}

func TestCollapseSlashes(t *testing.T) {
	testdata := []struct {
		in, expected string
	}{
		{"", ""},
		{"/", "/"},
		{"//", "/"},
		{"a//b", "a/b"},
		{"a////b", "a/b"},
		{"//v1//secret//", "/v1/secret/"},
		{strings.Repeat("/", 64) + "x", "/x"},
	}

	for _, d := range testdata {
		assert.Equal(t, d.expected, collapseSlashes(d.in))
	}
}
