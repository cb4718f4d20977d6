package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFileName(t *testing.T) {
	valid := []string{"report.pdf", "photo 1.JPG", "ünïcødé.txt", ".bashrc"}
	for _, name := range valid {
		assert.NoError(t, ValidateFileName(name), name)
	}

	invalid := []string{"", "   ", ".", "..", "a/b.txt", `a\b.txt`, "bad|name", strings.Repeat("x", 256)}
	for _, name := range invalid {
		assert.Error(t, ValidateFileName(name), name)
	}
}

func TestCleanFileName(t *testing.T) {
	assert.Equal(t, "report.pdf", CleanFileName("report.pdf"))
	assert.Equal(t, "passwd", CleanFileName("../../etc/passwd"))
	assert.Equal(t, "evil.exe", CleanFileName(`C:\Users\x\evil.exe`))
	assert.Equal(t, "", CleanFileName("/"))
	assert.Equal(t, "", CleanFileName(""))
}

func TestValidateFileSize(t *testing.T) {
	assert.NoError(t, ValidateFileSize(10, 0))
	assert.NoError(t, ValidateFileSize(10, 10))
	assert.Error(t, ValidateFileSize(11, 10))
}

func TestValidateAccountFields(t *testing.T) {
	assert.NoError(t, ValidateEmail("alice@example.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("alice@"))

	assert.NoError(t, ValidateUsername("jane.doe"))
	assert.NoError(t, ValidateUsername("Zoë"))
	assert.Error(t, ValidateUsername(""))
	assert.Error(t, ValidateUsername("bob/../x"))

	assert.NoError(t, ValidatePassword("correct horse"))
	assert.Error(t, ValidatePassword("short"))
	assert.Error(t, ValidatePassword(strings.Repeat("p", 73)))
}
