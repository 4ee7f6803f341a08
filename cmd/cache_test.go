package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/wordweaver/internal/store"
)

func memoryFixture() []store.MemoryEntry {
	used := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return []store.MemoryEntry{
		{ID: "m-1", SourceText: "Fuimos a la playa con mi abuela.", SourceLang: "es", TargetLang: "en",
			FinalText: "We went to the beach with my grandmother.", DraftText: "We went to the beach with my grandmother.",
			UsageCount: 3, LastUsed: used},
		{ID: "m-2", SourceText: "We went to the beach with my grandmother.", SourceLang: "en", TargetLang: "es",
			FinalText: "Fuimos a la playa con mi abuela.", DraftText: "Nosotros fuimos a la playa con mi abuela.",
			UsageCount: 1, Invalidated: true, LastUsed: used},
	}
}

func TestFilterMemory(t *testing.T) {
	entries := memoryFixture()

	assert.Len(t, filterMemory(entries, ""), 2)

	toSpanish := filterMemory(entries, "es")
	require.Len(t, toSpanish, 1)
	assert.Equal(t, "m-2", toSpanish[0].ID)

	assert.Empty(t, filterMemory(entries, "fr"))
}

func TestMemoryDirection(t *testing.T) {
	entries := memoryFixture()
	assert.Equal(t, "es->en analysis input", memoryDirection(entries[0]))
	assert.Equal(t, "en->es student copy", memoryDirection(entries[1]))
	assert.Equal(t, "fr->en", memoryDirection(store.MemoryEntry{SourceLang: "fr", TargetLang: "en"}))
}

func TestWriteMemoryTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMemoryTable(&buf, memoryFixture()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ID", "DIRECTION", "HITS", "LAST", "USED", "POLISHED", "STATUS", "STORY"}, strings.Fields(lines[0]))

	assert.Contains(t, lines[1], "es->en analysis input")
	assert.Contains(t, lines[1], "served")
	assert.Contains(t, lines[1], " no ")

	assert.Contains(t, lines[2], "en->es student copy")
	assert.Contains(t, lines[2], "invalidated")
	assert.Contains(t, lines[2], " yes ")
	assert.Contains(t, lines[2], "We went to the beach with my grandmot...")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short", 10))
	assert.Equal(t, "canci...", snippet("canción de cuna", 8))
}
