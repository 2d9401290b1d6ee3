package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderCSV(t *testing.T) {
	doc := RosterDocument{
		ActivityName: "June Field Training",
		CourseName:   "Navigation",
		Slot:         "Thursday, 12 Jun 2025 09:00",
		Rows: []RosterRow{
			{FullName: "Dana Levi", Email: "dana@example.org", Status: "Approved", AssignedAt: "10/06/2025 14:02"},
			{FullName: "Omer Katz", Email: "omer@example.org", Status: "Approved", AssignedAt: "10/06/2025 14:02"},
		},
	}

	out, err := RenderCSV(doc)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "Instructor,Email,Status,Assigned At", lines[0])
	require.Contains(t, lines[1], "Dana Levi")
	require.Contains(t, lines[2], "omer@example.org")
}

func TestRenderPDFProducesDocument(t *testing.T) {
	doc := RosterDocument{
		ActivityName: "June Field Training",
		CourseName:   "Navigation",
		Slot:         "Thursday, 12 Jun 2025 09:00",
		Rows:         []RosterRow{{FullName: "Dana Levi", Email: "dana@example.org", Status: "Approved"}},
	}

	out, err := RenderPDF(doc)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(out), "%PDF"))
}
