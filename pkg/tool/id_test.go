package tool

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUIDV7(t *testing.T) {
	id, err := uuid.Parse(GenerateUUIDV7())
	require.NoError(t, err)
	require.Equal(t, uuid.Version(7), id.Version())
}

func TestSubjectToken(t *testing.T) {
	require.Equal(t, "75312e61", SubjectToken("u1.a"))
	require.NotContains(t, SubjectToken("a.b*>c"), ".")
}
