package messaging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjects_FollowNamingConvention(t *testing.T) {
	for _, subject := range []string{SubjectTimelineInserted, SubjectLocationsUpdated} {
		parts := strings.Split(subject, ".")
		assert.Len(t, parts, 3, subject)
		assert.Equal(t, "notify", parts[0], subject)
		assert.True(t, strings.HasPrefix(subject, strings.TrimSuffix(SubjectAll, ">")), subject)
	}
}
